// Package evaluator decides whether an agent configuration succeeds on a
// scenario. The decision is a table of rules matched against facts about the
// configuration and scenario, followed by guardrail and premium-model rescue
// passes. All randomness comes from the caller's Source.
package evaluator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bateristico/agent-architect/internal/classify"
	"github.com/Bateristico/agent-architect/internal/models"
)

// Evaluator maps (configuration, scenario) to a verdict. It holds no mutable
// state and is safe for concurrent use as long as each call gets its own Source.
type Evaluator struct {
	classifier classify.Classifier
	rules      []Rule
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClassifier replaces the scenario classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(e *Evaluator) {
		e.classifier = c
	}
}

// WithRules replaces the policy table.
func WithRules(rules []Rule) Option {
	return func(e *Evaluator) {
		e.rules = rules
	}
}

// New creates an evaluator with the keyword classifier and DefaultRules.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		classifier: classify.KeywordClassifier{},
		rules:      DefaultRules(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the policy table in match order.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Facts derives the rule inputs for a configuration and scenario.
func (e *Evaluator) Facts(cfg models.Configuration, sc models.Scenario) Facts {
	class := e.classifier.Classify(sc)
	return Facts{
		Difficulty:   sc.Difficulty,
		DataAccess:   class.DataAccess,
		Category:     class.Category,
		Context:      contextTier(cfg.Context),
		Model:        modelTier(cfg.Model),
		HasTool:      cfg.Has(models.RoleTool),
		HasFramework: cfg.Has(models.RoleFramework),
		HasGuardrail: cfg.Has(models.RoleGuardrail),
	}
}

// Match returns the first rule whose predicate holds.
func (e *Evaluator) Match(f Facts) (Rule, bool) {
	for _, r := range e.rules {
		if r.When(f) {
			return r, true
		}
	}
	return Rule{}, false
}

// Evaluate runs the policy for one scenario. An incomplete configuration is
// a failing verdict with zero cost and latency, never an error.
func (e *Evaluator) Evaluate(cfg models.Configuration, sc models.Scenario, src Source) models.Verdict {
	v := models.Verdict{ScenarioID: sc.ID}

	if missing := cfg.MissingRoles(models.RequiredRoles); len(missing) > 0 {
		v.Reason = fmt.Sprintf("Configuration incomplete: missing %s", joinRoles(missing))
		v.Trace = append(v.Trace, v.Reason)
		return v
	}

	v.Cost = cfg.TotalCost()
	v.Trace = append(v.Trace, fmt.Sprintf("Component cost: %d", v.Cost))

	f := e.Facts(cfg, sc)
	v.Latency = f.Model.latency()
	v.Trace = append(v.Trace, fmt.Sprintf("Model %s baseline latency: %dms", cfg.Model.ID, v.Latency))

	rule, ok := e.Match(f)
	if !ok {
		v.Reason = fmt.Sprintf("No policy for %s difficulty", sc.Difficulty)
		v.Trace = append(v.Trace, v.Reason)
		return v
	}
	slog.Debug("Policy rule matched", "scenario", sc.ID, "rule", rule.Name)

	e.applyPolicy(&v, rule.Policy, f, src)

	if f.HasGuardrail {
		v.Latency += LatencyGuardrail
		v.Trace = append(v.Trace, fmt.Sprintf("Guardrail %s checked the response (+%dms)", cfg.Guardrail.ID, LatencyGuardrail))
		if !v.Success {
			if ok, draw := chance(src, GuardrailRescueChance); ok {
				v.Success = true
				v.Reason = "Guardrail caught the failure and recovered"
				v.Trace = append(v.Trace, fmt.Sprintf("Guardrail rescue succeeded (draw %.2f < %.2f)", draw, GuardrailRescueChance))
			} else {
				v.Trace = append(v.Trace, fmt.Sprintf("Guardrail rescue failed (draw %.2f)", draw))
			}
		}
	}

	if !v.Success && f.Model == ModelPremium {
		if ok, draw := chance(src, PremiumRescueChance); ok {
			v.Success = true
			v.Reason = "Premium model recovered on its own"
			v.Trace = append(v.Trace, fmt.Sprintf("Premium model rescue succeeded (draw %.2f < %.2f)", draw, PremiumRescueChance))
		} else {
			v.Trace = append(v.Trace, fmt.Sprintf("Premium model rescue failed (draw %.2f)", draw))
		}
	}

	return v
}

func (e *Evaluator) applyPolicy(v *models.Verdict, p Policy, f Facts, src Source) {
	if p.Note != "" {
		v.Trace = append(v.Trace, p.Note)
	}
	for _, pen := range p.Penalties {
		v.Latency += penaltyLatency[pen]
		v.Trace = append(v.Trace, fmt.Sprintf("%s (+%dms)", penaltyTrace[pen], penaltyLatency[pen]))
	}

	switch p.Outcome {
	case OutcomePass:
		v.Success = true
	case OutcomeFail:
		v.Success = false
	case OutcomeChance:
		if p.RequirePremium && f.Model != ModelPremium {
			v.Success = false
			v.Trace = append(v.Trace, "Only a premium model can handle this unaided")
			break
		}
		ok, draw := chance(src, p.Probability)
		v.Success = ok
		v.Trace = append(v.Trace, fmt.Sprintf("Outcome uncertain: %.0f%% chance (draw %.2f)", p.Probability*100, draw))
	}

	if v.Success {
		v.Reason = p.PassReason
	} else {
		v.Reason = p.FailReason
	}
	v.Trace = append(v.Trace, v.Reason)
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " and ")
}
