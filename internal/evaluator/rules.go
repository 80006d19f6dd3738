package evaluator

import (
	"github.com/Bateristico/agent-architect/internal/classify"
	"github.com/Bateristico/agent-architect/internal/models"
)

// Latency constants, in milliseconds.
const (
	LatencyPremiumModel = 2000
	LatencyFastModel    = 400
	LatencyDefaultModel = 1000

	LatencyTool        = 600
	LatencyGuardrail   = 250
	LatencyFramework   = 300
	LatencyComplexCase = 500
)

// Rescue probabilities applied after the difficulty policy.
const (
	GuardrailRescueChance = 0.70
	PremiumRescueChance   = 0.40
)

// ContextTier orders the context variants by richness.
type ContextTier int

const (
	ContextMinimal ContextTier = iota
	ContextStandard
	ContextRich
	ContextRichest
)

func contextTier(c *models.Component) ContextTier {
	if c == nil {
		return ContextMinimal
	}
	switch c.Variant {
	case models.VariantMinimal:
		return ContextMinimal
	case models.VariantRich:
		return ContextRich
	case models.VariantRichest:
		return ContextRichest
	default:
		return ContextStandard
	}
}

// ModelTier is the latency band of the placed model.
type ModelTier int

const (
	ModelStandard ModelTier = iota
	ModelFast
	ModelPremium
)

func modelTier(c *models.Component) ModelTier {
	if c == nil {
		return ModelStandard
	}
	switch c.Variant {
	case models.VariantFast:
		return ModelFast
	case models.VariantPremium:
		return ModelPremium
	default:
		return ModelStandard
	}
}

func (m ModelTier) latency() int {
	switch m {
	case ModelPremium:
		return LatencyPremiumModel
	case ModelFast:
		return LatencyFastModel
	default:
		return LatencyDefaultModel
	}
}

// Facts are the inputs a rule is matched against.
type Facts struct {
	Difficulty   models.Difficulty
	DataAccess   bool
	Category     classify.Category
	Context      ContextTier
	Model        ModelTier
	HasTool      bool
	HasFramework bool
	HasGuardrail bool
}

// Outcome is how a matched rule decides success.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	// OutcomeChance succeeds when an independent draw falls below Probability.
	OutcomeChance
)

// Penalty is an additive latency charge a rule applies.
type Penalty string

const (
	PenaltyTool        Penalty = "tool"
	PenaltyFramework   Penalty = "framework"
	PenaltyComplexCase Penalty = "complex-case"
)

var penaltyLatency = map[Penalty]int{
	PenaltyTool:        LatencyTool,
	PenaltyFramework:   LatencyFramework,
	PenaltyComplexCase: LatencyComplexCase,
}

var penaltyTrace = map[Penalty]string{
	PenaltyTool:        "Tool call adds latency",
	PenaltyFramework:   "Framework orchestration adds latency",
	PenaltyComplexCase: "Complex case handling adds latency",
}

// Policy is what a rule does once it matches.
type Policy struct {
	Outcome     Outcome
	Probability float64
	// RequirePremium fails the rule without drawing unless the premium model is placed.
	RequirePremium bool
	Penalties      []Penalty
	// Note is appended to the trace when the rule fires, before the outcome.
	Note       string
	PassReason string
	FailReason string
}

// Rule pairs a predicate with the policy applied when it is the first match.
type Rule struct {
	Name   string
	When   func(f Facts) bool
	Policy Policy
}

func isLow(f Facts) bool    { return f.Difficulty == models.DifficultyLow }
func isMedium(f Facts) bool { return f.Difficulty == models.DifficultyMedium }
func isHigh(f Facts) bool   { return f.Difficulty == models.DifficultyHigh }

func highIn(cat classify.Category) func(Facts) bool {
	return func(f Facts) bool { return isHigh(f) && f.Category == cat }
}

// DefaultRules is the policy table, ordered; the first matching rule wins.
func DefaultRules() []Rule {
	sensitive := highIn(classify.CategorySensitive)
	security := highIn(classify.CategorySecurity)
	generic := highIn(classify.CategoryGeneric)
	complexCase := []Penalty{PenaltyComplexCase}

	return []Rule{
		{
			Name: "low/proportionate-context",
			When: func(f Facts) bool { return isLow(f) && f.Context <= ContextStandard },
			Policy: Policy{
				Outcome:    OutcomePass,
				Note:       "Context is proportionate for a simple request",
				PassReason: "Simple request handled directly",
			},
		},
		{
			Name: "low/excessive-context",
			When: isLow,
			Policy: Policy{
				Outcome:    OutcomePass,
				Note:       "Context may be more than a simple request needs",
				PassReason: "Simple request handled directly",
			},
		},
		{
			Name: "medium/data-access-without-tool",
			When: func(f Facts) bool { return isMedium(f) && f.DataAccess && !f.HasTool },
			Policy: Policy{
				Outcome:    OutcomeFail,
				Note:       "Request needs live account data",
				FailReason: "Cannot look up account data without a Tool",
			},
		},
		{
			Name: "medium/minimal-context-without-tool",
			When: func(f Facts) bool { return isMedium(f) && f.Context == ContextMinimal && !f.HasTool },
			Policy: Policy{
				Outcome:    OutcomeFail,
				FailReason: "Minimal context is too weak for this request",
			},
		},
		{
			Name: "medium/minimal-context-with-tool",
			When: func(f Facts) bool { return isMedium(f) && f.Context == ContextMinimal },
			Policy: Policy{
				Outcome:     OutcomeChance,
				Probability: 0.60,
				Note:        "Tool compensates partly for minimal context",
				PassReason:  "Tool filled the gaps left by minimal context",
				FailReason:  "Minimal context misread the request despite the Tool",
			},
		},
		{
			Name: "medium/rich-context-with-tool",
			When: func(f Facts) bool { return isMedium(f) && f.HasTool },
			Policy: Policy{
				Outcome:    OutcomePass,
				Penalties:  []Penalty{PenaltyTool},
				PassReason: "Context and Tool together resolved the request",
			},
		},
		{
			Name: "medium/rich-context-without-tool",
			When: isMedium,
			Policy: Policy{
				Outcome:     OutcomeChance,
				Probability: 0.70,
				PassReason:  "Context alone was enough to answer",
				FailReason:  "Context alone could not answer reliably",
			},
		},
		{
			Name: "high/sensitive-with-guardrail",
			When: func(f Facts) bool { return sensitive(f) && f.HasGuardrail },
			Policy: Policy{
				Outcome:    OutcomePass,
				Penalties:  complexCase,
				Note:       "Sensitive or competitive request detected",
				PassReason: "Guardrail kept the sensitive request in policy",
			},
		},
		{
			Name: "high/sensitive-without-guardrail",
			When: sensitive,
			Policy: Policy{
				Outcome:        OutcomeChance,
				Probability:    0.50,
				RequirePremium: true,
				Penalties:      complexCase,
				Note:           "Sensitive or competitive request detected",
				PassReason:     "Premium model declined the sensitive request on its own",
				FailReason:     "Sensitive request answered without a Guardrail",
			},
		},
		{
			Name: "high/security-minimal-context",
			When: func(f Facts) bool { return security(f) && f.Context == ContextMinimal },
			Policy: Policy{
				Outcome:    OutcomeFail,
				Penalties:  complexCase,
				Note:       "Security or account-status request detected",
				FailReason: "Security issue needs richer context than minimal",
			},
		},
		{
			Name: "high/security-with-tool",
			When: func(f Facts) bool { return security(f) && f.HasTool },
			Policy: Policy{
				Outcome:    OutcomePass,
				Penalties:  []Penalty{PenaltyComplexCase, PenaltyTool},
				Note:       "Security or account-status request detected",
				PassReason: "Tool checked the account status directly",
			},
		},
		{
			Name: "high/security-without-tool",
			When: security,
			Policy: Policy{
				Outcome:     OutcomeChance,
				Probability: 0.60,
				Penalties:   complexCase,
				Note:        "Security or account-status request detected",
				PassReason:  "Context covered the security procedure",
				FailReason:  "Could not verify account status without a Tool",
			},
		},
		{
			Name: "high/generic-insufficient-context",
			When: func(f Facts) bool { return generic(f) && f.Context != ContextRichest },
			Policy: Policy{
				Outcome:    OutcomeFail,
				Penalties:  complexCase,
				FailReason: "Complex request needs the richest context",
			},
		},
		{
			Name: "high/generic-without-tool",
			When: func(f Facts) bool { return generic(f) && !f.HasTool },
			Policy: Policy{
				Outcome:     OutcomeChance,
				Probability: 0.60,
				Penalties:   complexCase,
				PassReason:  "Rich context carried the complex request",
				FailReason:  "Complex request stalled without a Tool",
			},
		},
		{
			Name: "high/generic-with-tool-and-framework",
			When: func(f Facts) bool { return generic(f) && f.HasFramework },
			Policy: Policy{
				Outcome:    OutcomePass,
				Penalties:  []Penalty{PenaltyComplexCase, PenaltyTool, PenaltyFramework},
				PassReason: "Framework orchestrated the Tool through a multi-step plan",
			},
		},
		{
			Name: "high/generic-with-tool",
			When: generic,
			Policy: Policy{
				Outcome:     OutcomeChance,
				Probability: 0.50,
				Penalties:   []Penalty{PenaltyComplexCase, PenaltyTool},
				PassReason:  "Tool calls happened to line up without orchestration",
				FailReason:  "Multi-step Tool use broke down without a Framework",
			},
		},
	}
}
