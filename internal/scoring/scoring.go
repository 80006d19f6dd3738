package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/Bateristico/agent-architect/internal/evaluator"
	"github.com/Bateristico/agent-architect/internal/models"
)

// AccuracyBand is how close a level run's pass rate came to the level's threshold.
type AccuracyBand string

const (
	AccuracyLow     AccuracyBand = "Low"
	AccuracyPartial AccuracyBand = "Partial"
	AccuracyNear    AccuracyBand = "Near"
	AccuracyMet     AccuracyBand = "Met"
)

var accuracyRank = map[AccuracyBand]int{
	AccuracyLow:     0,
	AccuracyPartial: 1,
	AccuracyNear:    2,
	AccuracyMet:     3,
}

var accuracyPoints = map[AccuracyBand]int{
	AccuracyLow:     5,
	AccuracyPartial: 10,
	AccuracyNear:    20,
	AccuracyMet:     models.MaxAccuracy,
}

func (a AccuracyBand) String() string {
	return string(a)
}

// AtLeast returns true if a is at or above the target band.
func (a AccuracyBand) AtLeast(target AccuracyBand) bool {
	return accuracyRank[a] >= accuracyRank[target]
}

// Points returns the accuracy sub-score for the band.
func (a AccuracyBand) Points() int {
	return accuracyPoints[a]
}

// BandFor places a pass percentage against a threshold percentage.
func BandFor(passPct, threshold float64) AccuracyBand {
	switch {
	case passPct >= threshold:
		return AccuracyMet
	case passPct >= threshold-10:
		return AccuracyNear
	case passPct >= threshold-20:
		return AccuracyPartial
	default:
		return AccuracyLow
	}
}

// Points for the practices sub-score.
const (
	PracticesRequiredRoles = 10
	PracticesTool          = 7
	PracticesFramework     = 7
	PracticesGuardrail     = 6
)

// Points for the efficiency sub-score.
const (
	EfficiencyBase      = 10
	EfficiencyWithin    = 5
	EfficiencyTolerable = 2
	// EfficiencyTolerance is the multiple of a limit that still earns partial credit.
	EfficiencyTolerance = 1.5
)

// Robustness weights per difficulty; they sum to models.MaxRobustness.
var robustnessWeight = map[models.Difficulty]float64{
	models.DifficultyLow:    8,
	models.DifficultyMedium: 7,
	models.DifficultyHigh:   5,
}

// Evaluator produces a verdict for one scenario.
type Evaluator interface {
	Evaluate(cfg models.Configuration, sc models.Scenario, src evaluator.Source) models.Verdict
}

// Aggregator runs every scenario in a level and turns the verdicts into a score.
type Aggregator struct {
	eval Evaluator
}

// NewAggregator creates an aggregator. A nil evaluator uses evaluator.New().
func NewAggregator(eval Evaluator) *Aggregator {
	if eval == nil {
		eval = evaluator.New()
	}
	return &Aggregator{eval: eval}
}

// RunLevel evaluates cfg against every scenario in order and scores the run.
// It never fails: an incomplete configuration yields failing verdicts and a low score.
func (a *Aggregator) RunLevel(cfg models.Configuration, level *models.Level, src evaluator.Source) models.LevelResult {
	verdicts := make([]models.Verdict, 0, len(level.Scenarios))
	for _, sc := range level.Scenarios {
		verdicts = append(verdicts, a.eval.Evaluate(cfg, sc, src))
	}
	return Score(cfg, level, verdicts)
}

// Score aggregates verdicts that were produced in level.Scenarios order.
func Score(cfg models.Configuration, level *models.Level, verdicts []models.Verdict) models.LevelResult {
	result := models.LevelResult{
		LevelID:     level.ID,
		PerScenario: verdicts,
	}

	var fb []string
	result.SubScores.Accuracy = accuracy(level, verdicts, &fb)
	result.SubScores.Efficiency = efficiency(level, verdicts, &fb)
	result.SubScores.Practices = practices(cfg, level, &fb)
	result.SubScores.Robustness = robustness(level, verdicts, &fb)

	result.Total = min(result.SubScores.Sum(), models.MaxTotal)
	result.Tier = TierFor(result.Total, level.TierThresholds)
	result.Feedback = fb
	return result
}

// TierFor maps a total score to a tier using the level's cutoffs.
func TierFor(total int, t models.TierThresholds) models.Tier {
	t = t.WithDefaults()
	switch {
	case total >= t.Tier3:
		return models.Tier3
	case total >= t.Tier2:
		return models.Tier2
	default:
		return models.Tier1
	}
}

func accuracy(level *models.Level, verdicts []models.Verdict, fb *[]string) int {
	passed := 0
	for _, v := range verdicts {
		if v.Success {
			passed++
		}
	}
	pct := 0.0
	if len(verdicts) > 0 {
		pct = float64(passed) / float64(len(verdicts)) * 100
	}

	threshold := level.SuccessCriteria.AccuracyThreshold
	band := BandFor(pct, threshold)
	switch band {
	case AccuracyMet:
		*fb = append(*fb, fmt.Sprintf("Accuracy target met: %d/%d scenarios passed (%.0f%%, target %.0f%%)", passed, len(verdicts), pct, threshold))
	case AccuracyNear:
		*fb = append(*fb, fmt.Sprintf("Accuracy close to target: %.0f%% passed, target %.0f%%", pct, threshold))
	case AccuracyPartial:
		*fb = append(*fb, fmt.Sprintf("Accuracy below target: %.0f%% passed, target %.0f%%", pct, threshold))
	default:
		*fb = append(*fb, fmt.Sprintf("Accuracy well below target: %.0f%% passed, target %.0f%%", pct, threshold))
	}
	return band.Points()
}

func efficiency(level *models.Level, verdicts []models.Verdict, fb *[]string) int {
	score := EfficiencyBase
	crit := level.SuccessCriteria

	if crit.MaxLatency != nil {
		mean := meanOf(verdicts, func(v models.Verdict) int { return v.Latency })
		pts := withinLimit(mean, *crit.MaxLatency)
		score += pts
		*fb = append(*fb, limitFeedback("latency", "ms", mean, *crit.MaxLatency, pts))
	}
	if crit.MaxCost != nil {
		mean := meanOf(verdicts, func(v models.Verdict) int { return v.Cost })
		pts := withinLimit(mean, *crit.MaxCost)
		score += pts
		*fb = append(*fb, limitFeedback("cost", "", mean, *crit.MaxCost, pts))
	}
	return min(score, models.MaxEfficiency)
}

func withinLimit(mean float64, limit int) int {
	switch {
	case mean <= float64(limit):
		return EfficiencyWithin
	case mean <= EfficiencyTolerance*float64(limit):
		return EfficiencyTolerable
	default:
		return 0
	}
}

func limitFeedback(dim, unit string, mean float64, limit, pts int) string {
	switch pts {
	case EfficiencyWithin:
		return fmt.Sprintf("Average %s %.0f%s is within the %d%s budget", dim, mean, unit, limit, unit)
	case EfficiencyTolerable:
		return fmt.Sprintf("Average %s %.0f%s is slightly over the %d%s budget", dim, mean, unit, limit, unit)
	default:
		return fmt.Sprintf("Average %s %.0f%s is far over the %d%s budget", dim, mean, unit, limit, unit)
	}
}

func meanOf(verdicts []models.Verdict, f func(models.Verdict) int) float64 {
	if len(verdicts) == 0 {
		return 0
	}
	sum := 0
	for _, v := range verdicts {
		sum += f(v)
	}
	return float64(sum) / float64(len(verdicts))
}

func practices(cfg models.Configuration, level *models.Level, fb *[]string) int {
	score := 0

	if cfg.Has(models.RoleContext) && cfg.Has(models.RoleModel) {
		score += PracticesRequiredRoles
		*fb = append(*fb, "Context and Model are both in place")
	} else {
		*fb = append(*fb, "Every agent needs a Context and a Model")
	}

	needsTool := level.HasDifficulty(models.DifficultyMedium, models.DifficultyHigh)
	switch {
	case cfg.Has(models.RoleTool) && needsTool:
		score += PracticesTool
		*fb = append(*fb, "Tool gives the agent access to live data")
	case cfg.Has(models.RoleTool):
		*fb = append(*fb, "Tool is unnecessary for a level of simple requests")
	case needsTool:
		*fb = append(*fb, "Consider a Tool for requests that need live data")
	}

	if cfg.Has(models.RoleFramework) {
		score += PracticesFramework
		*fb = append(*fb, "Framework adds structured multi-step reasoning")
	}

	if cfg.Has(models.RoleGuardrail) {
		score += PracticesGuardrail
		*fb = append(*fb, "Guardrail keeps responses safe and on policy")
	} else {
		*fb = append(*fb, "Consider adding a Guardrail to catch unsafe or failed responses")
	}

	var unfilled []string
	for _, r := range cfg.MissingRoles(level.RequiredRoles) {
		unfilled = append(unfilled, string(r))
	}
	if len(unfilled) > 0 {
		*fb = append(*fb, fmt.Sprintf("This level expects: %s", strings.Join(unfilled, ", ")))
	}

	return min(score, models.MaxPractices)
}

// PassRateByDifficulty returns the pass rate (0-1) of each difficulty group.
// An empty group counts as fully passing.
func PassRateByDifficulty(level *models.Level, verdicts []models.Verdict) map[models.Difficulty]float64 {
	total := map[models.Difficulty]int{}
	passed := map[models.Difficulty]int{}
	for i, sc := range level.Scenarios {
		if i >= len(verdicts) {
			break
		}
		total[sc.Difficulty]++
		if verdicts[i].Success {
			passed[sc.Difficulty]++
		}
	}

	rates := make(map[models.Difficulty]float64, len(robustnessWeight))
	for d := range robustnessWeight {
		if total[d] == 0 {
			rates[d] = 1
			continue
		}
		rates[d] = float64(passed[d]) / float64(total[d])
	}
	return rates
}

func robustness(level *models.Level, verdicts []models.Verdict, fb *[]string) int {
	rates := PassRateByDifficulty(level, verdicts)

	score := 0
	for d, w := range robustnessWeight {
		score += int(math.Floor(rates[d] * w))
	}

	switch {
	case rates[models.DifficultyLow] < 1:
		*fb = append(*fb, "Failing simple requests: strengthen the basics before adding components")
	case rates[models.DifficultyHigh] < 0.3:
		*fb = append(*fb, fmt.Sprintf("Struggles with complex requests (%.0f%% of hard scenarios passed)", rates[models.DifficultyHigh]*100))
	default:
		*fb = append(*fb, "Performs consistently across difficulty levels")
	}

	return min(score, models.MaxRobustness)
}
