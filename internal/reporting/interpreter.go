package reporting

import (
	"fmt"
	"strings"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
)

// InterpretScore returns a plain-language label for a level total (0-100).
func InterpretScore(total int) string {
	switch {
	case total >= 90:
		return "Excellent (90+)"
	case total >= 70:
		return "Good (70-89)"
	case total >= 50:
		return "Needs Work (50-69)"
	default:
		return "Poor (<50)"
	}
}

// InterpretTier explains what a tier means for the player.
func InterpretTier(t models.Tier) string {
	switch t {
	case models.Tier3:
		return "Tier 3: mastered, the agent handles this level with room to spare"
	case models.Tier2:
		return "Tier 2: cleared, but there is headroom left"
	default:
		return "Tier 1: not cleared yet"
	}
}

// InterpretPassRate returns a human-readable explanation of a pass rate (0-1).
func InterpretPassRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All scenarios passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most scenarios passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the scenarios passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few scenarios passed (%.0f%%)", pct)
	}
}

// InterpretFlaky explains whether a scenario's outcome depends on luck.
func InterpretFlaky(flaky bool, passRate float64) string {
	if !flaky {
		return "Outcome is consistent across trials."
	}
	return fmt.Sprintf("Outcome is flaky: the same scenario passes and fails across trials (%.0f%% pass rate). A guardrail or a stronger model usually steadies it.", passRate*100)
}

// WeakestSubScore names the sub-score furthest below its maximum, as a
// fraction of that maximum. Ties go to the earlier of accuracy, efficiency,
// practices, robustness.
func WeakestSubScore(s models.SubScores) (name string, fraction float64) {
	parts := []struct {
		name string
		got  int
		max  int
	}{
		{"accuracy", s.Accuracy, models.MaxAccuracy},
		{"efficiency", s.Efficiency, models.MaxEfficiency},
		{"practices", s.Practices, models.MaxPractices},
		{"robustness", s.Robustness, models.MaxRobustness},
	}
	fraction = 2
	for _, p := range parts {
		f := float64(p.got) / float64(p.max)
		if f < fraction {
			name, fraction = p.name, f
		}
	}
	return name, fraction
}

// ComposeDisplayTotal applies a combo bonus to a level total for display.
// The result is rounded and capped at 100; the stored total is unchanged.
func ComposeDisplayTotal(total int, bonusPercent float64) int {
	v := float64(total) * (1 + bonusPercent/100)
	d := int(v + 0.5)
	if d > models.MaxTotal {
		return models.MaxTotal
	}
	if d < 0 {
		return 0
	}
	return d
}

// FormatSummaryReport produces a plain-language report for a single level run.
func FormatSummaryReport(level *models.Level, result *models.LevelResult) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Level:      %s\n", levelName(level))
	fmt.Fprintf(&b, "Total:      %d, %s\n", result.Total, InterpretScore(result.Total))
	fmt.Fprintf(&b, "Tier:       %s\n", InterpretTier(result.Tier))
	fmt.Fprintf(&b, "Pass Rate:  %s\n", InterpretPassRate(result.PassRate()))

	if name, f := WeakestSubScore(result.SubScores); f < 1 {
		fmt.Fprintf(&b, "Focus:      %s is the weakest area (%.0f%% of its maximum)\n", name, f*100)
	}

	if len(result.PerScenario) > 0 {
		b.WriteString("\nPer-Scenario:\n")
		for _, v := range result.PerScenario {
			icon := "✓"
			if !v.Success {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", icon, v.ScenarioID, v.Reason)
		}
	}
	return b.String()
}

// FormatEstimationReport produces a plain-language report for a Monte Carlo estimation.
func FormatEstimationReport(level *models.Level, est *orchestration.Estimation) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Level:      %s\n", levelName(level))
	fmt.Fprintf(&b, "Mean Total: %.1f, %s\n", est.MeanTotal, InterpretScore(int(est.MeanTotal+0.5)))
	fmt.Fprintf(&b, "Likely:     %s\n", InterpretTier(est.ModalTier()))
	fmt.Fprintf(&b, "Clear Odds: %.0f%% of %d trials reached tier 2 or better\n",
		(est.TierProbability(models.Tier2)+est.TierProbability(models.Tier3))*100, est.Trials)
	fmt.Fprintf(&b, "Pass Rate:  %s\n", InterpretPassRate(est.PassRate))

	if len(est.Scenarios) > 0 {
		b.WriteString("\nPer-Scenario:\n")
		for _, s := range est.Scenarios {
			icon := "✓"
			if s.PassRate < 1 {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", icon, s.ScenarioID, InterpretPassRate(s.PassRate))
			if s.Flaky {
				fmt.Fprintf(&b, "    %s\n", InterpretFlaky(true, s.PassRate))
			}
		}
	}
	return b.String()
}

func levelName(l *models.Level) string {
	if l == nil {
		return ""
	}
	if l.Name != "" && l.Name != l.ID {
		return fmt.Sprintf("%s (%s)", l.Name, l.ID)
	}
	return l.ID
}
