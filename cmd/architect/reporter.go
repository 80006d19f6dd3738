package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/reporting"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	passText = color.New(color.FgGreen).SprintFunc()
	failText = color.New(color.FgRed).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	boldText = color.New(color.Bold).SprintFunc()
)

const (
	colScenario = 22
	colStatus   = 6
	colCost     = 6
	colLatency  = 9
)

// statusLabel pads before coloring so escape codes do not count toward width.
func statusLabel(ok bool, width int) string {
	if ok {
		return passText(padRight("PASS", width))
	}
	return failText(padRight("FAIL", width))
}

func tierLabel(t models.Tier) string {
	s := fmt.Sprintf("Tier %d", t)
	switch t {
	case models.Tier3:
		return passText(s)
	case models.Tier2:
		return warnText(s)
	default:
		return failText(s)
	}
}

// printPlacement lists the placed component per role.
func printPlacement(w io.Writer, p models.Placement) {
	printf := writerf(w)
	for _, role := range models.AllRoles {
		id := p[role]
		if id == "" {
			id = "-"
		}
		printf("  %s %s\n", padRight(string(role), 10), id)
	}
}

// printRunTable writes a single run: verdict per scenario, then sub-scores.
func printRunTable(w io.Writer, level *models.Level, p models.Placement, result *models.LevelResult, outcome models.ComboOutcome) {
	printf := writerf(w)
	printf("%s %s (%s)\n\n", boldText("Level"), level.Name, level.ID)
	printPlacement(w, p)
	printf("\n")

	totalWidth := colScenario + colStatus + colCost + colLatency + 12
	printf("%s %s %s %s %s\n",
		padRight("Scenario", colScenario),
		padRight("Result", colStatus),
		padRight("Cost", colCost),
		padRight("Latency", colLatency),
		"Reason")
	printf("%s\n", strings.Repeat("─", totalWidth))
	for _, v := range result.PerScenario {
		printf("%s %s %s %s %s\n",
			padRight(truncateName(v.ScenarioID, colScenario), colScenario),
			statusLabel(v.Success, colStatus),
			padRight(fmt.Sprintf("%d", v.Cost), colCost),
			padRight(fmt.Sprintf("%dms", v.Latency), colLatency),
			v.Reason)
	}
	printf("\n")

	s := result.SubScores
	printf("Accuracy   %2d/%d\n", s.Accuracy, models.MaxAccuracy)
	printf("Efficiency %2d/%d\n", s.Efficiency, models.MaxEfficiency)
	printf("Practices  %2d/%d\n", s.Practices, models.MaxPractices)
	printf("Robustness %2d/%d\n", s.Robustness, models.MaxRobustness)
	printf("Total      %d  %s\n", result.Total, tierLabel(result.Tier))

	if len(outcome.Achieved) > 0 {
		names := make([]string, 0, len(outcome.Achieved))
		for _, c := range outcome.Achieved {
			names = append(names, fmt.Sprintf("%s (+%g%%)", c.Name, c.BonusPercent))
		}
		printf("Combos     %s\n", strings.Join(names, ", "))
		printf("Displayed  %d\n", reporting.ComposeDisplayTotal(result.Total, outcome.TotalBonusPercent))
	}

	if len(result.Feedback) > 0 {
		printf("\nFeedback:\n")
		for _, f := range result.Feedback {
			printf("  - %s\n", f)
		}
	}
}

// printEstimationTable writes the per-scenario pass rates and the score distribution.
func printEstimationTable(w io.Writer, level *models.Level, est *orchestration.Estimation) {
	printf := writerf(w)
	cached := ""
	if est.Cached {
		cached = " (cached)"
	}
	printf("%s %s (%s): %d trials, seed %d%s\n\n", boldText("Estimate"), level.Name, level.ID, est.Trials, est.Seed, cached)

	const colRate = 10
	printf("%s %s %s %s\n",
		padRight("Scenario", colScenario),
		padRight("Pass rate", colRate),
		padRight("Latency", colLatency),
		"Flaky")
	printf("%s\n", strings.Repeat("─", colScenario+colRate+colLatency+8))
	for _, s := range est.Scenarios {
		rate := padRight(fmt.Sprintf("%.0f%%", s.PassRate*100), colRate)
		switch {
		case s.PassRate >= 1:
			rate = passText(rate)
		case s.PassRate <= 0:
			rate = failText(rate)
		}
		flaky := ""
		if s.Flaky {
			flaky = warnText("yes")
		}
		printf("%s %s %s %s\n",
			padRight(truncateName(s.ScenarioID, colScenario), colScenario),
			rate,
			padRight(fmt.Sprintf("%.0fms", s.MeanLatency), colLatency),
			flaky)
	}
	printf("\n")

	ci := est.TotalCI
	printf("Mean total  %.1f (%.0f%% CI %.1f-%.1f, sd %.1f)\n", est.MeanTotal, ci.ConfidenceLevel*100, ci.Lower, ci.Upper, est.StdDevTotal)
	sp := est.TotalSpread
	printf("Range       %.0f-%.0f (p10 %.0f, median %.0f, p90 %.0f)\n", sp.Min, sp.Max, sp.P10, sp.Median, sp.P90)
	printf("Pass rate   %.1f%%\n", est.PassRate*100)
	for _, t := range []models.Tier{models.Tier1, models.Tier2, models.Tier3} {
		printf("%s      %5.1f%%\n", tierLabel(t), est.TierProbability(t)*100)
	}
}

// printComparison writes A against B.
func printComparison(w io.Writer, level *models.Level, cmp *orchestration.Comparison) {
	printf := writerf(w)
	printf("%s %s (%s): %d trials, seed %d\n\n", boldText("Compare"), level.Name, level.ID, cmp.A.Trials, cmp.A.Seed)
	printf("%s %s %s\n", padRight("", 12), padRight("A", 10), "B")
	printf("%s %s %.1f\n", padRight("Mean total", 12), padRight(fmt.Sprintf("%.1f", cmp.A.MeanTotal), 10), cmp.B.MeanTotal)
	printf("%s %s %.1f%%\n", padRight("Pass rate", 12), padRight(fmt.Sprintf("%.1f%%", cmp.A.PassRate*100), 10), cmp.B.PassRate*100)
	printf("%s %s %d\n", padRight("Modal tier", 12), padRight(fmt.Sprintf("%d", cmp.A.ModalTier()), 10), cmp.B.ModalTier())
	printf("\n")

	verdict := warnText("not significant")
	if cmp.Significant {
		if cmp.Delta() > 0 {
			verdict = passText("B is better")
		} else {
			verdict = failText("A is better")
		}
	}
	printf("Delta %+.1f (%.0f%% CI %+.1f to %+.1f): %s\n", cmp.Delta(), cmp.DeltaCI.ConfidenceLevel*100, cmp.DeltaCI.Lower, cmp.DeltaCI.Upper, verdict)
	printf("Pass rate gain %.2f\n", cmp.PassRateGain)
}

// writerf returns a printf bound to w that ignores write errors.
func writerf(w io.Writer) func(format string, a ...any) {
	return func(format string, a ...any) {
		fmt.Fprintf(w, format, a...) //nolint:errcheck
	}
}

func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
