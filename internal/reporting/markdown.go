package reporting

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
)

// RunMarkdown renders a level run as a Markdown document. The combo bonus is
// composed into a display total here and nowhere else.
func RunMarkdown(level *models.Level, p models.Placement, result *models.LevelResult, combos models.ComboOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", levelName(level))
	writePlacement(&b, p)

	b.WriteString("## Score\n\n")
	b.WriteString("| Sub-score | Points | Max |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Accuracy | %d | %d |\n", result.SubScores.Accuracy, models.MaxAccuracy)
	fmt.Fprintf(&b, "| Efficiency | %d | %d |\n", result.SubScores.Efficiency, models.MaxEfficiency)
	fmt.Fprintf(&b, "| Practices | %d | %d |\n", result.SubScores.Practices, models.MaxPractices)
	fmt.Fprintf(&b, "| Robustness | %d | %d |\n", result.SubScores.Robustness, models.MaxRobustness)
	fmt.Fprintf(&b, "| **Total** | **%d** | %d |\n\n", result.Total, models.MaxTotal)
	fmt.Fprintf(&b, "%s\n\n", InterpretTier(result.Tier))

	if len(combos.Achieved) > 0 {
		b.WriteString("## Combos\n\n")
		for _, c := range combos.Achieved {
			fmt.Fprintf(&b, "- **%s** +%g%%\n", c.Name, c.BonusPercent)
		}
		fmt.Fprintf(&b, "\nWith a +%g%% bonus the displayed total is **%d**.\n\n",
			combos.TotalBonusPercent, ComposeDisplayTotal(result.Total, combos.TotalBonusPercent))
	}

	b.WriteString("## Scenarios\n\n")
	b.WriteString("| Scenario | Result | Cost | Latency (ms) | Reason |\n|---|---|---:|---:|---|\n")
	for _, v := range result.PerScenario {
		status := "pass"
		if !v.Success {
			status = "fail"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n", v.ScenarioID, status, v.Cost, v.Latency, escapeCell(v.Reason))
	}

	if len(result.Feedback) > 0 {
		b.WriteString("\n## Feedback\n\n")
		for _, f := range result.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

// EstimationMarkdown renders a Monte Carlo estimation as Markdown.
func EstimationMarkdown(level *models.Level, est *orchestration.Estimation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %d trials\n\n", levelName(level), est.Trials)
	writePlacement(&b, est.Placement)

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Mean: %.1f (%.0f%% CI %.1f to %.1f)\n", est.MeanTotal, est.TotalCI.ConfidenceLevel*100, est.TotalCI.Lower, est.TotalCI.Upper)
	fmt.Fprintf(&b, "- Median: %.1f\n", est.MedianTotal)
	fmt.Fprintf(&b, "- Std dev: %.2f\n", est.StdDevTotal)
	fmt.Fprintf(&b, "- Range: %.0f to %.0f (p10 %.0f, p90 %.0f)\n", est.TotalSpread.Min, est.TotalSpread.Max, est.TotalSpread.P10, est.TotalSpread.P90)
	fmt.Fprintf(&b, "- Seed: %d\n\n", est.Seed)

	b.WriteString("| Tier | Probability |\n|---|---:|\n")
	for _, t := range []models.Tier{models.Tier3, models.Tier2, models.Tier1} {
		fmt.Fprintf(&b, "| %d | %.1f%% |\n", t, est.TierProbability(t)*100)
	}

	b.WriteString("\n## Scenarios\n\n")
	b.WriteString("| Scenario | Pass rate | Flaky | Mean cost | Mean latency (ms) |\n|---|---:|---|---:|---:|\n")
	for _, s := range est.Scenarios {
		flaky := ""
		if s.Flaky {
			flaky = "yes"
		}
		fmt.Fprintf(&b, "| %s | %.1f%% | %s | %.1f | %.0f |\n", s.ScenarioID, s.PassRate*100, flaky, s.MeanCost, s.MeanLatency)
	}
	return b.String()
}

// ComparisonMarkdown renders a side-by-side comparison of two configurations.
func ComparisonMarkdown(level *models.Level, cmp *orchestration.Comparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: A vs B\n\n", levelName(level))
	b.WriteString("| | A | B |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Mean total | %.1f | %.1f |\n", cmp.A.MeanTotal, cmp.B.MeanTotal)
	fmt.Fprintf(&b, "| Pass rate | %.1f%% | %.1f%% |\n", cmp.A.PassRate*100, cmp.B.PassRate*100)
	fmt.Fprintf(&b, "| Likely tier | %d | %d |\n\n", cmp.A.ModalTier(), cmp.B.ModalTier())

	verdict := "not significant"
	if cmp.Significant {
		verdict = "significant"
	}
	fmt.Fprintf(&b, "Delta %+.1f (CI %.1f to %.1f), %s. Normalized pass-rate gain %.2f.\n",
		cmp.Delta(), cmp.DeltaCI.Lower, cmp.DeltaCI.Upper, verdict, cmp.PassRateGain)
	return b.String()
}

// RenderHTML converts Markdown to a standalone HTML page.
func RenderHTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func writePlacement(b *strings.Builder, p models.Placement) {
	if len(p) == 0 {
		return
	}
	b.WriteString("## Configuration\n\n")
	for _, role := range models.AllRoles {
		id := p[role]
		if id == "" {
			id = "_empty_"
		}
		fmt.Fprintf(b, "- %s: %s\n", role, id)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
