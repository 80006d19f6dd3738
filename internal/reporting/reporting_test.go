package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Bateristico/agent-architect/internal/metrics"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/statistics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLevel() *models.Level {
	return &models.Level{ID: "support-desk", Name: "Support Desk"}
}

func newTestResult() *models.LevelResult {
	return &models.LevelResult{
		LevelID: "support-desk",
		PerScenario: []models.Verdict{
			{ScenarioID: "greeting", Success: true, Reason: "Simple request handled", Cost: 4, Latency: 300, Trace: []string{"low difficulty"}},
			{ScenarioID: "check-balance", Success: false, Reason: "Needs live data | no tool", Cost: 4, Latency: 300, Trace: []string{"data access without a tool"}},
		},
		SubScores: models.SubScores{Accuracy: 10, Efficiency: 15, Practices: 10, Robustness: 8},
		Total:     43,
		Tier:      models.Tier1,
		Feedback:  []string{"This level expects: tool"},
	}
}

var testPlacement = models.Placement{models.RoleContext: "ctx-minimal", models.RoleModel: "model-economy"}

func TestInterpretScore(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{100, "Excellent (90+)"},
		{90, "Excellent (90+)"},
		{89, "Good (70-89)"},
		{70, "Good (70-89)"},
		{69, "Needs Work (50-69)"},
		{50, "Needs Work (50-69)"},
		{49, "Poor (<50)"},
		{0, "Poor (<50)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InterpretScore(tt.total), "total %d", tt.total)
	}
}

func TestInterpretPassRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"all passed", 1.0, "All scenarios passed (100%)"},
		{"most passed", 0.85, "Most scenarios passed (85%)"},
		{"about half", 0.60, "About half the scenarios passed (60%)"},
		{"few passed", 0.30, "Few scenarios passed (30%)"},
		{"none passed", 0.0, "Few scenarios passed (0%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretPassRate(tt.rate))
		})
	}
}

func TestInterpretTierAndFlaky(t *testing.T) {
	assert.Contains(t, InterpretTier(models.Tier1), "not cleared")
	assert.Contains(t, InterpretTier(models.Tier2), "cleared")
	assert.Contains(t, InterpretTier(models.Tier3), "mastered")

	assert.Equal(t, "Outcome is consistent across trials.", InterpretFlaky(false, 1))
	assert.Contains(t, InterpretFlaky(true, 0.4), "40% pass rate")
}

func TestWeakestSubScore(t *testing.T) {
	name, f := WeakestSubScore(models.SubScores{Accuracy: 30, Efficiency: 5, Practices: 30, Robustness: 20})
	assert.Equal(t, "efficiency", name)
	assert.InDelta(t, 0.25, f, 1e-9)

	name, f = WeakestSubScore(models.SubScores{Accuracy: 30, Efficiency: 20, Practices: 30, Robustness: 20})
	assert.Equal(t, "accuracy", name)
	assert.Equal(t, 1.0, f)
}

func TestComposeDisplayTotal(t *testing.T) {
	tests := []struct {
		total int
		bonus float64
		want  int
	}{
		{80, 0, 80},
		{80, 10, 88},
		{80, 25, 100},
		{95, 50, 100},
		{41, 5, 43},
		{0, 40, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComposeDisplayTotal(tt.total, tt.bonus), "%d +%g%%", tt.total, tt.bonus)
	}
}

func TestFormatSummaryReport(t *testing.T) {
	out := FormatSummaryReport(newTestLevel(), newTestResult())

	assert.Contains(t, out, "Support Desk (support-desk)")
	assert.Contains(t, out, "Total:      43, Poor (<50)")
	assert.Contains(t, out, "Tier 1")
	assert.Contains(t, out, "About half the scenarios passed (50%)")
	assert.Contains(t, out, "accuracy is the weakest area (33%")
	assert.Contains(t, out, "✓ greeting")
	assert.Contains(t, out, "✗ check-balance")
}

func newTestEstimation() *orchestration.Estimation {
	return &orchestration.Estimation{
		LevelID:   "support-desk",
		Placement: testPlacement,
		Trials:    10,
		Seed:      7,
		Scenarios: []metrics.ScenarioStats{
			{ScenarioID: "greeting", Trials: 10, Passed: 10, PassRate: 1},
			{ScenarioID: "router-reset", Trials: 10, Passed: 4, PassRate: 0.4, Flaky: true},
		},
		PassRate:    0.7,
		MeanTotal:   61.5,
		MedianTotal: 62,
		StdDevTotal: 3.2,
		TotalCI:     statistics.ConfidenceInterval{Lower: 59.1, Upper: 63.8, Mean: 61.5, ConfidenceLevel: 0.95},
		TierCounts:  map[models.Tier]int{models.Tier1: 3, models.Tier2: 6, models.Tier3: 1},
	}
}

func TestFormatEstimationReport(t *testing.T) {
	out := FormatEstimationReport(newTestLevel(), newTestEstimation())

	assert.Contains(t, out, "Mean Total: 61.5, Needs Work (50-69)")
	assert.Contains(t, out, "Tier 2")
	assert.Contains(t, out, "70% of 10 trials")
	assert.Contains(t, out, "✗ router-reset")
	assert.Contains(t, out, "flaky")
}

func TestConvertToJUnit(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suites := ConvertToJUnit(newTestLevel(), testPlacement, newTestResult(), ts)

	assert.Equal(t, 2, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.InDelta(t, 0.6, suites.Time, 1e-9)
	require.Len(t, suites.TestSuites, 1)

	suite := suites.TestSuites[0]
	assert.Equal(t, "Support Desk (support-desk)", suite.Name)
	assert.Equal(t, "2026-03-01T12:00:00Z", suite.Timestamp)

	props := map[string]string{}
	for _, p := range suite.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "43", props["total"])
	assert.Equal(t, "1", props["tier"])
	assert.Equal(t, "ctx-minimal", props["component.context"])
	assert.NotContains(t, props, "component.tool")

	require.Len(t, suite.TestCases, 2)
	assert.Nil(t, suite.TestCases[0].Failure)
	require.NotNil(t, suite.TestCases[1].Failure)
	assert.Equal(t, "ScenarioFailure", suite.TestCases[1].Failure.Type)
	assert.Equal(t, "Needs live data | no tool", suite.TestCases[1].Failure.Message)
	assert.Contains(t, suite.TestCases[1].Failure.Body, "data access without a tool")
}

func TestWriteJUnitXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, WriteJUnitXML(newTestLevel(), testPlacement, newTestResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 1, parsed.Failures)
	assert.Equal(t, "check-balance", parsed.TestSuites[0].TestCases[1].Name)
}

func TestRunMarkdown(t *testing.T) {
	combos := models.ComboOutcome{
		Achieved:          []models.ComboDefinition{{ID: "lean-machine", Name: "Lean Machine", BonusPercent: 5}},
		TotalBonusPercent: 5,
	}
	md := RunMarkdown(newTestLevel(), testPlacement, newTestResult(), combos)

	assert.Contains(t, md, "# Support Desk (support-desk)")
	assert.Contains(t, md, "- tool: _empty_")
	assert.Contains(t, md, "| **Total** | **43** | 100 |")
	assert.Contains(t, md, "**Lean Machine** +5%")
	assert.Contains(t, md, "displayed total is **45**")
	assert.Contains(t, md, `Needs live data \| no tool`)
	assert.Contains(t, md, "- This level expects: tool")
}

func TestRunMarkdown_NoCombos(t *testing.T) {
	md := RunMarkdown(newTestLevel(), testPlacement, newTestResult(), models.ComboOutcome{})
	assert.NotContains(t, md, "## Combos")
}

func TestEstimationAndComparisonMarkdown(t *testing.T) {
	est := newTestEstimation()
	md := EstimationMarkdown(newTestLevel(), est)
	assert.Contains(t, md, "10 trials")
	assert.Contains(t, md, "95% CI 59.1 to 63.8")
	assert.Contains(t, md, "| 2 | 60.0% |")
	assert.Contains(t, md, "| router-reset | 40.0% | yes |")

	b := newTestEstimation()
	b.MeanTotal = 80
	cmp := &orchestration.Comparison{A: est, B: b, DeltaCI: statistics.ConfidenceInterval{Lower: 15, Upper: 22}, Significant: true, PassRateGain: 0.5}
	md = ComparisonMarkdown(newTestLevel(), cmp)
	assert.Contains(t, md, "Delta +18.5")
	assert.Contains(t, md, "significant")
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("Run <1>", RunMarkdown(newTestLevel(), testPlacement, newTestResult(), models.ComboOutcome{}))
	require.NoError(t, err)

	assert.Contains(t, page, "<title>Run &lt;1&gt;</title>")
	assert.Contains(t, page, "<h1>Support Desk (support-desk)</h1>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>check-balance</td>")
}
