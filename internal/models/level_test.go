package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_LoadFromYAML(t *testing.T) {
	tempDir := t.TempDir()
	yamlContent := `id: night-shift
name: Night Shift
required_roles: [tool]
success_criteria:
  accuracy_threshold: 70
  max_latency: 1500
tier_thresholds:
  tier2: 50
scenarios:
  - id: hello
    input: Hi
    difficulty: low
  - id: outage
    input: Is the service down?
    difficulty: high
    tags: [urgent]
`
	path := filepath.Join(tempDir, "level.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write level file: %v", err)
	}

	level, err := LoadLevel(path)
	if err != nil {
		t.Fatalf("Failed to load level: %v", err)
	}

	if level.ID != "night-shift" {
		t.Errorf("Expected ID 'night-shift', got '%s'", level.ID)
	}
	if len(level.Scenarios) != 2 {
		t.Fatalf("Expected 2 scenarios, got %d", len(level.Scenarios))
	}
	if level.SuccessCriteria.MaxLatency == nil || *level.SuccessCriteria.MaxLatency != 1500 {
		t.Errorf("Expected max_latency 1500, got %v", level.SuccessCriteria.MaxLatency)
	}
	if level.SuccessCriteria.MaxCost != nil {
		t.Errorf("Expected no max_cost, got %d", *level.SuccessCriteria.MaxCost)
	}
	if got := level.TierThresholds.WithDefaults(); got.Tier2 != 50 || got.Tier3 != DefaultTier3Threshold {
		t.Errorf("Expected tier thresholds 50/%d, got %d/%d", DefaultTier3Threshold, got.Tier2, got.Tier3)
	}
	if !level.HasDifficulty(DifficultyHigh) {
		t.Error("Expected level to contain a high-difficulty scenario")
	}
	if level.HasDifficulty(DifficultyMedium) {
		t.Error("Expected level to contain no medium-difficulty scenario")
	}
}

func TestLevel_Validate(t *testing.T) {
	valid := func() Level {
		return Level{
			ID:              "l",
			SuccessCriteria: SuccessCriteria{AccuracyThreshold: 50},
			Scenarios:       []Scenario{{ID: "a", Input: "x", Difficulty: DifficultyLow}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Level)
		msg    string
	}{
		{"valid", func(*Level) {}, ""},
		{"missing id", func(l *Level) { l.ID = "" }, "level id is required"},
		{"threshold above 100", func(l *Level) { l.SuccessCriteria.AccuracyThreshold = 101 }, "accuracy_threshold"},
		{"negative threshold", func(l *Level) { l.SuccessCriteria.AccuracyThreshold = -1 }, "accuracy_threshold"},
		{"scenario without id", func(l *Level) { l.Scenarios[0].ID = "" }, "id is required"},
		{"duplicate scenario", func(l *Level) { l.Scenarios = append(l.Scenarios, l.Scenarios[0]) }, "duplicate scenario id"},
		{"bad difficulty", func(l *Level) { l.Scenarios[0].Difficulty = "extreme" }, "invalid difficulty"},
		{"descending tiers", func(l *Level) { l.TierThresholds = TierThresholds{Tier2: 90, Tier3: 70} }, "ascending"},
		{"bad required role", func(l *Level) { l.RequiredRoles = []Role{"sidekick"} }, "invalid role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.mutate(&l)
			err := l.Validate()
			if tt.msg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLevelResult_PassRate(t *testing.T) {
	r := &LevelResult{PerScenario: []Verdict{{Success: true}, {Success: false}, {Success: true}, {Success: true}}}
	assert.Equal(t, 3, r.Passed())
	assert.InDelta(t, 0.75, r.PassRate(), 1e-9)
	assert.Zero(t, (&LevelResult{}).PassRate())
	assert.Equal(t, 100, SubScores{Accuracy: 30, Efficiency: 20, Practices: 30, Robustness: 20}.Sum())
}
