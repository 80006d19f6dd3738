package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Difficulty is the tier of a scenario.
type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

// ParseDifficulty converts a string value to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return DifficultyLow, nil
	case "medium":
		return DifficultyMedium, nil
	case "high":
		return DifficultyHigh, nil
	default:
		return "", fmt.Errorf("invalid difficulty %q: must be low, medium, or high", s)
	}
}

// Scenario is a single test case in a level.
type Scenario struct {
	ID               string     `yaml:"id" json:"id" mapstructure:"id"`
	Input            string     `yaml:"input" json:"input" mapstructure:"input"`
	ExpectedBehavior string     `yaml:"expected_behavior,omitempty" json:"expected_behavior,omitempty" mapstructure:"expected_behavior"`
	Difficulty       Difficulty `yaml:"difficulty" json:"difficulty" mapstructure:"difficulty"`
	// Tags are optional hints for tag-based classification.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty" mapstructure:"tags"`
}

// SuccessCriteria holds the thresholds a level is judged against.
type SuccessCriteria struct {
	// AccuracyThreshold is a pass-rate percentage (0-100).
	AccuracyThreshold float64 `yaml:"accuracy_threshold" json:"accuracy_threshold"`
	MaxLatency        *int    `yaml:"max_latency,omitempty" json:"max_latency,omitempty"`
	MaxCost           *int    `yaml:"max_cost,omitempty" json:"max_cost,omitempty"`
}

// Default tier cutoffs used when a level leaves them unset.
const (
	DefaultTier2Threshold = 60
	DefaultTier3Threshold = 80
)

// TierThresholds are ascending total-score cutoffs.
type TierThresholds struct {
	Tier1 int `yaml:"tier1,omitempty" json:"tier1,omitempty"`
	Tier2 int `yaml:"tier2,omitempty" json:"tier2,omitempty"`
	Tier3 int `yaml:"tier3,omitempty" json:"tier3,omitempty"`
}

// WithDefaults fills unset tier cutoffs.
func (t TierThresholds) WithDefaults() TierThresholds {
	if t.Tier2 <= 0 {
		t.Tier2 = DefaultTier2Threshold
	}
	if t.Tier3 <= 0 {
		t.Tier3 = DefaultTier3Threshold
	}
	return t
}

// Level is an ordered battery of scenarios plus the thresholds used to score it.
type Level struct {
	ID              string          `yaml:"id" json:"id"`
	Name            string          `yaml:"name,omitempty" json:"name,omitempty"`
	Description     string          `yaml:"description,omitempty" json:"description,omitempty"`
	Scenarios       []Scenario      `yaml:"scenarios" json:"scenarios"`
	SuccessCriteria SuccessCriteria `yaml:"success_criteria" json:"success_criteria"`
	TierThresholds  TierThresholds  `yaml:"tier_thresholds,omitempty" json:"tier_thresholds,omitempty"`
	RequiredRoles   []Role          `yaml:"required_roles,omitempty" json:"required_roles,omitempty"`
}

// HasDifficulty reports whether any scenario in the level is one of the given difficulties.
func (l *Level) HasDifficulty(ds ...Difficulty) bool {
	for _, sc := range l.Scenarios {
		for _, d := range ds {
			if sc.Difficulty == d {
				return true
			}
		}
	}
	return false
}

// LoadLevel loads a level from a YAML file
func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var level Level
	if err := yaml.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("parsing level %s: %w", path, err)
	}

	if err := level.Validate(); err != nil {
		return nil, fmt.Errorf("level %s: %w", path, err)
	}

	return &level, nil
}

// Validate checks that the level is well-formed
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("level id is required")
	}
	if l.SuccessCriteria.AccuracyThreshold < 0 || l.SuccessCriteria.AccuracyThreshold > 100 {
		return fmt.Errorf("accuracy_threshold must be between 0 and 100, got %v", l.SuccessCriteria.AccuracyThreshold)
	}
	seen := make(map[string]bool, len(l.Scenarios))
	for i, sc := range l.Scenarios {
		if sc.ID == "" {
			return fmt.Errorf("scenario %d: id is required", i+1)
		}
		if seen[sc.ID] {
			return fmt.Errorf("duplicate scenario id %q", sc.ID)
		}
		seen[sc.ID] = true
		if _, err := ParseDifficulty(string(sc.Difficulty)); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
	}
	t := l.TierThresholds.WithDefaults()
	if t.Tier2 > t.Tier3 {
		return fmt.Errorf("tier thresholds must be ascending, got tier2=%d tier3=%d", t.Tier2, t.Tier3)
	}
	for _, r := range l.RequiredRoles {
		if _, err := ParseRole(string(r)); err != nil {
			return err
		}
	}
	return nil
}
