package models

// Verdict is the outcome of evaluating one configuration against one scenario.
type Verdict struct {
	ScenarioID string   `json:"scenario_id"`
	Success    bool     `json:"success"`
	Reason     string   `json:"reason"`
	Cost       int      `json:"cost"`
	Latency    int      `json:"latency"`
	Trace      []string `json:"trace"`
}

// Score bounds for each sub-score.
const (
	MaxAccuracy   = 30
	MaxEfficiency = 20
	MaxPractices  = 30
	MaxRobustness = 20
	MaxTotal      = 100
)

// SubScores holds the four weighted components of a level score.
type SubScores struct {
	Accuracy   int `json:"accuracy"`
	Efficiency int `json:"efficiency"`
	Practices  int `json:"practices"`
	Robustness int `json:"robustness"`
}

// Sum adds the four sub-scores.
func (s SubScores) Sum() int {
	return s.Accuracy + s.Efficiency + s.Practices + s.Robustness
}

// Tier is the 1-3 rating for a level run.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// LevelResult is the aggregated score of a level run.
type LevelResult struct {
	LevelID     string    `json:"level_id"`
	PerScenario []Verdict `json:"per_scenario"`
	SubScores   SubScores `json:"sub_scores"`
	Total       int       `json:"total"`
	Tier        Tier      `json:"tier"`
	Feedback    []string  `json:"feedback"`
}

// Passed counts the successful verdicts.
func (r *LevelResult) Passed() int {
	n := 0
	for _, v := range r.PerScenario {
		if v.Success {
			n++
		}
	}
	return n
}

// PassRate returns the fraction (0-1) of scenarios that succeeded.
func (r *LevelResult) PassRate() float64 {
	if len(r.PerScenario) == 0 {
		return 0
	}
	return float64(r.Passed()) / float64(len(r.PerScenario))
}

// ComboDefinition is a named set of components that earns a bonus when all are placed.
type ComboDefinition struct {
	ID                   string   `yaml:"id" json:"id"`
	Name                 string   `yaml:"name" json:"name"`
	Description          string   `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredComponentIDs []string `yaml:"required_components" json:"required_components"`
	BonusPercent         float64  `yaml:"bonus_percent" json:"bonus_percent"`
}

// ComboOutcome lists the combos a configuration satisfies and their stacked bonus.
type ComboOutcome struct {
	Achieved          []ComboDefinition `json:"achieved"`
	TotalBonusPercent float64           `json:"total_bonus_percent"`
}
