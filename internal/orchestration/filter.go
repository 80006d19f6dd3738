package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/Bateristico/agent-architect/internal/models"
)

// FilterScenarios returns the scenarios whose ID matches at least one glob
// pattern and, when difficulties is non-empty, whose difficulty is listed.
// Empty filters return the input unchanged.
func FilterScenarios(scenarios []models.Scenario, patterns []string, difficulties []models.Difficulty) ([]models.Scenario, error) {
	if len(patterns) == 0 && len(difficulties) == 0 {
		return scenarios, nil
	}

	var matched []models.Scenario
	for _, sc := range scenarios {
		if len(difficulties) > 0 && !hasDifficulty(difficulties, sc.Difficulty) {
			continue
		}
		ok, err := matchesAny(sc.ID, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, sc)
		}
	}
	return matched, nil
}

func matchesAny(id string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		ok, err := filepath.Match(p, id)
		if err != nil {
			return false, fmt.Errorf("invalid scenario filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func hasDifficulty(ds []models.Difficulty, d models.Difficulty) bool {
	for _, want := range ds {
		if want == d {
			return true
		}
	}
	return false
}
