// Package combos detects named component combinations in a configuration.
package combos

import "github.com/Bateristico/agent-architect/internal/models"

// Achieved returns, in catalog order, every combo whose required components
// are all present in placedIDs.
func Achieved(placedIDs []string, catalog []models.ComboDefinition) []models.ComboDefinition {
	placed := toSet(placedIDs)
	var out []models.ComboDefinition
	for _, c := range catalog {
		if satisfied(c, placed) {
			out = append(out, c)
		}
	}
	return out
}

// TotalBonus sums the bonus percentages. Bonuses stack and are not capped.
func TotalBonus(achieved []models.ComboDefinition) float64 {
	total := 0.0
	for _, c := range achieved {
		total += c.BonusPercent
	}
	return total
}

// WouldComplete reports the first combo, in catalog order, that placing
// candidateID would newly complete. Combos already satisfied are never returned.
func WouldComplete(candidateID string, placedIDs []string, catalog []models.ComboDefinition) (models.ComboDefinition, bool) {
	before := toSet(placedIDs)
	after := toSet(placedIDs)
	after[candidateID] = struct{}{}

	for _, c := range catalog {
		if !satisfied(c, before) && satisfied(c, after) {
			return c, true
		}
	}
	return models.ComboDefinition{}, false
}

// Detect returns the achieved combos and their stacked bonus.
func Detect(placedIDs []string, catalog []models.ComboDefinition) models.ComboOutcome {
	achieved := Achieved(placedIDs, catalog)
	return models.ComboOutcome{
		Achieved:          achieved,
		TotalBonusPercent: TotalBonus(achieved),
	}
}

// Missing returns the required components of c that are not in placedIDs.
func Missing(c models.ComboDefinition, placedIDs []string) []string {
	placed := toSet(placedIDs)
	var out []string
	for _, id := range c.RequiredComponentIDs {
		if _, ok := placed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func satisfied(c models.ComboDefinition, placed map[string]struct{}) bool {
	for _, id := range c.RequiredComponentIDs {
		if _, ok := placed[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids)+1)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
