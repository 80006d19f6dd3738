package dataset

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/Bateristico/agent-architect/internal/models"
)

// TagSeparator splits the tags column into individual tags.
const TagSeparator = ";"

// LoadScenarios reads scenarios from a CSV file with the columns id, input,
// difficulty and optionally expected_behavior and tags. A blank id becomes
// "row-N". Unknown columns are ignored.
func LoadScenarios(path string) ([]models.Scenario, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return DecodeScenarios(rows)
}

// DecodeScenarios converts CSV rows into validated scenarios.
func DecodeScenarios(rows []Row) ([]models.Scenario, error) {
	scenarios := make([]models.Scenario, 0, len(rows))
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		var sc models.Scenario
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(TagSeparator),
			WeaklyTypedInput: true,
			Result:           &sc,
		})
		if err != nil {
			return nil, fmt.Errorf("creating decoder: %w", err)
		}
		if err := dec.Decode(map[string]string(row)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		sc.ID = strings.TrimSpace(sc.ID)
		if sc.ID == "" {
			sc.ID = fmt.Sprintf("row-%d", i+1)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("row %d: duplicate scenario id %q", i+1, sc.ID)
		}
		seen[sc.ID] = true

		if strings.TrimSpace(sc.Input) == "" {
			return nil, fmt.Errorf("row %d: input is required", i+1)
		}
		d, err := models.ParseDifficulty(string(sc.Difficulty))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		sc.Difficulty = d
		sc.Tags = cleanTags(sc.Tags)

		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
