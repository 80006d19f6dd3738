package dataset

import (
	"testing"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarios(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "scenarios.csv", `id,input,expected_behavior,difficulty,tags,notes
greet,Hi there,Say hello,low,,ignored
balance,"What is my balance, please?",Look it up,Medium,data-access; ,
,Compare us to a competitor,Stay factual,HIGH,sensitive;data-access,
`)

	scs, err := LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scs, 3)

	assert.Equal(t, models.Scenario{ID: "greet", Input: "Hi there", ExpectedBehavior: "Say hello", Difficulty: models.DifficultyLow}, scs[0])

	assert.Equal(t, "What is my balance, please?", scs[1].Input)
	assert.Equal(t, models.DifficultyMedium, scs[1].Difficulty)
	assert.Equal(t, []string{"data-access"}, scs[1].Tags)

	assert.Equal(t, "row-3", scs[2].ID)
	assert.Equal(t, models.DifficultyHigh, scs[2].Difficulty)
	assert.Equal(t, []string{"sensitive", "data-access"}, scs[2].Tags)
}

func TestDecodeScenarios_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    []Row
		wantErr string
	}{
		{"bad difficulty", []Row{{"id": "a", "input": "x", "difficulty": "extreme"}}, "invalid difficulty"},
		{"missing input", []Row{{"id": "a", "input": " ", "difficulty": "low"}}, "input is required"},
		{"duplicate id", []Row{
			{"id": "a", "input": "x", "difficulty": "low"},
			{"id": "a", "input": "y", "difficulty": "low"},
		}, "duplicate scenario id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeScenarios(tt.rows)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
