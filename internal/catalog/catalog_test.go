package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	counts := map[models.Role]int{}
	for _, comp := range c.Components {
		counts[comp.Role]++
	}
	require.Equal(t, map[models.Role]int{
		models.RoleContext:   4,
		models.RoleModel:     3,
		models.RoleTool:      3,
		models.RoleFramework: 2,
		models.RoleGuardrail: 2,
	}, counts)
	require.Len(t, c.Combos, 4)
	require.Len(t, c.Levels, 3)

	// every context and model variant the evaluator distinguishes is present
	variants := map[string]bool{}
	for _, comp := range c.Components {
		variants[comp.Variant] = true
	}
	for _, v := range []string{models.VariantMinimal, models.VariantStandard, models.VariantRich, models.VariantRichest, models.VariantFast, models.VariantPremium} {
		require.True(t, variants[v], "missing variant %s", v)
	}
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Components[0].Cost = 999
	require.NotEqual(t, 999, Default().Components[0].Cost)
}

func TestLookups(t *testing.T) {
	c := Default()

	comp, ok := c.Component("model-premium")
	require.True(t, ok)
	require.Equal(t, models.RoleModel, comp.Role)

	_, ok = c.Component("nope")
	require.False(t, ok)

	level, ok := c.Level("support-desk")
	require.True(t, ok)
	require.NotEmpty(t, level.Scenarios)

	_, ok = c.Level("nope")
	require.False(t, ok)

	tools := c.ComponentsByRole(models.RoleTool)
	require.Len(t, tools, 3)
	require.Equal(t, "tool-api", tools[0].ID)
}

func TestResolve(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		p       models.Placement
		wantErr error
		wantIDs []string
	}{
		{
			name:    "required roles",
			p:       models.Placement{models.RoleContext: "ctx-minimal", models.RoleModel: "model-economy"},
			wantIDs: []string{"ctx-minimal", "model-economy"},
		},
		{
			name:    "empty placement is an empty configuration",
			p:       models.Placement{},
			wantIDs: nil,
		},
		{
			name:    "blank id leaves the slot empty",
			p:       models.Placement{models.RoleContext: "ctx-rag", models.RoleTool: ""},
			wantIDs: []string{"ctx-rag"},
		},
		{
			name:    "unknown id",
			p:       models.Placement{models.RoleContext: "ctx-imaginary"},
			wantErr: ErrUnknownComponent,
		},
		{
			name:    "wrong role",
			p:       models.Placement{models.RoleTool: "model-premium"},
			wantErr: ErrRoleMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := c.Resolve(tt.p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantIDs, cfg.PlacedIDs())
		})
	}
}

func TestResolve_CopiesComponents(t *testing.T) {
	c := Default()
	cfg, err := c.Resolve(models.Placement{models.RoleContext: "ctx-rag", models.RoleModel: "model-balanced"})
	require.NoError(t, err)

	cfg.Context.Cost = 100
	comp, _ := c.Component("ctx-rag")
	require.Equal(t, 4, comp.Cost)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"bad yaml", "components: [", "parsing catalog"},
		{"duplicate component", "components:\n  - {id: a, role: tool, cost: 1}\n  - {id: a, role: tool, cost: 2}\n", "duplicate component id"},
		{"bad role", "components:\n  - {id: a, role: wizard, cost: 1}\n", "invalid role"},
		{"negative cost", "components:\n  - {id: a, role: tool, cost: -1}\n", "negative"},
		{"combo with unknown component", "components:\n  - {id: a, role: tool, cost: 1}\ncombos:\n  - {id: c, required_components: [a, b], bonus_percent: 5}\n", "unknown component"},
		{"empty combo", "combos:\n  - {id: c, bonus_percent: 5}\n", "required_components is empty"},
		{"duplicate level", "levels:\n  - {id: l, success_criteria: {accuracy_threshold: 50}}\n  - {id: l, success_criteria: {accuracy_threshold: 50}}\n", "duplicate level id"},
		{"invalid level", "levels:\n  - {id: l, success_criteria: {accuracy_threshold: 150}}\n", "accuracy_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, DefaultYAML(), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Components, len(Default().Components))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	c, err = LoadOrDefault("")
	require.NoError(t, err)
	require.Len(t, c.Levels, 3)
}

func TestPlacementRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	p := models.Placement{models.RoleContext: "ctx-rag", models.RoleTool: "tool-search"}

	require.NoError(t, SavePlacement(path, p))
	got, err := LoadPlacement(path)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestLoadPlacement_RejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("context: ctx-rag\nsidekick: tool-api\n"), 0o644))

	_, err := LoadPlacement(path)
	require.ErrorContains(t, err, "invalid role")
}
