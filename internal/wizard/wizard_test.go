package wizard

import (
	"testing"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		role      models.Role
		wantCount int
		wantNone  bool
	}{
		{models.RoleContext, 4, false},
		{models.RoleModel, 3, false},
		{models.RoleTool, 4, true},
		{models.RoleFramework, 3, true},
		{models.RoleGuardrail, 3, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			opts := Options(cat, tt.role)
			require.Len(t, opts, tt.wantCount)
			if tt.wantNone {
				assert.Equal(t, NoneLabel, opts[0].Key)
				assert.Equal(t, "", opts[0].Value)
			} else {
				assert.NotEqual(t, NoneLabel, opts[0].Key)
			}
		})
	}
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "Retrieval Context (ctx-rag, cost 4)",
		OptionLabel(models.Component{ID: "ctx-rag", Name: "Retrieval Context", Cost: 4}))
	assert.Equal(t, "x (x, cost 0)", OptionLabel(models.Component{ID: "x"}))
}

func TestSummary(t *testing.T) {
	cat := catalog.Default()

	out, err := Summary(cat, models.Placement{
		models.RoleContext: "ctx-minimal",
		models.RoleModel:   "model-economy",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Minimal Prompt (ctx-minimal, cost 1)")
	assert.Contains(t, out, "tool       (none)")
	assert.Contains(t, out, "Total cost: 2")
	assert.Contains(t, out, "Combo: Lean Machine (+5%)")
	assert.NotContains(t, out, "Missing required roles")

	out, err = Summary(cat, models.Placement{models.RoleTool: "tool-api"})
	require.NoError(t, err)
	assert.Contains(t, out, "Missing required roles: context, model")

	_, err = Summary(cat, models.Placement{models.RoleTool: "ctx-rag"})
	require.ErrorIs(t, err, catalog.ErrRoleMismatch)
}

func TestHints(t *testing.T) {
	cat := catalog.Default()

	cfg, err := cat.Resolve(models.Placement{models.RoleContext: "ctx-rag", models.RoleModel: "model-premium"})
	require.NoError(t, err)

	hints := Hints(cat, cfg)
	assert.Contains(t, hints, "placing tool-search completes Grounded Retriever (+10%)")
	assert.Contains(t, hints, "placing guard-policy completes Safe Premium (+15%)")
	// lean-machine needs two swaps, never one
	for _, h := range hints {
		assert.NotContains(t, h, "Lean Machine")
	}
}

func TestHints_ReplacementAndAchieved(t *testing.T) {
	cat := catalog.Default()

	// economy model in place: swapping it for model-economy is a no-op and
	// lean machine is already achieved, so no hint names it
	cfg, err := cat.Resolve(models.Placement{models.RoleContext: "ctx-minimal", models.RoleModel: "model-economy"})
	require.NoError(t, err)
	for _, h := range Hints(cat, cfg) {
		assert.NotContains(t, h, "Lean Machine")
	}

	// swapping the context to ctx-rag next to tool-search completes grounded-retriever
	cfg, err = cat.Resolve(models.Placement{models.RoleContext: "ctx-minimal", models.RoleModel: "model-economy", models.RoleTool: "tool-search"})
	require.NoError(t, err)
	assert.Contains(t, Hints(cat, cfg), "placing ctx-rag completes Grounded Retriever (+10%)")
}
