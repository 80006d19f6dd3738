package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"context", RoleContext, false},
		{" Tool ", RoleTool, false},
		{"GUARDRAIL", RoleGuardrail, false},
		{"sidekick", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfiguration_WithWithout(t *testing.T) {
	ctx := &Component{ID: "ctx-rag", Role: RoleContext, Cost: 4}
	model := &Component{ID: "model-economy", Role: RoleModel, Cost: 1}
	tool := &Component{ID: "tool-api", Role: RoleTool, Cost: 3}

	var empty Configuration
	cfg := empty.With(ctx).With(model).With(tool).With(nil)

	assert.False(t, empty.Has(RoleContext), "With must not modify the receiver")
	assert.Same(t, tool, cfg.Get(RoleTool))
	assert.Equal(t, 8, cfg.TotalCost())
	assert.Equal(t, []string{"ctx-rag", "model-economy", "tool-api"}, cfg.PlacedIDs())
	assert.Empty(t, cfg.MissingRoles(RequiredRoles))

	noTool := cfg.Without(RoleTool)
	assert.False(t, noTool.Has(RoleTool))
	assert.True(t, cfg.Has(RoleTool))
	assert.Equal(t, 5, noTool.TotalCost())

	assert.Equal(t, []Role{RoleModel}, cfg.Without(RoleModel).MissingRoles(RequiredRoles))
	assert.Nil(t, cfg.Get(Role("unknown")))
}

func TestConfiguration_Placement(t *testing.T) {
	cfg := Configuration{}.
		With(&Component{ID: "guard-filter", Role: RoleGuardrail}).
		With(&Component{ID: "ctx-minimal", Role: RoleContext})

	assert.Equal(t, Placement{RoleContext: "ctx-minimal", RoleGuardrail: "guard-filter"}, cfg.Placement())
	assert.Len(t, cfg.Components(), 2)
	assert.Equal(t, "ctx-minimal", cfg.Components()[0].ID, "components come back in role order")
}

func TestParsePlacement(t *testing.T) {
	p, err := ParsePlacement([]string{"context=ctx-rag", "Model = model-premium"})
	require.NoError(t, err)
	assert.Equal(t, Placement{RoleContext: "ctx-rag", RoleModel: "model-premium"}, p)

	p, err = ParsePlacement(nil)
	require.NoError(t, err)
	assert.Empty(t, p)

	for _, bad := range [][]string{
		{"context"},
		{"context="},
		{"wizard=ctx-rag"},
		{"tool=tool-api", "tool=tool-search"},
	} {
		_, err := ParsePlacement(bad)
		assert.Error(t, err, "%v", bad)
	}
}
