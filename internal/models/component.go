package models

import (
	"fmt"
	"sort"
	"strings"
)

// Role identifies the slot a component occupies in an agent configuration.
type Role string

const (
	RoleContext   Role = "context"
	RoleModel     Role = "model"
	RoleTool      Role = "tool"
	RoleFramework Role = "framework"
	RoleGuardrail Role = "guardrail"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleContext, RoleModel, RoleTool, RoleFramework, RoleGuardrail}

// RequiredRoles are the roles every configuration needs before it can be evaluated.
var RequiredRoles = []Role{RoleContext, RoleModel}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string flag value to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role %q: must be one of context, model, tool, framework, guardrail", s)
}

// Variant tags used by the catalog for the component families the evaluator
// distinguishes. Any other value (including empty) is treated as VariantStandard.
const (
	VariantMinimal  = "minimal"
	VariantStandard = "standard"
	VariantRich     = "rich"
	VariantRichest  = "richest"

	VariantFast    = "fast"
	VariantPremium = "premium"
)

// Component is one placeable card from the static catalog.
type Component struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Role        Role   `yaml:"role" json:"role"`
	Cost        int    `yaml:"cost" json:"cost"`
	Variant     string `yaml:"variant,omitempty" json:"variant,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Configuration is an assembled agent: at most one component per role.
// A nil field means the slot is empty.
type Configuration struct {
	Context   *Component `json:"context,omitempty"`
	Model     *Component `json:"model,omitempty"`
	Tool      *Component `json:"tool,omitempty"`
	Framework *Component `json:"framework,omitempty"`
	Guardrail *Component `json:"guardrail,omitempty"`
}

// Get returns the component in the given role, or nil when the slot is empty.
func (c Configuration) Get(role Role) *Component {
	switch role {
	case RoleContext:
		return c.Context
	case RoleModel:
		return c.Model
	case RoleTool:
		return c.Tool
	case RoleFramework:
		return c.Framework
	case RoleGuardrail:
		return c.Guardrail
	default:
		return nil
	}
}

// Has reports whether the role is filled.
func (c Configuration) Has(role Role) bool {
	return c.Get(role) != nil
}

// With returns a copy of the configuration with comp placed in its role.
func (c Configuration) With(comp *Component) Configuration {
	if comp == nil {
		return c
	}
	switch comp.Role {
	case RoleContext:
		c.Context = comp
	case RoleModel:
		c.Model = comp
	case RoleTool:
		c.Tool = comp
	case RoleFramework:
		c.Framework = comp
	case RoleGuardrail:
		c.Guardrail = comp
	}
	return c
}

// Without returns a copy of the configuration with the role emptied.
func (c Configuration) Without(role Role) Configuration {
	switch role {
	case RoleContext:
		c.Context = nil
	case RoleModel:
		c.Model = nil
	case RoleTool:
		c.Tool = nil
	case RoleFramework:
		c.Framework = nil
	case RoleGuardrail:
		c.Guardrail = nil
	}
	return c
}

// Components returns the placed components in role order.
func (c Configuration) Components() []*Component {
	var out []*Component
	for _, role := range AllRoles {
		if comp := c.Get(role); comp != nil {
			out = append(out, comp)
		}
	}
	return out
}

// PlacedIDs returns the ids of every placed component, sorted.
func (c Configuration) PlacedIDs() []string {
	var ids []string
	for _, comp := range c.Components() {
		ids = append(ids, comp.ID)
	}
	sort.Strings(ids)
	return ids
}

// TotalCost sums the cost of every placed component.
func (c Configuration) TotalCost() int {
	total := 0
	for _, comp := range c.Components() {
		total += comp.Cost
	}
	return total
}

// MissingRoles returns the roles from want that are empty, in the order given.
func (c Configuration) MissingRoles(want []Role) []Role {
	var missing []Role
	for _, role := range want {
		if !c.Has(role) {
			missing = append(missing, role)
		}
	}
	return missing
}

// Placement maps each role to a component id. It is the serialized form of a
// configuration before it is resolved against a catalog.
type Placement map[Role]string

// Placement converts the configuration back into component ids per role.
func (c Configuration) Placement() Placement {
	p := Placement{}
	for _, comp := range c.Components() {
		p[comp.Role] = comp.ID
	}
	return p
}

// ParsePlacement parses "role=id" pairs, as given on the command line.
func ParsePlacement(pairs []string) (Placement, error) {
	p := Placement{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("invalid placement %q: expected role=component-id", pair)
		}
		role, err := ParseRole(k)
		if err != nil {
			return nil, err
		}
		if _, dup := p[role]; dup {
			return nil, fmt.Errorf("role %s placed more than once", role)
		}
		p[role] = strings.TrimSpace(v)
	}
	return p, nil
}
