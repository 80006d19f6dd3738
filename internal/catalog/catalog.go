// Package catalog holds the static content an agent is assembled from:
// components, combos and levels. It resolves role-to-id placements into
// configurations the engine can evaluate.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/Bateristico/agent-architect/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	// ErrUnknownComponent is returned when a placement names an id the catalog does not have.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrRoleMismatch is returned when a component is placed in a role other than its own.
	ErrRoleMismatch = errors.New("component placed in the wrong role")
)

// Catalog is the set of components, combos and levels available to a player.
type Catalog struct {
	Components []models.Component       `yaml:"components" json:"components"`
	Combos     []models.ComboDefinition `yaml:"combos" json:"combos"`
	Levels     []models.Level           `yaml:"levels" json:"levels"`
}

// Default returns a fresh copy of the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// DefaultYAML returns the raw built-in catalog document.
func DefaultYAML() []byte {
	return defaultYAML
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads the catalog at path, or the built-in one when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique, roles are known and every combo names
// components that exist.
func (c *Catalog) Validate() error {
	ids := make(map[string]bool, len(c.Components))
	for i, comp := range c.Components {
		if comp.ID == "" {
			return fmt.Errorf("component %d: id is required", i+1)
		}
		if ids[comp.ID] {
			return fmt.Errorf("duplicate component id %q", comp.ID)
		}
		ids[comp.ID] = true
		if _, err := models.ParseRole(string(comp.Role)); err != nil {
			return fmt.Errorf("component %s: %w", comp.ID, err)
		}
		if comp.Cost < 0 {
			return fmt.Errorf("component %s: cost must not be negative", comp.ID)
		}
	}

	combos := make(map[string]bool, len(c.Combos))
	for _, combo := range c.Combos {
		if combo.ID == "" {
			return fmt.Errorf("combo %q: id is required", combo.Name)
		}
		if combos[combo.ID] {
			return fmt.Errorf("duplicate combo id %q", combo.ID)
		}
		combos[combo.ID] = true
		if len(combo.RequiredComponentIDs) == 0 {
			return fmt.Errorf("combo %s: required_components is empty", combo.ID)
		}
		for _, id := range combo.RequiredComponentIDs {
			if !ids[id] {
				return fmt.Errorf("combo %s: %w %q", combo.ID, ErrUnknownComponent, id)
			}
		}
	}

	levels := make(map[string]bool, len(c.Levels))
	for i := range c.Levels {
		l := &c.Levels[i]
		if err := l.Validate(); err != nil {
			return fmt.Errorf("level %d: %w", i+1, err)
		}
		if levels[l.ID] {
			return fmt.Errorf("duplicate level id %q", l.ID)
		}
		levels[l.ID] = true
	}
	return nil
}

// Component looks up a component by id.
func (c *Catalog) Component(id string) (*models.Component, bool) {
	for i := range c.Components {
		if c.Components[i].ID == id {
			return &c.Components[i], true
		}
	}
	return nil, false
}

// Level looks up a level by id.
func (c *Catalog) Level(id string) (*models.Level, bool) {
	for i := range c.Levels {
		if c.Levels[i].ID == id {
			return &c.Levels[i], true
		}
	}
	return nil, false
}

// ComponentsByRole returns the components for a role in catalog order.
func (c *Catalog) ComponentsByRole(role models.Role) []models.Component {
	var out []models.Component
	for _, comp := range c.Components {
		if comp.Role == role {
			out = append(out, comp)
		}
	}
	return out
}

// Resolve turns a placement into a configuration. Unknown ids and components
// placed outside their own role are rejected, so the engine only ever sees
// catalog components and an unplaced role is a nil slot.
func (c *Catalog) Resolve(p models.Placement) (models.Configuration, error) {
	var cfg models.Configuration
	for _, role := range models.AllRoles {
		id, ok := p[role]
		if !ok || id == "" {
			continue
		}
		comp, ok := c.Component(id)
		if !ok {
			return models.Configuration{}, fmt.Errorf("%w %q", ErrUnknownComponent, id)
		}
		if comp.Role != role {
			return models.Configuration{}, fmt.Errorf("%w: %s is a %s, not a %s", ErrRoleMismatch, id, comp.Role, role)
		}
		copied := *comp
		cfg = cfg.With(&copied)
	}
	for role := range p {
		if _, err := models.ParseRole(string(role)); err != nil {
			return models.Configuration{}, err
		}
	}
	return cfg, nil
}

// LoadPlacement reads a role-to-id YAML mapping, as written by the build wizard.
func LoadPlacement(path string) (models.Placement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing placement %s: %w", path, err)
	}
	p := models.Placement{}
	for k, v := range raw {
		role, err := models.ParseRole(k)
		if err != nil {
			return nil, fmt.Errorf("placement %s: %w", path, err)
		}
		p[role] = v
	}
	return p, nil
}

// SavePlacement writes a placement in the format LoadPlacement reads.
func SavePlacement(path string, p models.Placement) error {
	raw := make(map[string]string, len(p))
	for role, id := range p {
		raw[string(role)] = id
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding placement: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
