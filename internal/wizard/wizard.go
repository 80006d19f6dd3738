// Package wizard collects an agent placement interactively.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/combos"
	"github.com/Bateristico/agent-architect/internal/models"
)

// NoneLabel is the option that leaves an optional role empty.
const NoneLabel = "(none)"

// Options lists the components for role as select options, labelled with
// their cost. Optional roles get a leading NoneLabel option with an empty value.
func Options(cat *catalog.Catalog, role models.Role) []huh.Option[string] {
	var opts []huh.Option[string]
	if !isRequired(role) {
		opts = append(opts, huh.NewOption(NoneLabel, ""))
	}
	for _, c := range cat.ComponentsByRole(role) {
		opts = append(opts, huh.NewOption(OptionLabel(c), c.ID))
	}
	return opts
}

// OptionLabel renders a component as "Name (id, cost N)".
func OptionLabel(c models.Component) string {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return fmt.Sprintf("%s (%s, cost %d)", name, c.ID, c.Cost)
}

func isRequired(role models.Role) bool {
	for _, r := range models.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Run shows one select per role, pre-selecting initial where it names a
// catalog component, and returns the resolved placement.
func Run(in io.Reader, out io.Writer, cat *catalog.Catalog, initial models.Placement) (models.Placement, error) {
	choices := make(map[models.Role]*string, len(models.AllRoles))
	var fields []huh.Field
	for _, role := range models.AllRoles {
		v := initial[role]
		if v == "" && isRequired(role) {
			if comps := cat.ComponentsByRole(role); len(comps) > 0 {
				v = comps[0].ID
			}
		}
		choices[role] = &v

		desc := "Optional"
		if isRequired(role) {
			desc = "Required"
		}
		fields = append(fields, huh.NewSelect[string]().
			Title(strings.ToUpper(role.String()[:1])+role.String()[1:]).
			Description(desc).
			Options(Options(cat, role)...).
			Value(choices[role]))
	}

	form := huh.NewForm(huh.NewGroup(fields...)).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	p := models.Placement{}
	for role, v := range choices {
		if *v != "" {
			p[role] = *v
		}
	}
	if _, err := cat.Resolve(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Summary describes a placement: its components, total cost, achieved combos
// and any combo a single further component would complete.
func Summary(cat *catalog.Catalog, p models.Placement) (string, error) {
	cfg, err := cat.Resolve(p)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, role := range models.AllRoles {
		c := cfg.Get(role)
		if c == nil {
			fmt.Fprintf(&b, "  %-10s %s\n", role, NoneLabel)
			continue
		}
		fmt.Fprintf(&b, "  %-10s %s\n", role, OptionLabel(*c))
	}
	fmt.Fprintf(&b, "Total cost: %d\n", cfg.TotalCost())

	if missing := cfg.MissingRoles(models.RequiredRoles); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, r := range missing {
			names[i] = r.String()
		}
		fmt.Fprintf(&b, "Missing required roles: %s\n", strings.Join(names, ", "))
	}

	ids := cfg.PlacedIDs()
	outcome := combos.Detect(ids, cat.Combos)
	for _, c := range outcome.Achieved {
		fmt.Fprintf(&b, "Combo: %s (+%g%%)\n", c.Name, c.BonusPercent)
	}

	for _, hint := range Hints(cat, cfg) {
		fmt.Fprintf(&b, "Hint: %s\n", hint)
	}
	return b.String(), nil
}

// Hints names the components that would complete a combo if placed next.
// A candidate replaces whatever holds its role; combos already achieved are skipped.
func Hints(cat *catalog.Catalog, cfg models.Configuration) []string {
	achieved := map[string]bool{}
	for _, c := range combos.Achieved(cfg.PlacedIDs(), cat.Combos) {
		achieved[c.ID] = true
	}

	var hints []string
	for _, comp := range cat.Components {
		if cfg.Has(comp.Role) && cfg.Get(comp.Role).ID == comp.ID {
			continue
		}
		c, ok := combos.WouldComplete(comp.ID, cfg.Without(comp.Role).PlacedIDs(), cat.Combos)
		if !ok || achieved[c.ID] {
			continue
		}
		hints = append(hints, fmt.Sprintf("placing %s completes %s (+%g%%)", comp.ID, c.Name, c.BonusPercent))
	}
	return hints
}
