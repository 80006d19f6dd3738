package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Bateristico/agent-architect/internal/combos"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/wizard"
	"github.com/spf13/cobra"
)

// combosReport is the JSON shape of the combos command.
type combosReport struct {
	PlacedIDs []string            `json:"placed_ids"`
	Combos    models.ComboOutcome `json:"combos"`
	Hints     []string            `json:"hints,omitempty"`
	// Completes is set when --candidate would finish a combo.
	Completes *models.ComboDefinition `json:"completes,omitempty"`
}

func newCombosCommand() *cobra.Command {
	var (
		catalogPath string
		candidate   string
		asJSON      bool
		placement   placementFlags
	)

	cmd := &cobra.Command{
		Use:   "combos",
		Short: "Show the combos a configuration achieves",
		Long: `List the combos the placed components satisfy, their stacked bonus, and
the components that would complete another combo if placed next.

With --candidate, also report whether placing that one component would
complete a combo the configuration does not have yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}
			_, cfg, err := placement.configuration(pc.cat)
			if err != nil {
				return err
			}

			ids := cfg.PlacedIDs()
			report := combosReport{
				PlacedIDs: ids,
				Combos:    combos.Detect(ids, pc.cat.Combos),
				Hints:     wizard.Hints(pc.cat, cfg),
			}
			if candidate != "" {
				if _, ok := pc.cat.Component(candidate); !ok {
					return fmt.Errorf("unknown component %q", candidate)
				}
				if c, ok := combos.WouldComplete(candidate, ids, pc.cat.Combos); ok {
					report.Completes = &c
				}
			}

			if asJSON {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding combos: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}

			printf := writerf(cmd.OutOrStdout())
			if len(ids) == 0 {
				printf("Placed: (nothing)\n")
			} else {
				printf("Placed: %s\n", strings.Join(ids, ", "))
			}
			if len(report.Combos.Achieved) == 0 {
				printf("No combos achieved.\n")
			}
			for _, c := range report.Combos.Achieved {
				printf("%s %s (+%g%%)\n", passText("✓"), c.Name, c.BonusPercent)
			}
			printf("Total bonus: +%g%%\n", report.Combos.TotalBonusPercent)
			for _, h := range report.Hints {
				printf("Hint: %s\n", h)
			}
			if candidate != "" {
				if report.Completes != nil {
					printf("Placing %s completes %s (+%g%%)\n", candidate, report.Completes.Name, report.Completes.BonusPercent)
				} else {
					printf("Placing %s completes no new combo\n", candidate)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVar(&candidate, "candidate", "", "Check whether placing this component id completes a combo")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	placement.register(cmd, "config", "place", "the agent")

	return cmd
}
