package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/wizard"
	"github.com/spf13/cobra"
)

func newBuildCommand() *cobra.Command {
	var (
		catalogPath string
		outputPath  string
		placement   placementFlags
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble an agent configuration interactively",
		Long: `Pick one component per role from the catalog and save the placement as
YAML for use with --config.

If the output file already exists its placement is pre-selected. Falls back
to plain prompts when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}

			initial := models.Placement{}
			if placement.empty() {
				if existing, err := catalog.LoadPlacement(outputPath); err == nil {
					initial = existing
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			} else if initial, err = placement.placement(); err != nil {
				return err
			}

			p, err := wizard.Run(cmd.InOrStdin(), cmd.OutOrStdout(), pc.cat, initial)
			if err != nil {
				return err
			}
			if err := catalog.SavePlacement(outputPath, p); err != nil {
				return fmt.Errorf("saving placement: %w", err)
			}

			summary, err := wizard.Summary(pc.cat, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %s\n%s", outputPath, summary) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "agent.yaml", "Where to save the placement")
	placement.register(cmd, "config", "place", "the starting selection")

	return cmd
}
