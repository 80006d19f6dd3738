package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/spf13/cobra"
)

func newCatalogCommand() *cobra.Command {
	var (
		catalogPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the components, combos and levels in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(pc.cat, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding catalog: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			printCatalog(cmd, pc.cat)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.AddCommand(newCatalogExportCommand())

	return cmd
}

func newCatalogExportCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in catalog as YAML",
		Long: `Write the built-in catalog as YAML, as a starting point for a custom
catalog. Point paths.catalog in .architect.yaml or --catalog at the edited file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd, outputPath, catalog.DefaultYAML())
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) {
	printf := writerf(cmd.OutOrStdout())
	const colID = 20

	required := make(map[models.Role]bool, len(models.RequiredRoles))
	for _, r := range models.RequiredRoles {
		required[r] = true
	}

	for _, role := range models.AllRoles {
		label := string(role)
		if required[role] {
			label += " (required)"
		}
		printf("%s\n", boldText(label))
		for _, c := range cat.ComponentsByRole(role) {
			printf("  %s %s cost %d\n", padRight(c.ID, colID), padRight(c.Name, 26), c.Cost)
		}
		printf("\n")
	}

	printf("%s\n", boldText("combos"))
	for _, c := range cat.Combos {
		printf("  %s +%g%%  %s\n", padRight(c.ID, colID), c.BonusPercent, strings.Join(c.RequiredComponentIDs, " + "))
	}
	printf("\n")

	printf("%s\n", boldText("levels"))
	for _, l := range cat.Levels {
		extra := ""
		if len(l.RequiredRoles) > 0 {
			roles := make([]string, len(l.RequiredRoles))
			for i, r := range l.RequiredRoles {
				roles[i] = string(r)
			}
			extra = "  needs " + strings.Join(roles, ", ")
		}
		printf("  %s %d scenarios%s\n", padRight(l.ID, colID), len(l.Scenarios), extra)
	}
}
