package main

import (
	"encoding/json"
	"fmt"

	"github.com/Bateristico/agent-architect/internal/validation"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var (
		catalogPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate catalog, level and placement files",
		Long: `Validate YAML files against the catalog, level and placement schemas.

The document kind is detected from its top-level keys. Files that pass the
schema are also checked for rules the schema cannot express: unique ids,
known combo members and placements that resolve against the catalog.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}

			reports := make([]*validation.Report, 0, len(args))
			for _, path := range args {
				r, err := validation.ValidateFile(path, pc.cat)
				if err != nil {
					return err
				}
				reports = append(reports, r)
			}

			failed := 0
			for _, r := range reports {
				if !r.OK() {
					failed++
				}
			}

			if asJSON {
				data, err := json.MarshalIndent(reports, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding reports: %w", err)
				}
				if _, err := cmd.OutOrStdout().Write(append(data, '\n')); err != nil {
					return err
				}
			} else {
				printf := writerf(cmd.OutOrStdout())
				for _, r := range reports {
					kind := string(r.Kind)
					if kind == "" {
						kind = "unknown"
					}
					if r.OK() {
						printf("%s %s (%s)\n", passText("✓"), r.Path, kind)
						continue
					}
					printf("%s %s (%s)\n", failText("✗"), r.Path, kind)
					for _, e := range r.SchemaErrors {
						printf("    schema: %s\n", e)
					}
					for _, e := range r.SemanticErrors {
						printf("    %s\n", e)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed validation", failed, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog used to resolve placements (default: built-in catalog)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}
