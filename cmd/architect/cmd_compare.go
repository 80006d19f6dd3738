package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Bateristico/agent-architect/internal/reporting"
	"github.com/spf13/cobra"
)

func newCompareCommand() *cobra.Command {
	var (
		catalogPath string
		format      string
		outputPath  string
		a, b        placementFlags
		rf          runnerFlags
		ef          estimateFlags
	)

	cmd := &cobra.Command{
		Use:   "compare <level>",
		Short: "Compare two configurations on the same seeded trials",
		Long: `Estimate configurations A and B on a level with the same base seed, so
trial i of each sees the same random stream, and report whether the
difference in mean total is significant.`,
		Example: `  architect compare support-desk --a lean.yaml --b full.yaml
  architect compare escalations --a lean.yaml --b-place tool=tool-api --b-place context=ctx-rag --b-place model=model-balanced`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.empty() || b.empty() {
				return errors.New("both configurations are required: use --a/--a-place and --b/--b-place")
			}
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}
			level, err := resolveLevel(pc.cat, args[0], "")
			if err != nil {
				return err
			}
			_, cfgA, err := a.configuration(pc.cat)
			if err != nil {
				return fmt.Errorf("configuration A: %w", err)
			}
			_, cfgB, err := b.configuration(pc.cat)
			if err != nil {
				return fmt.Errorf("configuration B: %w", err)
			}
			runner, err := rf.runner(cmd, pc)
			if err != nil {
				return err
			}

			stop := attachProgress(cmd, runner, "Comparing on "+level.ID)
			cmp, err := runner.Compare(cmd.Context(), cfgA, cfgB, level, ef.options(cmd, pc))
			stop()
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "table":
				var sb strings.Builder
				printComparison(&sb, level, cmp)
				return writeOutput(cmd, outputPath, []byte(sb.String()))
			case "json":
				data, err := json.MarshalIndent(cmp, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding comparison: %w", err)
				}
				return writeOutput(cmd, outputPath, append(data, '\n'))
			case "markdown", "md":
				return writeOutput(cmd, outputPath, []byte(reporting.ComparisonMarkdown(level, cmp)))
			default:
				return fmt.Errorf("unknown format %q (want table, json or markdown)", format)
			}
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, markdown")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	a.register(cmd, "a", "a-place", "configuration A")
	b.register(cmd, "b", "b-place", "configuration B")
	rf.register(cmd, true)
	ef.register(cmd, 100)

	return cmd
}
