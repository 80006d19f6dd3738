package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Bateristico/agent-architect/internal/combos"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/reporting"
	"github.com/spf13/cobra"
)

// runReport is the JSON shape of a single run.
type runReport struct {
	Level        string              `json:"level"`
	Seed         int64               `json:"seed"`
	Placement    models.Placement    `json:"placement"`
	Result       *models.LevelResult `json:"result"`
	Combos       models.ComboOutcome `json:"combos"`
	DisplayTotal int                 `json:"display_total"`
}

func newRunCommand() *cobra.Command {
	var (
		catalogPath  string
		scenariosCSV string
		seed         int64
		format       string
		outputPath   string
		interpret    bool
		placement    placementFlags
		rf           runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "run <level>",
		Short: "Run a level once against a configuration",
		Long: `Run every scenario of a level once against the placed configuration and
score the result.

The level is a catalog level id or the path to a level YAML file. Components
are placed with --config and/or repeated --place role=component-id flags.

Exit codes:
  0  the level was cleared (tier 2 or 3)
  1  the configuration stayed at tier 1
  2  configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}
			level, err := resolveLevel(pc.cat, args[0], scenariosCSV)
			if err != nil {
				return err
			}
			p, cfg, err := placement.configuration(pc.cat)
			if err != nil {
				return err
			}
			runner, err := rf.runner(cmd, pc)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				format = pc.cfg.Defaults.Format
			}
			if !cmd.Flags().Changed("interpret") && pc.cfg.Defaults.Interpret != nil {
				interpret = *pc.cfg.Defaults.Interpret
			}

			s := orchestration.ResolveSeed(seedFlag(cmd, seed, pc))
			result, err := runner.RunOnce(cmd.Context(), cfg, level, s)
			if err != nil {
				return err
			}
			outcome := combos.Detect(cfg.PlacedIDs(), pc.cat.Combos)

			if err := writeRunReport(cmd, format, outputPath, level, p, result, outcome, s); err != nil {
				return err
			}
			if interpret {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n%s", reporting.FormatSummaryReport(level, result)) //nolint:errcheck
			}

			if result.Tier == models.Tier1 {
				return &LevelFailureError{LevelID: level.ID, Total: result.Total, Tier: result.Tier}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVar(&scenariosCSV, "scenarios", "", "Replace the level's scenarios with rows from a CSV file")
	cmd.Flags().Int64Var(&seed, "seed", -1, "Random seed (negative picks one)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, junit, markdown, html")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language summary after the report")
	placement.register(cmd, "config", "place", "the agent")
	rf.register(cmd, false)

	return cmd
}

func writeRunReport(cmd *cobra.Command, format, outputPath string, level *models.Level, p models.Placement, result *models.LevelResult, outcome models.ComboOutcome, seed int64) error {
	switch strings.ToLower(format) {
	case "table":
		var b strings.Builder
		printRunTable(&b, level, p, result, outcome)
		return writeOutput(cmd, outputPath, []byte(b.String()))
	case "json":
		data, err := json.MarshalIndent(runReport{
			Level:        level.ID,
			Seed:         seed,
			Placement:    p,
			Result:       result,
			Combos:       outcome,
			DisplayTotal: reporting.ComposeDisplayTotal(result.Total, outcome.TotalBonusPercent),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		return writeOutput(cmd, outputPath, append(data, '\n'))
	case "junit":
		data, err := reporting.MarshalJUnit(reporting.ConvertToJUnit(level, p, result, time.Now()))
		if err != nil {
			return err
		}
		return writeOutput(cmd, outputPath, data)
	case "markdown", "md":
		return writeOutput(cmd, outputPath, []byte(reporting.RunMarkdown(level, p, result, outcome)))
	case "html":
		page, err := reporting.RenderHTML(level.Name, reporting.RunMarkdown(level, p, result, outcome))
		if err != nil {
			return err
		}
		return writeOutput(cmd, outputPath, []byte(page))
	default:
		return fmt.Errorf("unknown format %q (want table, json, junit, markdown or html)", format)
	}
}
