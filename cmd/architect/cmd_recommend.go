package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Bateristico/agent-architect/internal/recommend"
	"github.com/spf13/cobra"
)

func newRecommendCommand() *cobra.Command {
	var (
		catalogPath string
		format      string
		placement   placementFlags
		rf          runnerFlags
		ef          estimateFlags
	)

	cmd := &cobra.Command{
		Use:   "recommend <level>",
		Short: "Suggest a single-component change that scores better",
		Long: `Estimate the configuration and every variant that differs from it in one
role (a swap, an addition or a removal of an optional component) on the same
seeds, then rank them by a weighted heuristic of mean total, pass rate,
consistency and cost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}
			level, err := resolveLevel(pc.cat, args[0], "")
			if err != nil {
				return err
			}
			base, err := placement.placement()
			if err != nil {
				return err
			}
			if _, err := pc.cat.Resolve(base); err != nil {
				return err
			}
			runner, err := rf.runner(cmd, pc)
			if err != nil {
				return err
			}

			stop := attachProgress(cmd, runner, "Exploring variants on "+level.ID)
			rec, candidates, err := recommend.Explore(cmd.Context(), runner, pc.cat, base, level, ef.options(cmd, pc))
			stop()
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.New("not enough variants to compare; place more components or use a larger catalog")
			}

			switch strings.ToLower(format) {
			case "table":
				printRecommendation(cmd.OutOrStdout(), rec, candidates)
				return nil
			case "json":
				data, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding recommendation: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json")
	placement.register(cmd, "config", "place", "the starting agent")
	rf.register(cmd, true)
	ef.register(cmd, 50)

	return cmd
}

func printRecommendation(w io.Writer, rec *recommend.Recommendation, candidates []recommend.Candidate) {
	printf := writerf(w)
	byLabel := make(map[string]recommend.Candidate, len(candidates))
	for _, c := range candidates {
		byLabel[c.Label] = c
	}

	const colLabel = 34
	printf("%s %s %s %s %s %s\n",
		padRight("#", 3),
		padRight("Variant", colLabel),
		padRight("Score", 7),
		padRight("Mean", 7),
		padRight("Pass", 7),
		"Cost")
	printf("%s\n", strings.Repeat("─", colLabel+32))
	for _, s := range rec.Candidates {
		c := byLabel[s.Label]
		label := padRight(truncateName(s.Label, colLabel), colLabel)
		if s.Label == rec.Recommended {
			label = passText(label)
		}
		printf("%s %s %s %s %s %d\n",
			padRight(fmt.Sprintf("%d", s.Rank), 3),
			label,
			padRight(fmt.Sprintf("%.3f", s.HeuristicScore), 7),
			padRight(fmt.Sprintf("%.1f", c.Estimation.MeanTotal), 7),
			padRight(fmt.Sprintf("%.0f%%", c.Estimation.PassRate*100), 7),
			c.Cost)
	}
	printf("\n%s %s\n", boldText("Recommended:"), rec.Recommended)
	printf("%s\n", rec.Reason)
}
