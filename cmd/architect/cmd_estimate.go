package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/reporting"
	"github.com/Bateristico/agent-architect/internal/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// estimateFlags are shared by every command that runs many trials.
type estimateFlags struct {
	trials  int
	workers int
	seed    int64
}

func (f *estimateFlags) register(cmd *cobra.Command, defaultTrials int) {
	cmd.Flags().IntVarP(&f.trials, "trials", "n", defaultTrials, "Number of seeded trials")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", orchestration.DefaultWorkers, "Trials to run concurrently")
	cmd.Flags().Int64Var(&f.seed, "seed", -1, "Base seed; trial i uses seed+i (negative picks one)")
}

func (f *estimateFlags) options(cmd *cobra.Command, pc *projectContext) orchestration.EstimateOptions {
	opts := orchestration.EstimateOptions{
		Trials:  f.trials,
		Workers: f.workers,
		Seed:    seedFlag(cmd, f.seed, pc),
	}
	if !cmd.Flags().Changed("trials") && pc.cfg.Defaults.Trials > 0 {
		opts.Trials = pc.cfg.Defaults.Trials
	}
	if !cmd.Flags().Changed("workers") && pc.cfg.Defaults.Workers > 0 {
		opts.Workers = pc.cfg.Defaults.Workers
	}
	return opts
}

// attachProgress shows a spinner on stderr while trials run, when stderr
// is a terminal. The returned func stops it.
func attachProgress(cmd *cobra.Command, runner *orchestration.Runner, label string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	sp := spinner.Start(cmd.ErrOrStderr(), label)
	runner.OnProgress(func(e orchestration.ProgressEvent) {
		if e.EventType == orchestration.EventTrialComplete {
			sp.SetMessage(fmt.Sprintf("%s: trial %d/%d", label, e.Trial, e.TotalTrials))
		}
	})
	return sp.Stop
}

func newEstimateCommand() *cobra.Command {
	var (
		catalogPath  string
		scenariosCSV string
		format       string
		outputPath   string
		interpret    bool
		placement    placementFlags
		rf           runnerFlags
		ef           estimateFlags
	)

	cmd := &cobra.Command{
		Use:   "estimate <level>",
		Short: "Estimate a configuration's score distribution over many trials",
		Long: `Run a level many times over independent seeded streams and summarize
the score distribution: mean total with a bootstrap confidence interval,
tier probabilities and per-scenario pass rates.

Trial i uses seed+i, so a pinned --seed reproduces the same estimate for
any --workers value. With --cache, pinned-seed estimates are reused.`,
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
			_, cfg, err := placement.configuration(pc.cat)
			if err != nil {
				return err
			}
			runner, err := rf.runner(cmd, pc)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interpret") && pc.cfg.Defaults.Interpret != nil {
				interpret = *pc.cfg.Defaults.Interpret
			}

			stop := attachProgress(cmd, runner, "Estimating "+level.ID)
			est, err := runner.Estimate(cmd.Context(), cfg, level, ef.options(cmd, pc))
			stop()
			if err != nil {
				return err
			}

			if err := writeEstimation(cmd, format, outputPath, level, est); err != nil {
				return err
			}
			if interpret {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n%s", reporting.FormatEstimationReport(level, est)) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVar(&scenariosCSV, "scenarios", "", "Replace the level's scenarios with rows from a CSV file")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, markdown, html")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language summary after the report")
	placement.register(cmd, "config", "place", "the agent")
	rf.register(cmd, true)
	ef.register(cmd, orchestration.DefaultTrials)

	return cmd
}

func writeEstimation(cmd *cobra.Command, format, outputPath string, level *models.Level, est *orchestration.Estimation) error {
	switch strings.ToLower(format) {
	case "table":
		var b strings.Builder
		printEstimationTable(&b, level, est)
		return writeOutput(cmd, outputPath, []byte(b.String()))
	case "json":
		data, err := json.MarshalIndent(est, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding estimation: %w", err)
		}
		return writeOutput(cmd, outputPath, append(data, '\n'))
	case "markdown", "md":
		return writeOutput(cmd, outputPath, []byte(reporting.EstimationMarkdown(level, est)))
	case "html":
		page, err := reporting.RenderHTML(level.Name+" estimate", reporting.EstimationMarkdown(level, est))
		if err != nil {
			return err
		}
		return writeOutput(cmd, outputPath, []byte(page))
	default:
		return fmt.Errorf("unknown format %q (want table, json, markdown or html)", format)
	}
}
