package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "architect",
		Short: "Architect - assemble and score AI agent configurations",
		Long: `Architect assembles AI agent configurations from a catalog of components
and scores them against levels of customer scenarios.

Place a context, a model and optionally a tool, framework and guardrail, then
run a level once, estimate it over many seeded trials, or compare two builds.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newEstimateCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newRecommendCommand())
	cmd.AddCommand(newCombosCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newBuildCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCatalogCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
