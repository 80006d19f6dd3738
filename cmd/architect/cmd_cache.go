package main

import (
	"fmt"
	"path/filepath"

	"github.com/Bateristico/agent-architect/internal/cache"
	"github.com/Bateristico/agent-architect/internal/projectconfig"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the estimation cache",
		Long: `Manage the estimation cache.

The cache stores estimations run with a pinned seed. Entries are keyed by the
placed components, the level definition, the base seed and the trial count.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the estimation cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cacheDir == "" {
				cfg, err := projectconfig.Load(".")
				if err != nil {
					return err
				}
				cacheDir = cfg.Cache.Dir
			}
			absDir, err := filepath.Abs(cacheDir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c, err := cache.New(absDir, 0)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory to clear (default from .architect.yaml)")

	return cmd
}
