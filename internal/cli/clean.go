package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/config"
	"github.com/crateship/crateship/internal/pipeline"
)

var flagMaxAge time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale cargo caches and image source checkouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return &build.ConfigError{Reason: err.Error()}
		}

		cm := pipeline.NewCleanupManager(cfg, logger)
		return cm.CleanupOldCaches(flagMaxAge)
	},
}

func init() {
	cleanCmd.Flags().DurationVar(&flagMaxAge, "max-age", 0,
		"remove cache entries older than this (default: from config, 720h)")
	rootCmd.AddCommand(cleanCmd)
}
