package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FrankSpooren/HolidaiButler/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "holidai",
	Short:         "POI content repair pipeline",
	Long:          "Regenerates POI descriptions from verified fact sheets, fact-checks every candidate, and promotes approved content through a staged review machine.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
