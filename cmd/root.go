package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "admitguard",
	Short: "Candidate admission batch pipeline",
	Long:  "Validates raw applicant submissions, routes them to accepted/rejected/exception buckets, reconciles reviewer decisions, merges test scores and maintains the ranked interview shortlist.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
