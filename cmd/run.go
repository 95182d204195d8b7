package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/admitguard/admitguard/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full admission pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run := p.Run(ctx)

		if run.Status == model.RunFailed {
			zap.L().Error("run failed", zap.String("run_id", run.ID), zap.String("errors", run.ErrorText()))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
		if run.Status == model.RunFailed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
