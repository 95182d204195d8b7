package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/admitguard/admitguard/internal/model"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Merge external test scores onto accepted records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run := model.NewRunRecord(time.Now())
		if err := p.MergeScores(ctx, run); err != nil {
			return err
		}
		if len(run.Errors) > 0 {
			fmt.Printf("Diagnostics: %s\n", run.ErrorText())
		}
		fmt.Println("Test scores merged.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoresCmd)
}
