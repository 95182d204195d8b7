package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/admitguard/admitguard/internal/model"
)

var shortlistCmd = &cobra.Command{
	Use:   "shortlist",
	Short: "Rebuild the ranked interview shortlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		th := p.Thresholds(ctx)
		run := model.NewRunRecord(time.Now())
		if err := p.BuildShortlist(ctx, th, run); err != nil {
			return err
		}
		fmt.Printf("Shortlist: %d added, %d total, %d below cutoff\n",
			run.ShortlistAdded, run.ShortlistTotal, run.ShortlistNotSelected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shortlistCmd)
}
