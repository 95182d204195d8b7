package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/admitguard/admitguard/internal/model"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Migrate reviewer-approved exception records to the accepted tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run := model.NewRunRecord(time.Now())
		if err := p.Reconcile(ctx, run); err != nil {
			return err
		}
		fmt.Printf("Approved records migrated: %d\n", run.ExceptionsApproved)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
