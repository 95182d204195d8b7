package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/admitguard/admitguard/internal/sheet"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		t, err := st.ReadAll(ctx, cfg.Tabs.RunLog)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		rows := t.Rows
		if status != "" {
			var filtered []sheet.Row
			for _, r := range rows {
				if r["Status"] == status {
					filtered = append(filtered, r)
				}
			}
			rows = filtered
		}
		// Newest last in the tab; show the most recent runs.
		if limit > 0 && len(rows) > limit {
			rows = rows[len(rows)-limit:]
		}

		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, rows)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (Success, Partial, Failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of run-log rows to w.
func formatRunsList(out io.Writer, rows []sheet.Row) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN ID\tSTART\tNEW\tCLEAN\tREJECTED\tEXCEPTION\tAPPROVED\tSHORTLISTED\tSTATUS")
	_, _ = fmt.Fprintln(w, "------\t-----\t---\t-----\t--------\t---------\t--------\t-----------\t------")

	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r["Run ID"],
			r["Start Time"],
			r["New Rows Found"],
			r["Clean Written"],
			r["Rejected Written"],
			r["Exception Written"],
			r["Exceptions Approved"],
			r["Interview Added (This Run)"],
			r["Status"],
		)
	}
	_ = w.Flush()
}
