package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the collection, reporting rejected records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, src, closeSource, err := newApp(ctx, cfg, appDeps{})
		if err != nil {
			return err
		}
		defer closeSource()
		if err := a.Load(ctx); err != nil {
			return err
		}
		snap, err := a.Snapshot()
		if err != nil {
			return err
		}

		report := snap.Report
		fmt.Fprintf(os.Stdout, "source:   %s\n", src.Name())
		fmt.Fprintf(os.Stdout, "accepted: %d\n", report.Accepted)
		fmt.Fprintf(os.Stdout, "rejected: %d\n", len(report.Rejected))

		reasons := report.RejectedByReason()
		names := make([]string, 0, len(reasons))
		for name := range reasons {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stdout, "  %-20s %d\n", name, reasons[name])
		}
		for _, r := range report.Rejected {
			id := r.ID
			if id == "" {
				id = "-"
			}
			fmt.Fprintf(os.Stdout, "  record %d (id %s): %s: %s\n", r.Index, id, r.Reason, r.Detail)
		}

		if report.Accepted == 0 {
			return fmt.Errorf("no quotes loaded from %s", src.Name())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
