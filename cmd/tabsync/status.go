package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and the pending offline backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		fmt.Println("Server:")
		if app.cfg.Server.BaseURL == "" {
			fmt.Println("  URL:          (not configured)")
		} else {
			fmt.Printf("  URL:          %s\n", app.cfg.Server.BaseURL)
			app.probeOnce(cmd.Context())
			if app.monitor.Online() {
				fmt.Println("  Connectivity: online")
			} else {
				fmt.Println("  Connectivity: offline")
			}
		}

		stats, err := app.stores.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Offline queue:")
		fmt.Printf("  Expenses: %d pending, %d failed\n", stats.Expenses.Pending, stats.Expenses.Errors)
		fmt.Printf("  Payments: %d pending, %d failed\n", stats.Payments.Pending, stats.Payments.Errors)
		fmt.Printf("  Tabs:     %d pending, %d failed\n", stats.Tabs.Pending, stats.Tabs.Errors)
		fmt.Printf("  Total:    %d pending\n", stats.TotalPending())

		if app.orchestrator != nil {
			snap := app.orchestrator.Metrics().Snapshot()
			if snap.Passes > 0 {
				fmt.Println()
				fmt.Println("Sync:")
				fmt.Printf("  Passes:    %d\n", snap.Passes)
				fmt.Printf("  Applied:   %d\n", snap.Applied)
				fmt.Printf("  Failed:    %d\n", snap.Failed)
				fmt.Printf("  Last pass: %s (%s)\n", snap.LastSync.Format("2006-01-02 15:04:05"), snap.LastMessage)
			}
		}
		return nil
	},
}
