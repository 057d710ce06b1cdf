package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List pending offline actions in replay order",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx := cmd.Context()
		total := 0

		tabs, err := app.stores.Tabs.GetUnsynced(ctx)
		if err != nil {
			return err
		}
		for _, e := range tabs {
			printEntry(e.ID, e.Timestamp, e.Error, e.Attempts,
				fmt.Sprintf("open tab for customer %s (placeholder %s)", e.Payload.CustomerID, e.Payload.LocalID))
			total++
		}

		expenses, err := app.stores.Expenses.GetUnsynced(ctx)
		if err != nil {
			return err
		}
		for _, e := range expenses {
			printEntry(e.ID, e.Timestamp, e.Error, e.Attempts,
				fmt.Sprintf("add %dx item %d to tab %s", e.Payload.Quantity, e.Payload.ItemID, e.Payload.Tab.String()))
			total++
		}

		payments, err := app.stores.Payments.GetUnsynced(ctx)
		if err != nil {
			return err
		}
		for _, e := range payments {
			printEntry(e.ID, e.Timestamp, e.Error, e.Attempts,
				fmt.Sprintf("pay %.2f (%s) on tab %s", e.Payload.Amount, e.Payload.Method, e.Payload.Tab.String()))
			total++
		}

		if total == 0 {
			fmt.Println("No pending offline actions.")
		} else {
			fmt.Printf("\n%d pending action(s)\n", total)
		}
		return nil
	},
}

func printEntry(id string, tsMillis int64, errMsg string, attempts int, summary string) {
	ts := time.UnixMilli(tsMillis).Format("2006-01-02 15:04:05")
	fmt.Printf("%s  %s  %s\n", ts, id, summary)
	if errMsg != "" {
		fmt.Printf("%21s last error (attempt %d): %s\n", "", attempts, errMsg)
	}
}
