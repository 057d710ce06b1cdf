package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearAll bool

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false,
		"also drop pending (unsynced) actions and the read cache")
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove synced queue entries, or everything with --all",
	Long:  "Without flags, sweep entries that already synced successfully.\nWith --all, drop every queue entry and the cached tab data, including\nactions that never reached the server. Pending actions are lost.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx := cmd.Context()

		if clearAll {
			stats, err := app.stores.Stats(ctx)
			if err != nil {
				return err
			}
			if err := app.stores.ClearAll(ctx); err != nil {
				return err
			}
			if err := app.cache.Clear(ctx); err != nil {
				return err
			}
			fmt.Printf("Dropped all offline data (%d actions were still pending).\n", stats.TotalPending())
			return nil
		}

		// Synced tab entries are kept: they carry the placeholder to
		// server id mapping that later passes still need.
		removed := 0
		for _, sweep := range []func() (int, error){
			func() (int, error) { return app.stores.Expenses.ClearSynced(ctx) },
			func() (int, error) { return app.stores.Payments.ClearSynced(ctx) },
		} {
			n, err := sweep()
			if err != nil {
				return err
			}
			removed += n
		}
		fmt.Printf("Removed %d synced entries.\n", removed)
		return nil
	},
}
