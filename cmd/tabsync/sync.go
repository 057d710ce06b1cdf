package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass now",
	Long:  "Probe the server once and, if reachable, replay all pending offline\nactions in order: tab openings first, then expenses and payments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.requireRemote(); err != nil {
			return err
		}

		// One blocking probe so the pass reflects reality, not the
		// monitor's optimistic initial state.
		app.probeOnce(cmd.Context())

		result, err := app.orchestrator.Sync(cmd.Context())
		if err != nil {
			return err
		}

		if !result.Success {
			fmt.Println(result.Message)
			return nil
		}
		fmt.Printf("%s (%.2fs)\n", result.Message, result.Duration.Seconds())
		if result.ErrorCount > 0 {
			fmt.Printf("%d entries failed and will be retried next pass\n", result.ErrorCount)
		}
		if result.Deferred > 0 {
			fmt.Printf("%d entries deferred until their tab is assigned a server id\n", result.Deferred)
		}
		return nil
	},
}

// probeOnce updates the monitor from a single synchronous probe.
func (a *app) probeOnce(ctx context.Context) {
	if a.prober == nil {
		return
	}
	a.monitor.SetOnline(a.prober.Probe(ctx))
}
