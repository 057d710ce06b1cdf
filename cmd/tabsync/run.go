package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connectivity monitor and sync scheduler",
	Long:  "Start the long-running daemon: probe connectivity, queue nothing itself,\nand automatically replay pending offline actions whenever the server\nbecomes reachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.requireRemote(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		app.monitor.Start(ctx)
		defer app.monitor.Stop()

		app.scheduler.Start(ctx)
		defer app.scheduler.Stop()

		app.log.Info().
			Str("server", app.cfg.Server.BaseURL).
			Str("data_dir", app.cfg.DataDir).
			Msg("tabsync running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			app.log.Info().Str("signal", sig.String()).Msg("shutting down")
		case <-ctx.Done():
		}
		return nil
	},
}
