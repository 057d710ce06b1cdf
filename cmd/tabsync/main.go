// Package main provides the tabsync command-line interface: a local
// offline-first companion for a tab manager, with durable queues for
// writes made while disconnected and automatic sync on reconnection.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "tabsync",
	Short:   "Offline-first sync for tab orders and payments",
	Long:    "tabsync keeps tab expenses, payments and tab openings working while offline.\nActions are queued in local SQLite and replayed against the server once\nconnectivity returns.",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tabsync.toml",
		"path to the TOML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
