package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/barvenue/tabsync/internal/models"
)

var itemNotes string

func init() {
	tabAddCmd.Flags().StringVar(&itemNotes, "notes", "", "free-form note for the item")

	tabCmd.AddCommand(tabOpenCmd)
	tabCmd.AddCommand(tabShowCmd)
	tabCmd.AddCommand(tabAddCmd)
	tabCmd.AddCommand(tabPayCmd)
	rootCmd.AddCommand(tabCmd)
}

var tabCmd = &cobra.Command{
	Use:   "tab",
	Short: "Work with tabs: open, show, add items, pay",
	Long:  "Tab operations go to the server when it is reachable and are queued\nlocally otherwise. A queued action reports its queue id and is replayed\non the next sync pass.",
}

var tabOpenCmd = &cobra.Command{
	Use:   "open <customer-id>",
	Short: "Open a tab for a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		if err := app.requireRemote(); err != nil {
			return err
		}
		app.probeOnce(cmd.Context())

		result, err := app.service.OpenTab(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if result.Offline {
			fmt.Printf("Offline: tab opened locally as %s, will be created on next sync\n", result.Tab.String())
		} else {
			fmt.Printf("Tab %s opened\n", result.Tab.String())
		}
		return nil
	},
}

var tabShowCmd = &cobra.Command{
	Use:   "show <tab-id>",
	Short: "Display a tab, from the server or the local cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		if err := app.requireRemote(); err != nil {
			return err
		}
		app.probeOnce(cmd.Context())

		ref, err := models.ParseTabRef(args[0])
		if err != nil {
			return err
		}
		view, err := app.service.LoadTab(cmd.Context(), ref)
		if err != nil {
			return err
		}
		if view.FromCache {
			fmt.Println("(cached copy)")
		}
		fmt.Println(string(view.Data))
		return nil
	},
}

var tabAddCmd = &cobra.Command{
	Use:   "add <tab-id> <item-id> <quantity>",
	Short: "Add an item to a tab",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[1])
		}
		quantity, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[2])
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		if err := app.requireRemote(); err != nil {
			return err
		}
		app.probeOnce(cmd.Context())

		ref, err := models.ParseTabRef(args[0])
		if err != nil {
			return err
		}
		result, err := app.service.AddItem(cmd.Context(), ref, itemID, quantity, itemNotes)
		if err != nil {
			return err
		}
		if result.Offline {
			fmt.Printf("Offline: item queued as %s\n", result.QueueID)
		} else {
			fmt.Println("Item added")
		}
		return nil
	},
}

var tabPayCmd = &cobra.Command{
	Use:   "pay <tab-id> <amount> <method>",
	Short: "Record a payment on a tab",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()
		if err := app.requireRemote(); err != nil {
			return err
		}
		app.probeOnce(cmd.Context())

		ref, err := models.ParseTabRef(args[0])
		if err != nil {
			return err
		}
		result, err := app.service.AddPayment(cmd.Context(), ref, amount, args[2])
		if err != nil {
			return err
		}
		if result.Offline {
			fmt.Printf("Offline: payment queued as %s\n", result.QueueID)
		} else {
			fmt.Println("Payment recorded")
		}
		return nil
	},
}
