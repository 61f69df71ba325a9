package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"timely/internal/output"
	"timely/internal/store"
	"timely/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Multi-device sync management",
}

var syncSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure sync with a hub and register this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		hub, _ := cmd.Flags().GetString("hub")
		key, _ := cmd.Flags().GetString("key")
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		device, err := app.LocalDevice(ctx)
		if err != nil {
			return err
		}

		if err := app.Settings.Set(ctx, store.SettingHubURL, hub); err != nil {
			return err
		}
		if key != "" {
			if err := app.Settings.Set(ctx, store.SettingAPIKey, key); err != nil {
				return err
			}
		}
		if err := app.Settings.Set(ctx, store.SettingSyncEnabled, "true"); err != nil {
			return err
		}

		client := sync.NewClient(hub, key, app.Events, app.SyncLog, app.Log)
		if _, err := client.Register(ctx, device); err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(map[string]any{
				"hub_url":      hub,
				"device_id":    device.ID,
				"device_name":  device.Name,
				"registered":   true,
				"sync_enabled": true,
			})
			return nil
		}
		fmt.Printf("Device '%s' registered with hub at %s\n", device.Name, hub)
		fmt.Println("Sync enabled; the daemon will push on its next cycle")
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push unsynced events to the hub now",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		device, err := app.LocalDevice(ctx)
		if err != nil {
			return err
		}
		client, err := sync.FromSettings(ctx, app.Settings, app.Events, app.SyncLog, app.Log)
		if err != nil {
			return err
		}

		result, err := client.Push(ctx, device)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(map[string]any{
				"pushed":     result.Pushed,
				"accepted":   result.Accepted,
				"duplicates": result.Duplicates,
				"batches":    result.Batches,
			})
			return nil
		}
		if result.Pushed == 0 {
			fmt.Println("Nothing to push")
			return nil
		}
		fmt.Printf("Pushed %d events in %d batches (%d accepted, %d duplicates)\n",
			result.Pushed, result.Batches, result.Accepted, result.Duplicates)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show hub sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		client, err := sync.FromSettings(ctx, app.Settings, app.Events, app.SyncLog, app.Log)
		if err != nil {
			return err
		}
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(status)
			return nil
		}
		fmt.Printf("Hub devices (%d events total):\n", status.TotalEvents)
		for _, d := range status.Devices {
			fmt.Printf("  %-20s %-10s %8d events  last sync %s\n",
				d.Name, d.Platform, d.EventCount, d.LastSync)
		}
		return nil
	},
}

func init() {
	syncSetupCmd.Flags().String("hub", "", "hub URL (e.g. http://192.168.1.10:8080)")
	syncSetupCmd.Flags().String("key", "", "shared API key (omit for open-mode hubs)")
	_ = syncSetupCmd.MarkFlagRequired("hub")
	syncSetupCmd.Flags().Bool("json", false, "output as JSON")
	syncPushCmd.Flags().Bool("json", false, "output as JSON")
	syncStatusCmd.Flags().Bool("json", false, "output as JSON")
	syncCmd.AddCommand(syncSetupCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncStatusCmd)
}
