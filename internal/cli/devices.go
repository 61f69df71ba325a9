package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timely/internal/output"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage tracked devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		counts, err := app.Devices.ListWithEventCounts(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(counts)
			return nil
		}

		fmt.Printf("%-38s %-20s %-10s %-22s %s\n", "ID", "Name", "Platform", "Last sync", "Events")
		for _, d := range counts {
			fmt.Printf("%-38s %-20s %-10s %-22s %d\n",
				d.Device.ID, d.Device.Name, d.Device.Platform,
				d.Device.LastSync.Format(time.RFC3339), d.EventCount)
		}
		return nil
	},
}

func init() {
	devicesListCmd.Flags().Bool("json", false, "output as JSON")
	devicesCmd.AddCommand(devicesListCmd)
}
