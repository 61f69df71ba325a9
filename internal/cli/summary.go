package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timely/internal/output"
	"timely/internal/query"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show an activity summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromSpec, _ := cmd.Flags().GetString("from")
		toSpec, _ := cmd.Flags().GetString("to")
		by, _ := cmd.Flags().GetString("by")
		excludeAFK, _ := cmd.Flags().GetBool("exclude-afk")
		jsonOut, _ := cmd.Flags().GetBool("json")

		now := time.Now()
		from, err := query.ParseTime(fromSpec, now)
		if err != nil {
			return err
		}
		to, err := query.ParseTime(toSpec, now)
		if err != nil {
			return err
		}
		groupBy, err := query.ParseGroupBy(by)
		if err != nil {
			return err
		}

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.Queries.Summary(ctx, from, to, groupBy, excludeAFK)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(summary)
			return nil
		}

		fmt.Printf("Activity Summary (%s to %s)\n", fromSpec, toSpec)
		fmt.Printf("Total: %s | Productivity: %.2f\n", summary.TotalTime, summary.ProductivityScore)
		fmt.Println("------------------------------------------------------------")
		for _, g := range summary.Groups {
			fmt.Printf("%-30s %8s  %5.1f%% [%+.1f]\n", g.Label, g.Time, g.Percentage, g.ProductivityScore)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().String("from", "today", "start time (now, today, yesterday, Nd, Nh, Nm, or YYYY-MM-DD)")
	summaryCmd.Flags().String("to", "now", "end time")
	summaryCmd.Flags().String("by", "category", "group by: category, app, or url")
	summaryCmd.Flags().Bool("exclude-afk", false, "exclude AFK time")
	summaryCmd.Flags().Bool("json", false, "output as JSON")
}
