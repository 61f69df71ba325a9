package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timely/internal/output"
	"timely/internal/query"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show the activity timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromSpec, _ := cmd.Flags().GetString("from")
		toSpec, _ := cmd.Flags().GetString("to")
		limit, _ := cmd.Flags().GetInt64("limit")
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

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		timeline, err := app.Queries.Timeline(ctx, from, to, limit)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(timeline)
			return nil
		}

		fmt.Printf("Timeline (%s to %s), %d events\n", fromSpec, toSpec, timeline.Count)
		for _, e := range timeline.Entries {
			cat := "-"
			if e.Category != nil {
				cat = *e.Category
			}
			afk := ""
			if e.IsAFK {
				afk = " [afk]"
			}
			fmt.Printf("%s  %8s  %-20s %-40s %s%s\n",
				e.Timestamp, e.DurationTime, e.App, e.Title, cat, afk)
		}
		return nil
	},
}

func init() {
	timelineCmd.Flags().String("from", "today", "start time")
	timelineCmd.Flags().String("to", "now", "end time")
	timelineCmd.Flags().Int64("limit", 0, "maximum number of entries")
	timelineCmd.Flags().Bool("json", false, "output as JSON")
}
