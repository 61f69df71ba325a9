package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timely/internal/apperr"
	"timely/internal/domain"
	"timely/internal/heartbeat"
	"timely/internal/output"
	"timely/internal/query"
)

type nowResponse struct {
	query.CurrentActivity
	// Stale is set when the last event stopped being extended long enough
	// ago that the daemon is likely not running.
	Stale bool `json:"stale"`
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Show the current activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		current, err := app.Queries.Current(ctx)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.ErrNoData
		}

		resp := nowResponse{CurrentActivity: *current}
		if since, err := time.Parse(time.RFC3339, current.Since); err == nil {
			elapsed := time.Since(since).Seconds()
			if elapsed > current.DurationSeconds+heartbeat.MergeGap.Seconds() {
				resp.Stale = true
			} else if elapsed > current.DurationSeconds {
				resp.DurationSeconds = elapsed
				resp.DurationTime = domain.FormatDuration(elapsed)
			}
		}

		if jsonOut {
			output.PrintJSON(resp)
			return nil
		}

		fmt.Printf("%s — %s\n", resp.App, resp.Title)
		if resp.URL != nil {
			fmt.Printf("URL: %s\n", *resp.URL)
		}
		fmt.Printf("Category: %s\n", resp.Category)
		fmt.Printf("Since: %s (%s)\n", resp.Since, resp.DurationTime)
		if resp.IsAFK {
			fmt.Println("Status: AFK")
		}
		if resp.Stale {
			fmt.Println("Note: daemon is not running, showing last recorded activity")
		}
		return nil
	},
}

func init() {
	nowCmd.Flags().Bool("json", false, "output as JSON")
}
