package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timely/internal/categorize"
	"timely/internal/store"
	"timely/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync hub",
	Long: `Run the hub other devices push their events to. The hub deduplicates
incoming batches against its own store and answers status and activity
queries for all devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		// the hub classifies by name, so its category table must exist
		if err := categorize.Seed(ctx, app.Cats); err != nil {
			return err
		}

		apiKey, _, err := app.Settings.Get(ctx, store.SettingAPIKey)
		if err != nil {
			return err
		}

		return web.NewServer(app.DB, port, apiKey, app.Log).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port to listen on")
}
