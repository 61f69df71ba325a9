// Package cli wires the timely commands: the capture daemon, activity
// queries, category rules, configuration and multi-device sync.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"timely/internal/output"
)

var rootCmd = &cobra.Command{
	Use:   "timely",
	Short: "Agent-friendly activity tracker",
	Long: `timely records what you work on: a background daemon captures the
focused application, window title and browser URL, segments the stream into
events, categorizes them by rule, and can push them to a hub shared by all
your devices.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintErrorJSON(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(nowCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
}
