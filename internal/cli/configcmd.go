package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"timely/internal/apperr"
	"timely/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage runtime configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Settings.Set(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		value, ok, err := app.Settings.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CodeConfig, "key %q is not set", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		deleted, err := app.Settings.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.New(apperr.CodeConfig, "key %q is not set", args[0])
		}
		fmt.Printf("unset %s\n", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		values, err := app.Settings.List(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(values)
			return nil
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %s\n", k, values[k])
		}
		return nil
	},
}

func init() {
	configListCmd.Flags().Bool("json", false, "output as JSON")
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configListCmd)
}
