package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"timely/internal/apperr"
	"timely/internal/categorize"
	"timely/internal/domain"
	"timely/internal/output"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Manage category rules",
}

var categorizeSetCmd = &cobra.Command{
	Use:   "set <pattern> <category>",
	Short: "Add a category rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, categoryName := args[0], args[1]
		fieldName, _ := cmd.Flags().GetString("field")
		retroactive, _ := cmd.Flags().GetBool("retroactive")
		jsonOut, _ := cmd.Flags().GetBool("json")

		field, err := domain.ParseRuleField(fieldName)
		if err != nil {
			return err
		}

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := categorize.Seed(ctx, app.Cats); err != nil {
			return err
		}

		cat, err := app.Cats.GetByName(ctx, categoryName)
		if err != nil {
			return err
		}
		if cat == nil {
			// auto-create, linking "work/foo" under "work" when it exists
			var parentID *int64
			if idx := strings.Index(categoryName, "/"); idx > 0 {
				parent, err := app.Cats.GetByName(ctx, categoryName[:idx])
				if err != nil {
					return err
				}
				if parent != nil {
					parentID = &parent.ID
				}
			}
			id, err := app.Cats.InsertCategory(ctx, categoryName, parentID, 0.0)
			if err != nil {
				return err
			}
			cat, err = app.Cats.GetByID(ctx, id)
			if err != nil {
				return err
			}
		}

		if _, err := app.Cats.InsertRule(ctx, cat.ID, field, pattern, false, categorize.UserRulePriority); err != nil {
			return err
		}

		var retroCount int64
		if retroactive {
			retroCount, err = app.Cats.Recategorize(ctx, field, pattern, cat.ID)
			if err != nil {
				return err
			}
		}

		if jsonOut {
			output.PrintJSON(map[string]any{
				"field":               field,
				"pattern":             pattern,
				"category":            categoryName,
				"category_id":         cat.ID,
				"retroactive_updates": retroCount,
			})
			return nil
		}
		fmt.Printf("Rule added: %s '%s' -> %s\n", field, pattern, categoryName)
		if retroactive {
			fmt.Printf("Retroactively updated %d events\n", retroCount)
		}
		return nil
	},
}

var categorizeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all category rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := categorize.Seed(ctx, app.Cats); err != nil {
			return err
		}
		rules, err := app.Cats.ListRules(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			output.PrintJSON(rules)
			return nil
		}

		fmt.Printf("%-6s %-8s %-25s %-25s %-10s %s\n", "ID", "Builtin", "Pattern", "Category", "Field", "Priority")
		fmt.Println(strings.Repeat("-", 90))
		for _, r := range rules {
			builtin := "no"
			if r.IsBuiltin {
				builtin = "yes"
			}
			cat := "-"
			if r.CategoryName != nil {
				cat = *r.CategoryName
			}
			fmt.Printf("%-6d %-8s %-25s %-25s %-10s %d\n",
				r.ID, builtin, r.Pattern, cat, r.Field, r.Priority)
		}
		return nil
	},
}

var categorizeDeleteCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Delete a category rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rule id %q: %w", args[0], err)
		}

		ctx := context.Background()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		existed, err := app.Cats.DeleteRule(ctx, id)
		if err != nil {
			return err
		}
		if !existed {
			return apperr.New(apperr.CodeRuleNotFound, "rule %d not found", id)
		}
		fmt.Printf("Rule %d deleted\n", id)
		return nil
	},
}

func init() {
	categorizeSetCmd.Flags().String("field", "app", "field to match: app, title, or url_domain")
	categorizeSetCmd.Flags().Bool("retroactive", false, "apply to existing events")
	categorizeSetCmd.Flags().Bool("json", false, "output as JSON")
	categorizeListCmd.Flags().Bool("json", false, "output as JSON")
	categorizeCmd.AddCommand(categorizeSetCmd)
	categorizeCmd.AddCommand(categorizeListCmd)
	categorizeCmd.AddCommand(categorizeDeleteCmd)
}
