package categorize

import (
	"context"
	"fmt"

	"timely/internal/domain"
	"timely/internal/store"
)

type ruleKey struct {
	Field   domain.RuleField
	Pattern string
}

// Seed brings the stored builtin categories and rules in line with the
// canonical tables. It is idempotent and runs on every startup: builtin
// rules whose (field, pattern) identity left the canonical set are purged,
// missing ones are inserted, and rules added by the user are never touched.
func Seed(ctx context.Context, cats *store.CategoryRepository) error {
	canonical := make(map[ruleKey]struct{}, len(builtinRules))
	for _, r := range builtinRules {
		key := ruleKey{r.Field, r.Pattern}
		if _, dup := canonical[key]; dup {
			// Two canonical entries with the same identity would reseed
			// last-writer-wins silently; refuse instead.
			return fmt.Errorf("duplicate builtin rule identity (%s, %q)", r.Field, r.Pattern)
		}
		canonical[key] = struct{}{}
	}

	categoryIDs := make(map[string]int64, len(builtinCategories))
	for _, c := range builtinCategories {
		var parentID *int64
		if c.Parent != "" {
			id, ok := categoryIDs[c.Parent]
			if !ok {
				return fmt.Errorf("builtin category %q listed before its parent %q", c.Name, c.Parent)
			}
			parentID = &id
		}
		id, err := cats.InsertCategory(ctx, c.Name, parentID, c.Score)
		if err != nil {
			return err
		}
		categoryIDs[c.Name] = id
	}

	stored, err := cats.ListBuiltinRules(ctx)
	if err != nil {
		return err
	}
	present := make(map[ruleKey]struct{}, len(stored))
	for _, r := range stored {
		key := ruleKey{r.Field, r.Pattern}
		if _, keep := canonical[key]; !keep {
			if _, err := cats.DeleteRule(ctx, r.ID); err != nil {
				return err
			}
			continue
		}
		present[key] = struct{}{}
	}

	for _, r := range builtinRules {
		if _, exists := present[ruleKey{r.Field, r.Pattern}]; exists {
			continue
		}
		catID, ok := categoryIDs[r.Category]
		if !ok {
			return fmt.Errorf("builtin rule references unknown category %q", r.Category)
		}
		if _, err := cats.InsertRule(ctx, catID, r.Field, r.Pattern, true, BuiltinRulePriority); err != nil {
			return err
		}
	}
	return nil
}
