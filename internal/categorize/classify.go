// Package categorize maps activity snapshots to categories through an
// ordered rule list, and seeds the builtin rule set.
package categorize

import (
	"strings"

	"github.com/gobwas/glob"

	"timely/internal/domain"
)

// Classify returns the category of the first rule matching the snapshot.
// Rules must already be sorted in evaluation order (priority descending, id
// ascending); ok is false when nothing matches. Pure function: callers
// re-evaluate it per new event so rule changes take effect immediately.
func Classify(snap domain.Snapshot, rules []domain.CategoryRule) (categoryID int64, ok bool) {
	for _, rule := range rules {
		value, present := rule.Field.Select(snap)
		if !present {
			continue
		}
		if matchPattern(value, rule.Pattern) {
			return rule.CategoryID, true
		}
	}
	return 0, false
}

// matchPattern compares case-insensitively: glob semantics when the pattern
// contains a wildcard, exact equality otherwise. A pattern that fails to
// compile never matches.
func matchPattern(value, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return strings.EqualFold(value, pattern)
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return false
	}
	return g.Match(strings.ToLower(value))
}
