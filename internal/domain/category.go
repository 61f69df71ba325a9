package domain

import "fmt"

// Category groups events for reporting. A name containing "/" implies a
// parent slug (e.g. "work/dev" is a child of "work"). ProductivityScore sign
// convention: positive = productive, negative = distracting, zero = neutral.
type Category struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	ParentID          *int64  `json:"parent_id,omitempty"`
	ProductivityScore float64 `json:"productivity_score"`
}

// RuleField identifies which snapshot field a category rule matches against.
// It is a closed set; use ParseRuleField for untrusted input.
type RuleField string

const (
	FieldApp       RuleField = "app"
	FieldTitle     RuleField = "title"
	FieldURLDomain RuleField = "url_domain"
)

// ParseRuleField validates a field name coming from the CLI or the API.
func ParseRuleField(s string) (RuleField, error) {
	switch RuleField(s) {
	case FieldApp, FieldTitle, FieldURLDomain:
		return RuleField(s), nil
	}
	return "", fmt.Errorf("invalid rule field %q (want app, title or url_domain)", s)
}

// Select returns the snapshot value this field matches against. The second
// return is false when the snapshot has no value for the field (a snapshot
// without a URL domain cannot match a url_domain rule).
func (f RuleField) Select(s Snapshot) (string, bool) {
	switch f {
	case FieldApp:
		return s.App, true
	case FieldTitle:
		return s.Title, true
	case FieldURLDomain:
		if s.URLDomain == nil {
			return "", false
		}
		return *s.URLDomain, true
	}
	return "", false
}

// CategoryRule maps a snapshot field pattern to a category. Rules are
// evaluated in descending priority order, ties broken by ascending id; the
// first match wins.
type CategoryRule struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	CategoryName *string   `json:"category_name,omitempty"`
	Field        RuleField `json:"field"`
	Pattern      string    `json:"pattern"`
	IsBuiltin    bool      `json:"is_builtin"`
	Priority     int       `json:"priority"`
}
