package categorize

import "timely/internal/domain"

// UncategorizedName is the fallback category for snapshots no rule matches.
const UncategorizedName = "uncategorized"

// BuiltinRulePriority is the priority of every seeded rule. User rules are
// added above this so they always win.
const BuiltinRulePriority = 100

// UserRulePriority is assigned to rules added through the CLI.
const UserRulePriority = 200

type builtinCategory struct {
	Name   string
	Parent string // empty for root categories
	Score  float64
}

type builtinRule struct {
	Category string
	Field    domain.RuleField
	Pattern  string
}

// builtinCategories is the canonical category tree. Parents must appear
// before their children.
var builtinCategories = []builtinCategory{
	{Name: "work", Score: 1.0},
	{Name: "work/dev", Parent: "work", Score: 1.5},
	{Name: "work/comms", Parent: "work", Score: 0.5},
	{Name: "work/office", Parent: "work", Score: 1.0},
	{Name: "work/design", Parent: "work", Score: 1.2},
	{Name: "browsing", Score: 0.0},
	{Name: "browsing/reference", Parent: "browsing", Score: 0.5},
	{Name: "media", Score: -0.8},
	{Name: "social", Score: -1.0},
	{Name: "games", Score: -1.5},
	{Name: UncategorizedName, Score: 0.0},
}

// builtinRules is the canonical rule set, reseeded on every startup. The
// (Field, Pattern) pair is the identity a stored builtin rule is diffed by.
var builtinRules = []builtinRule{
	// development tools
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "code"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "visual studio code"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "intellij*"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "goland"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "terminal"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "iterm*"},
	{Category: "work/dev", Field: domain.FieldApp, Pattern: "xcode"},
	{Category: "work/dev", Field: domain.FieldURLDomain, Pattern: "github.com"},
	{Category: "work/dev", Field: domain.FieldURLDomain, Pattern: "gitlab.com"},
	{Category: "work/dev", Field: domain.FieldURLDomain, Pattern: "localhost*"},

	// reference
	{Category: "browsing/reference", Field: domain.FieldURLDomain, Pattern: "stackoverflow.com"},
	{Category: "browsing/reference", Field: domain.FieldURLDomain, Pattern: "*.wikipedia.org"},
	{Category: "browsing/reference", Field: domain.FieldURLDomain, Pattern: "pkg.go.dev"},
	{Category: "browsing/reference", Field: domain.FieldURLDomain, Pattern: "docs.*"},

	// communication
	{Category: "work/comms", Field: domain.FieldApp, Pattern: "slack"},
	{Category: "work/comms", Field: domain.FieldApp, Pattern: "zoom*"},
	{Category: "work/comms", Field: domain.FieldApp, Pattern: "mail"},
	{Category: "work/comms", Field: domain.FieldURLDomain, Pattern: "mail.google.com"},
	{Category: "work/comms", Field: domain.FieldURLDomain, Pattern: "*.slack.com"},

	// office
	{Category: "work/office", Field: domain.FieldURLDomain, Pattern: "docs.google.com"},
	{Category: "work/office", Field: domain.FieldApp, Pattern: "numbers"},
	{Category: "work/office", Field: domain.FieldApp, Pattern: "pages"},
	{Category: "work/office", Field: domain.FieldApp, Pattern: "microsoft excel"},
	{Category: "work/office", Field: domain.FieldApp, Pattern: "notion"},

	// design
	{Category: "work/design", Field: domain.FieldApp, Pattern: "figma"},
	{Category: "work/design", Field: domain.FieldURLDomain, Pattern: "*.figma.com"},

	// media
	{Category: "media", Field: domain.FieldURLDomain, Pattern: "*.youtube.com"},
	{Category: "media", Field: domain.FieldURLDomain, Pattern: "youtube.com"},
	{Category: "media", Field: domain.FieldURLDomain, Pattern: "*.netflix.com"},
	{Category: "media", Field: domain.FieldApp, Pattern: "spotify"},
	{Category: "media", Field: domain.FieldApp, Pattern: "music"},

	// social
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "*.reddit.com"},
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "reddit.com"},
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "twitter.com"},
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "x.com"},
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "*.instagram.com"},
	{Category: "social", Field: domain.FieldURLDomain, Pattern: "news.ycombinator.com"},

	// games
	{Category: "games", Field: domain.FieldApp, Pattern: "steam"},
	{Category: "games", Field: domain.FieldTitle, Pattern: "*minecraft*"},
}
