package field

import (
	"log/slog"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SelectSet is the canonical token set of a single-select type.
type SelectSet struct {
	Values  []string
	Default string
}

var lifecycle = []string{"in-progress", "waiting", "completed", "cancelled"}

// Selects lists the enumerated single-select types. Types not listed here are
// custom selects and accept any slug.
var Selects = map[string]SelectSet{
	"status":              {Values: lifecycle, Default: "in-progress"},
	"project-status":      {Values: lifecycle, Default: "in-progress"},
	"goal-status":         {Values: lifecycle, Default: "in-progress"},
	"effort":              {Values: []string{"small", "medium", "large", "extra-large"}, Default: "medium"},
	"habit-frequency":     {Values: []string{"daily", "every-other-day", "twice-weekly", "weekly", "weekdays", "biweekly", "monthly"}, Default: "daily"},
	"area-status":         {Values: []string{"active", "needs-attention", "on-hold", "completed"}, Default: "active"},
	"area-review-cadence": {Values: []string{"weekly", "monthly", "quarterly", "annually"}, Default: "monthly"},
	"vision-horizon":      {Values: []string{"1-year", "2-years", "3-years", "5-years", "10-years"}, Default: "3-years"},
}

// lifecycleAliases maps folded legacy labels for status-like types.
var lifecycleAliases = map[string]string{
	"not-started": "in-progress",
	"active":      "in-progress",
	"planning":    "in-progress",
	"started":     "in-progress",
	"todo":        "in-progress",
	"to-do":       "in-progress",
	"on-hold":     "waiting",
	"paused":      "waiting",
	"blocked":     "waiting",
	"done":        "completed",
	"complete":    "completed",
	"finished":    "completed",
	"canceled":    "cancelled",
	"dropped":     "cancelled",
}

// aliases maps folded legacy labels to canonical slugs per select type.
var aliases = map[string]map[string]string{
	"status":         lifecycleAliases,
	"project-status": lifecycleAliases,
	"goal-status":    lifecycleAliases,
	"effort": {
		"xl":    "extra-large",
		"huge":  "extra-large",
		"s":     "small",
		"m":     "medium",
		"l":     "large",
		"quick": "small",
	},
	"habit-frequency": {
		"every-day":        "daily",
		"every-other":      "every-other-day",
		"twice-a-week":     "twice-weekly",
		"once-a-week":      "weekly",
		"every-weekday":    "weekdays",
		"mon-fri":          "weekdays",
		"bi-weekly":        "biweekly",
		"every-other-week": "biweekly",
		"fortnightly":      "biweekly",
		"once-a-month":     "monthly",
	},
	"area-status": {
		"in-progress":  "active",
		"not-started":  "active",
		"attention":    "needs-attention",
		"needs-review": "needs-attention",
		"waiting":      "on-hold",
		"paused":       "on-hold",
		"done":         "completed",
		"complete":     "completed",
	},
	"area-review-cadence": {
		"week":     "weekly",
		"month":    "monthly",
		"quarter":  "quarterly",
		"year":     "annually",
		"yearly":   "annually",
		"annual":   "annually",
		"biweekly": "weekly",
	},
	"vision-horizon": {
		"1-years":  "1-year",
		"one-year": "1-year",
		"2-year":   "2-years",
		"3-year":   "3-years",
		"5-year":   "5-years",
		"10-year":  "10-years",
	},
}

// NormalizeSelect maps a raw value to the canonical slug of typ. Unknown
// values of enumerated types fall back to the type's default.
func NormalizeSelect(typ, raw string) string {
	folded := slug.Make(strings.TrimSpace(raw))
	set, enumerated := Selects[typ]
	if !enumerated {
		return folded
	}
	for _, v := range set.Values {
		if v == folded {
			return v
		}
	}
	if v, ok := aliases[typ][folded]; ok {
		return v
	}
	slog.Debug("field: unknown select value, using default",
		"type", typ, "value", raw, "default", set.Default)
	return set.Default
}

// DefaultSelect returns the default slug of an enumerated select type.
func DefaultSelect(typ string) string {
	return Selects[typ].Default
}

// Label renders a slug as a display label ("in-progress" -> "In Progress").
func Label(value string) string {
	// A Caser keeps state and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(value, "-", " "))
}
