package document

import (
	"regexp"
	"strings"

	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// headingAliases maps normalised heading text to a section key.
var headingAliases = map[string]string{
	"status":               "status",
	"habit status":         "status",
	"project status":       "status",
	"goal status":          "status",
	"area status":          "status",
	"frequency":            "frequency",
	"habit frequency":      "frequency",
	"focus time":           "focus_time",
	"focus date":           "focus_date",
	"focus date/time":      "focus_date",
	"due date":             "due_date",
	"due":                  "due_date",
	"target date":          "target_date",
	"goal target date":     "target_date",
	"created":              "created",
	"created date":         "created",
	"created date/time":    "created",
	"created on":           "created",
	"review cadence":       "review_cadence",
	"review frequency":     "review_cadence",
	"horizon":              "horizon",
	"vision horizon":       "horizon",
	"time horizon":         "horizon",
	"effort":               "effort",
	"contexts":             "contexts",
	"references":           "references",
	"projects":             "projects",
	"projects references":  "projects",
	"related projects":     "projects",
	"areas":                "areas",
	"areas references":     "areas",
	"areas of focus":       "areas",
	"related areas":        "areas",
	"goals":                "goals",
	"goals references":     "goals",
	"related goals":        "goals",
	"vision":               "vision",
	"vision references":    "vision",
	"purpose":              "purpose",
	"purpose references":   "purpose",
	"purpose & principles": "purpose",
	"description":          "description",
	"notes":                "notes",
	"narrative":            "narrative",
	"vision narrative":     "narrative",
	"history":              "history",
	"actions":              "actions",
	"areas list":           "list",
	"goals list":           "list",
	"visions list":         "list",
	"vision list":          "list",
	"projects list":        "list",
	"habits list":          "list",
}

var spaceRun = regexp.MustCompile(`\s+`)

// headingKey returns the section key of a heading, or "".
func headingKey(heading string) string {
	h := strings.ToLower(strings.ReplaceAll(heading, "#", ""))
	h = strings.TrimSpace(spaceRun.ReplaceAllString(h, " "))
	return headingAliases[h]
}

type section struct {
	heading string
	key     string
	body    string
}

// outline is a document split at its level-2 headings.
type outline struct {
	title    string
	preamble string
	sections []section
	// footer is the created marker of the older "---" footer layout.
	footer field.Field
}

var (
	fenceRe  = regexp.MustCompile("^[ \t]*(```|~~~)")
	footerRe = regexp.MustCompile(`\n[ \t]*---[ \t]*\n\s*(\[!datetime:created_date(?:_time)?:[^\]\n]*\])\s*$`)
)

func parseOutline(text string) outline {
	var o outline
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if m := footerRe.FindStringSubmatchIndex(text); m != nil {
		if f, ok := field.Decode(text[m[2]:m[3]]); ok {
			o.footer = f
			text = text[:m[0]]
		}
	}

	var (
		cur     *section
		pre     []string
		body    []string
		inFence bool
		seen    = map[string]bool{}
	)
	flush := func() {
		if cur != nil {
			cur.body = strings.TrimSpace(strings.Join(body, "\n"))
			o.sections = append(o.sections, *cur)
		}
		body = nil
	}
	for _, line := range strings.Split(text, "\n") {
		if fenceRe.MatchString(line) {
			inFence = !inFence
		}
		if !inFence {
			if h, ok := strings.CutPrefix(line, "## "); ok {
				flush()
				h = strings.TrimSpace(h)
				key := headingKey(h)
				if seen[key] {
					key = ""
				}
				if key != "" {
					seen[key] = true
				}
				cur = &section{heading: h, key: key}
				continue
			}
			if t, ok := strings.CutPrefix(line, "# "); ok && cur == nil && o.title == "" {
				o.title = marker.UnescapeText(strings.TrimSpace(t))
				continue
			}
		}
		if cur == nil {
			pre = append(pre, line)
		} else {
			body = append(body, line)
		}
	}
	flush()
	o.preamble = strings.TrimSpace(strings.Join(pre, "\n"))
	return o
}

func (o outline) section(key string) (section, bool) {
	for _, s := range o.sections {
		if s.key == key {
			return s, true
		}
	}
	return section{}, false
}

// fieldIn returns the first decodable marker of kind in the section.
func (o outline) fieldIn(key string, kind marker.Kind) (field.Field, bool) {
	s, ok := o.section(key)
	if !ok {
		return nil, false
	}
	for _, tok := range marker.Scan(s.body) {
		if f, ok := field.FromToken(tok); ok && f.Kind() == kind {
			return f, true
		}
	}
	return nil, false
}

// text returns the body of a section.
func (o outline) text(key string) (string, bool) {
	s, ok := o.section(key)
	if !ok || s.body == "" {
		return "", false
	}
	return s.body, true
}
