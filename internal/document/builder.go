// Package document assembles canonical entity documents. Each builder parses
// the existing document, re-emits its known sections in a fixed order from
// overrides, existing values or defaults, and appends unknown sections
// verbatim.
package document

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// now is replaced in tests.
var now = time.Now

// Base holds the fields shared by every entity.
type Base struct {
	Title string `json:"title,omitempty"`
	// Created overrides the creation timestamp.
	Created string `json:"created,omitempty"`
	// Existing is the current document text, empty for a new document.
	Existing string `json:"existing,omitempty"`
}

// Refs are reference group overrides. A nil slice keeps the existing list;
// an empty slice clears it.
type Refs struct {
	Projects []string `json:"projects"`
	Areas    []string `json:"areas"`
	Goals    []string `json:"goals"`
	Vision   []string `json:"vision"`
	Purpose  []string `json:"purpose"`
}

func (r Refs) get(key string) []string {
	switch key {
	case "projects":
		return r.Projects
	case "areas":
		return r.Areas
	case "goals":
		return r.Goals
	case "vision":
		return r.Vision
	case "purpose":
		return r.Purpose
	}
	return nil
}

var refHeadings = map[string]string{
	"projects":   "Projects References",
	"areas":      "Areas References",
	"goals":      "Goals References",
	"vision":     "Vision References",
	"purpose":    "Purpose References",
	"references": "References",
}

type part struct {
	key     string
	heading string
	body    string
}

type builder struct {
	o      outline
	title  string
	layout map[string]bool
	parts  []part
}

func newBuilder(b Base, defaultTitle string) *builder {
	o := parseOutline(b.Existing)
	title := strings.TrimSpace(b.Title)
	if title == "" {
		title = o.title
	}
	if title == "" {
		title = defaultTitle
	}
	return &builder{o: o, title: title, layout: map[string]bool{}}
}

// section adds a canonical section. Empty bodies are not written.
func (b *builder) section(key, heading, body string) {
	b.layout[key] = true
	b.parts = append(b.parts, part{key: key, heading: heading, body: strings.TrimSpace(body)})
}

// selectSection writes a single-select from the override, the existing
// section or the type's default.
func (b *builder) selectSection(key, heading, typ, override string) {
	value := field.DefaultSelect(typ)
	if override != "" {
		value = override
	} else if f, ok := b.o.fieldIn(key, marker.SingleSelect); ok {
		value = f.(field.SingleSelect).Value
	}
	b.section(key, heading, field.NewSingleSelect(typ, value).Marker())
}

// dateSection writes a datetime. Optional sections are skipped when no
// value is available.
func (b *builder) dateSection(key, heading, typ, override string, optional bool) {
	dt := field.DateTime{Type: typ}
	if f, ok := b.o.fieldIn(key, marker.DateTime); ok {
		dt = f.(field.DateTime)
	}
	if override != "" {
		dt = field.NewDateTime(dt.Type, override)
	}
	if optional && dt.Value == "" {
		b.section(key, heading, "")
		return
	}
	b.section(key, heading, dt.Marker())
}

// refSection writes a reference group. Optional groups are skipped when empty.
func (b *builder) refSection(key string, override []string, optional bool) {
	name := "references"
	if key != "references" {
		name = key + "-references"
	}
	paths := override
	if paths == nil {
		if f, ok := b.o.fieldIn(key, marker.References); ok {
			paths = f.(field.ReferenceList).Paths
		}
	}
	rl := field.NewReferenceList(name, paths)
	if optional && len(rl.Paths) == 0 {
		b.section(key, refHeadings[key], "")
		return
	}
	b.section(key, refHeadings[key], rl.Marker())
}

func (b *builder) refSections(r Refs, keys []string, optional map[string]bool) {
	for _, k := range keys {
		b.refSection(k, r.get(k), optional[k])
	}
}

// textSection writes free text from the override, the existing section or
// def.
func (b *builder) textSection(key, heading string, override *string, def string) {
	body := def
	if override != nil {
		body = *override
	} else if t, ok := b.o.text(key); ok {
		body = t
	}
	b.section(key, heading, body)
}

// createdSection keeps the existing creation marker, including its field
// type, and stamps the current time for new documents.
func (b *builder) createdSection(override string) {
	dt := field.DateTime{Type: "created_date_time"}
	if f, ok := b.o.fieldIn("created", marker.DateTime); ok {
		dt = f.(field.DateTime)
	} else if f, ok := b.o.footer.(field.DateTime); ok {
		dt = f
	}
	if override != "" {
		dt = field.NewDateTime(dt.Type, override)
	}
	if dt.Value == "" {
		dt.Value = now().Format(time.RFC3339)
	}
	b.section("created", "Created", dt.Marker())
}

func (b *builder) render() string {
	var sb strings.Builder
	sb.WriteString("# " + marker.EscapeText(b.title) + "\n\n")
	if b.o.preamble != "" {
		sb.WriteString(b.o.preamble + "\n\n")
	}
	for _, p := range b.parts {
		if p.body == "" {
			continue
		}
		sb.WriteString("## " + p.heading + "\n" + p.body + "\n\n")
	}
	for _, s := range b.o.sections {
		if s.key != "" && b.layout[s.key] {
			continue
		}
		sb.WriteString("## " + s.heading + "\n")
		if s.body != "" {
			sb.WriteString(s.body + "\n")
		}
		sb.WriteString("\n")
	}
	return Normalize(sb.String())
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// Normalize collapses runs of blank lines, trims trailing whitespace and
// ends the text with exactly one newline.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimRight(text, " \t\n") + "\n"
}
