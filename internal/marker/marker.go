// Package marker implements the bracket-marker grammar used to embed typed
// fields inside Markdown prose, plus the legacy inline HTML form.
//
//	[!singleselect:<type>:<value>]
//	[!multiselect:<type>:<csv-values>]
//	[!checkbox:<type>:<true|false>]
//	[!datetime:<type>:<iso-value>]
//	[!references:<json-or-csv>]  [!areas-references:...]
//	[!projects-list]  [!actions-list:<statusFilter>]
//	<div data-<kind>='<json>' class="<kind>-block">label</div>
package marker

import (
	"regexp"
	"sort"
	"strings"
)

// Kind identifies the family a marker belongs to.
type Kind string

const (
	SingleSelect Kind = "singleselect"
	MultiSelect  Kind = "multiselect"
	Checkbox     Kind = "checkbox"
	DateTime     Kind = "datetime"
	References   Kind = "references"
	List         Kind = "list"
)

// Kinds lists every marker family in the order field blocks are matched.
var Kinds = []Kind{MultiSelect, SingleSelect, Checkbox, DateTime, References, List}

// Horizons are the prefixes accepted in front of "-references".
var Horizons = []string{"areas", "goals", "vision", "purpose", "projects", "habits"}

// listParts are the components accepted in a "-list" marker name.
var listParts = map[string]struct{}{
	"projects": {}, "areas": {}, "goals": {}, "visions": {}, "habits": {}, "actions": {},
}

var (
	// FieldPattern matches select, checkbox and datetime markers.
	FieldPattern = regexp.MustCompile(`\[!(singleselect|multiselect|checkbox|datetime):([A-Za-z0-9_-]+):([^\]\n]*)\]`)
	// ReferencesPattern matches generic and horizon reference markers. The
	// payload is either a bracketed JSON array or a run without ']'.
	ReferencesPattern = regexp.MustCompile(`\[!((?:[a-z]+-)?references):(\[[^\]\n]*\]|[^\]\n]*)\]`)
	// ListPattern matches list-view markers.
	ListPattern = regexp.MustCompile(`\[!([a-z]+(?:-[a-z]+)*-list)(?::([^\]\n]*))?\]`)
	// LegacyPattern matches the inline HTML encoding. RE2 has no
	// backreferences, so the data-* and class names are compared in code.
	LegacyPattern = regexp.MustCompile(`(?s)<div\s+data-([a-z]+(?:-[a-z]+)*)='([^']*)'\s+class="([a-z]+(?:-[a-z]+)*)-block"[^>]*>(.*?)</div>`)
)

// Token is one literal marker occurrence inside a text.
type Token struct {
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Kind    Kind   `json:"kind"`
	Name    string `json:"name"`
	Subtype string `json:"subtype,omitempty"`
	Payload string `json:"payload"`
	Legacy  bool   `json:"legacy,omitempty"`
	Label   string `json:"label,omitempty"`
}

// KindOf maps a marker or legacy data-* name to its kind. Reference and list
// names are validated against the known horizons.
func KindOf(name string) (Kind, bool) {
	switch Kind(name) {
	case SingleSelect, MultiSelect, Checkbox, DateTime, References:
		return Kind(name), true
	}
	if IsReferencesName(name) {
		return References, true
	}
	if _, ok := CanonicalListName(name); ok {
		return List, true
	}
	return "", false
}

// IsReferencesName reports whether name is "references" or a known
// "<horizon>-references".
func IsReferencesName(name string) bool {
	if name == string(References) {
		return true
	}
	prefix, ok := strings.CutSuffix(name, "-references")
	if !ok {
		return false
	}
	for _, h := range Horizons {
		if prefix == h {
			return true
		}
	}
	return false
}

// CanonicalListName validates a list marker name and maps the legacy
// "<a>-and-<b>-list" spelling to "<a>-<b>-list".
func CanonicalListName(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, "-list")
	if !ok || base == "" {
		return "", false
	}
	var parts []string
	for _, p := range strings.Split(base, "-") {
		if p == "and" {
			continue
		}
		if _, known := listParts[p]; !known {
			return "", false
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 || len(parts) > 3 {
		return "", false
	}
	return strings.Join(parts, "-") + "-list", true
}

// Scan returns every marker and legacy HTML token in text ordered by offset.
// Overlapping matches keep the one that starts first.
func Scan(text string) []Token {
	if !strings.Contains(text, "[!") && !strings.Contains(text, "<div") {
		return nil
	}
	var out []Token

	for _, m := range FieldPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Token{
			Text:    text[m[0]:m[1]],
			Start:   m[0],
			End:     m[1],
			Kind:    Kind(text[m[2]:m[3]]),
			Name:    text[m[2]:m[3]],
			Subtype: text[m[4]:m[5]],
			Payload: text[m[6]:m[7]],
		})
	}

	for _, m := range ReferencesPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if !IsReferencesName(name) {
			continue
		}
		out = append(out, Token{
			Text:    text[m[0]:m[1]],
			Start:   m[0],
			End:     m[1],
			Kind:    References,
			Name:    name,
			Payload: text[m[4]:m[5]],
		})
	}

	for _, m := range ListPattern.FindAllStringSubmatchIndex(text, -1) {
		name, ok := CanonicalListName(text[m[2]:m[3]])
		if !ok {
			continue
		}
		tok := Token{
			Text:  text[m[0]:m[1]],
			Start: m[0],
			End:   m[1],
			Kind:  List,
			Name:  name,
		}
		if m[4] >= 0 {
			tok.Payload = text[m[4]:m[5]]
		}
		out = append(out, tok)
	}

	for _, m := range LegacyPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if name != text[m[6]:m[7]] {
			continue
		}
		kind, ok := KindOf(name)
		if !ok || kind == List {
			continue
		}
		out = append(out, Token{
			Text:    text[m[0]:m[1]],
			Start:   m[0],
			End:     m[1],
			Kind:    kind,
			Name:    name,
			Payload: text[m[4]:m[5]],
			Legacy:  true,
			Label:   text[m[8]:m[9]],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})

	// Drop tokens nested inside an earlier one (a marker quoted in a legacy label).
	kept := out[:0]
	end := -1
	for _, t := range out {
		if t.Start < end {
			continue
		}
		kept = append(kept, t)
		end = t.End
	}
	return kept
}

// Strip removes every token from text.
func Strip(text string, tokens []Token) string {
	if len(tokens) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, t := range tokens {
		b.WriteString(text[last:t.Start])
		last = t.End
	}
	b.WriteString(text[last:])
	return b.String()
}
