package field

import (
	"encoding/json"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/gtdspace/internal/marker"
)

// decoder is one candidate decoding of a token. It reports false when the
// token is not in the encoding it understands.
type decoder func(marker.Token) (Field, bool)

// decoders lists the candidate decoders per kind in the order they are tried.
var decoders = map[marker.Kind][]decoder{
	marker.SingleSelect: {bracket(decodeSingleSelect), legacy(legacySingleSelect)},
	marker.MultiSelect:  {bracket(decodeMultiSelect), legacy(legacyMultiSelect)},
	marker.Checkbox:     {bracket(decodeCheckbox), legacy(legacyCheckbox)},
	marker.DateTime:     {bracket(decodeDateTime), legacy(legacyDateTime)},
	marker.References:   {bracket(decodeReferences), legacy(legacyReferences)},
	marker.List:         {bracket(decodeList)},
}

// FromToken decodes a scanned token.
func FromToken(tok marker.Token) (Field, bool) {
	for _, dec := range decoders[tok.Kind] {
		if f, ok := dec(tok); ok {
			return f, true
		}
	}
	return nil, false
}

// Decode decodes text consisting of exactly one marker or legacy element.
func Decode(text string) (Field, bool) {
	text = strings.TrimSpace(text)
	toks := marker.Scan(text)
	if len(toks) != 1 || toks[0].Start != 0 || toks[0].End != len(text) {
		return nil, false
	}
	return FromToken(toks[0])
}

func bracket(fn func(marker.Token) Field) decoder {
	return func(tok marker.Token) (Field, bool) {
		if tok.Legacy {
			return nil, false
		}
		return fn(tok), true
	}
}

func legacy(fn func(name string, p legacyPayload) (Field, bool)) decoder {
	return func(tok marker.Token) (Field, bool) {
		if !tok.Legacy {
			return nil, false
		}
		p, err := parseLegacy(tok)
		if err != nil {
			slog.Debug("field: malformed legacy payload", "name", tok.Name, "err", err)
			return nil, false
		}
		return fn(tok.Name, p)
	}
}

func decodeSingleSelect(tok marker.Token) Field {
	value := marker.UnescapePayload(tok.Payload)
	if tok.Subtype == "habit-status" {
		return habitStatus(value)
	}
	return SingleSelect{Type: tok.Subtype, Value: NormalizeSelect(tok.Subtype, value)}
}

func decodeMultiSelect(tok marker.Token) Field {
	return MultiSelect{Type: tok.Subtype, Values: splitValues(strings.Split(tok.Payload, ","), true)}
}

func decodeCheckbox(tok marker.Token) Field {
	return Checkbox{Type: tok.Subtype, Checked: strings.TrimSpace(tok.Payload) == "true"}
}

func decodeDateTime(tok marker.Token) Field {
	return DateTime{Type: tok.Subtype, Value: normalizeDate(tok.Subtype, marker.UnescapePayload(tok.Payload))}
}

func decodeReferences(tok marker.Token) Field {
	return NewReferenceList(tok.Name, DecodePaths(tok.Payload))
}

func decodeList(tok marker.Token) Field {
	return ListView{List: tok.Name, Param: strings.TrimSpace(marker.UnescapePayload(tok.Payload))}
}

// habitStatus migrates the legacy habit-status select to a checkbox.
func habitStatus(value string) Checkbox {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "complete", "completed", "true", "done":
		return Checkbox{Type: "habit-status", Checked: true}
	}
	return Checkbox{Type: "habit-status"}
}

// splitValues trims, drops empty entries and de-duplicates.
func splitValues(parts []string, unescape bool) []string {
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if unescape {
			p = marker.UnescapePayload(p)
		}
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

var datePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

func normalizeDate(typ, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || datePrefixRe.MatchString(value) {
		return value
	}
	slog.Debug("field: invalid datetime value, clearing", "type", typ, "value", value)
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Time parses the value. Values without a zone are read in loc.
func (d DateTime) Time(loc *time.Location) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, d.Value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// legacyPayload is the JSON carried in a data-* attribute.
type legacyPayload struct {
	Type       string          `json:"type"`
	Value      json.RawMessage `json:"value"`
	Checked    *bool           `json:"checked"`
	Paths      []string        `json:"paths"`
	References json.RawMessage `json:"references"`

	label string
}

func parseLegacy(tok marker.Token) (legacyPayload, error) {
	raw := strings.TrimSpace(html.UnescapeString(tok.Payload))
	p := legacyPayload{label: SanitizeLabel(tok.Label)}
	if strings.HasPrefix(raw, "[") {
		err := json.Unmarshal([]byte(raw), &p.Paths)
		return p, err
	}
	err := json.Unmarshal([]byte(raw), &p)
	return p, err
}

// jsonText reads a JSON scalar as a string.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return strconv.FormatBool(b)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// jsonList reads a JSON array of strings or a comma separated string.
func jsonList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var arr []string
	if json.Unmarshal(raw, &arr) == nil {
		return arr
	}
	return strings.Split(jsonText(raw), ",")
}

func legacySingleSelect(_ string, p legacyPayload) (Field, bool) {
	value := jsonText(p.Value)
	if value == "" {
		value = p.label
	}
	if p.Type == "habit-status" {
		return habitStatus(value), true
	}
	return SingleSelect{Type: p.Type, Value: NormalizeSelect(p.Type, value)}, true
}

func legacyMultiSelect(_ string, p legacyPayload) (Field, bool) {
	return MultiSelect{Type: p.Type, Values: splitValues(jsonList(p.Value), false)}, true
}

func legacyCheckbox(_ string, p legacyPayload) (Field, bool) {
	if p.Checked != nil {
		return Checkbox{Type: p.Type, Checked: *p.Checked}, true
	}
	return Checkbox{Type: p.Type, Checked: jsonText(p.Value) == "true"}, true
}

func legacyDateTime(_ string, p legacyPayload) (Field, bool) {
	return DateTime{Type: p.Type, Value: normalizeDate(p.Type, jsonText(p.Value))}, true
}

func legacyReferences(name string, p legacyPayload) (Field, bool) {
	paths := p.Paths
	if paths == nil {
		paths = jsonList(p.References)
	}
	if paths == nil {
		paths = DecodePaths(jsonText(p.Value))
	}
	return NewReferenceList(name, paths), true
}

var labelPolicy = bluemonday.StrictPolicy()

// SanitizeLabel strips markup from a legacy element's inner label.
func SanitizeLabel(label string) string {
	return strings.TrimSpace(html.UnescapeString(labelPolicy.Sanitize(label)))
}
