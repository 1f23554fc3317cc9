// Package field implements the codecs that turn typed field values into
// marker text and back. Each kind has an ordered list of candidate decoders:
// the bracket grammar first, the legacy inline HTML second.
package field

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/starford/gtdspace/internal/marker"
)

// Field is a decoded marker value.
type Field interface {
	// Kind is the marker family.
	Kind() marker.Kind
	// Name is the marker name and the editor block type
	// ("singleselect", "areas-references", "projects-list").
	Name() string
	// Marker encodes the value in the bracket grammar.
	Marker() string
	// HTML encodes the value in the legacy inline HTML form.
	HTML() string
}

// SingleSelect holds one token from an enumerated set.
type SingleSelect struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (SingleSelect) Kind() marker.Kind { return marker.SingleSelect }
func (SingleSelect) Name() string      { return string(marker.SingleSelect) }

func (s SingleSelect) Marker() string {
	return "[!singleselect:" + s.Type + ":" + marker.EscapePayload(s.Value) + "]"
}

func (s SingleSelect) HTML() string {
	return legacyHTML(s.Name(), s, Label(s.Value))
}

// MultiSelect holds an ordered set of free-form tokens.
type MultiSelect struct {
	Type   string   `json:"type"`
	Values []string `json:"value"`
}

func (MultiSelect) Kind() marker.Kind { return marker.MultiSelect }
func (MultiSelect) Name() string      { return string(marker.MultiSelect) }

func (m MultiSelect) Marker() string {
	escaped := make([]string, len(m.Values))
	for i, v := range m.Values {
		escaped[i] = marker.EscapePayload(v)
	}
	return "[!multiselect:" + m.Type + ":" + strings.Join(escaped, ",") + "]"
}

func (m MultiSelect) HTML() string {
	labels := make([]string, len(m.Values))
	for i, v := range m.Values {
		labels[i] = Label(v)
	}
	return legacyHTML(m.Name(), m, strings.Join(labels, ", "))
}

// Checkbox holds a boolean.
type Checkbox struct {
	Type    string `json:"type"`
	Checked bool   `json:"checked"`
}

func (Checkbox) Kind() marker.Kind { return marker.Checkbox }
func (Checkbox) Name() string      { return string(marker.Checkbox) }

func (c Checkbox) Marker() string {
	return "[!checkbox:" + c.Type + ":" + boolText(c.Checked) + "]"
}

func (c Checkbox) HTML() string {
	label := "To Do"
	if c.Checked {
		label = "Complete"
	}
	return legacyHTML(c.Name(), c, label)
}

// DateTime holds an ISO-8601 date or date-time string.
type DateTime struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (DateTime) Kind() marker.Kind { return marker.DateTime }
func (DateTime) Name() string      { return string(marker.DateTime) }

func (d DateTime) Marker() string {
	return "[!datetime:" + d.Type + ":" + marker.EscapePayload(d.Value) + "]"
}

func (d DateTime) HTML() string {
	return legacyHTML(d.Name(), d, d.Value)
}

var timeComponentRe = regexp.MustCompile(`T\d{2}:\d{2}`)

// HasTime reports whether the value carries a time of day. An explicit
// "_time" suffix on the field type wins over inspecting the value.
func (d DateTime) HasTime() bool {
	if strings.HasSuffix(d.Type, "_time") {
		return true
	}
	return timeComponentRe.MatchString(d.Value)
}

// ReferenceList holds normalised document paths.
type ReferenceList struct {
	Group string   `json:"name"`
	Paths []string `json:"paths"`
}

// NewReferenceList builds a reference list for the marker name
// ("references", "areas-references", ...) with normalised paths.
func NewReferenceList(name string, paths []string) ReferenceList {
	return ReferenceList{Group: name, Paths: NormalizePaths(paths)}
}

func (ReferenceList) Kind() marker.Kind { return marker.References }
func (r ReferenceList) Name() string    { return r.Group }

func (r ReferenceList) Marker() string {
	return "[!" + r.Group + ":" + EncodePaths(r.Paths) + "]"
}

func (r ReferenceList) HTML() string {
	return legacyHTML(r.Group, r.Paths, strings.Join(r.Paths, ", "))
}

// ListView is a computed list directive. It stores no value; Param is the
// status filter for actions-list and the list type for the others.
type ListView struct {
	List  string `json:"name"`
	Param string `json:"param,omitempty"`
}

func (ListView) Kind() marker.Kind { return marker.List }
func (l ListView) Name() string    { return l.List }

func (l ListView) Marker() string {
	if l.Param == "" {
		return "[!" + l.List + "]"
	}
	return "[!" + l.List + ":" + marker.EscapePayload(l.Param) + "]"
}

func (l ListView) HTML() string {
	return legacyHTML(l.List, map[string]string{"param": l.Param}, "")
}

// ListType is the entity the list shows ("projects", "projects-areas").
func (l ListView) ListType() string {
	return strings.TrimSuffix(l.List, "-list")
}

// StatusFilter is the filter applied by actions-list.
func (l ListView) StatusFilter() string {
	if l.List == "actions-list" {
		return l.Param
	}
	return ""
}

// Identity names the slot a field occupies in a document: two fields with
// the same identity are versions of the same value.
func Identity(f Field) string {
	switch v := f.(type) {
	case SingleSelect:
		return "singleselect:" + v.Type
	case MultiSelect:
		return "multiselect:" + v.Type
	case Checkbox:
		return "checkbox:" + v.Type
	case DateTime:
		return "datetime:" + v.Type
	default:
		return f.Name()
	}
}

func legacyHTML(name string, payload any, label string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep the default HTML escaping so '<' is written as \u003c.
	_ = enc.Encode(payload)
	data := strings.TrimSpace(buf.String())
	return "<div data-" + name + "='" + marker.EscapeHTML(data) + "' class=\"" + name + "-block\">" +
		marker.EscapeHTML(label) + "</div>"
}

func boolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// NewSingleSelect returns a single-select with the value normalised for typ.
func NewSingleSelect(typ, value string) SingleSelect {
	return SingleSelect{Type: typ, Value: NormalizeSelect(typ, value)}
}

// NewMultiSelect returns a multi-select with empty and duplicate values removed.
func NewMultiSelect(typ string, values []string) MultiSelect {
	return MultiSelect{Type: typ, Values: splitValues(values, false)}
}

// NewDateTime returns a datetime, clearing values that are not ISO dates.
func NewDateTime(typ, value string) DateTime {
	return DateTime{Type: typ, Value: normalizeDate(typ, value)}
}
