// Package metadata derives a flat key/value view of a document from its
// markers and a few legacy text conventions.
package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// ErrDuplicateExtractor is returned when an extractor with the same pattern
// is already registered.
var ErrDuplicateExtractor = errors.New("metadata: duplicate extractor")

// Extractor maps regex matches to metadata entries.
type Extractor struct {
	Pattern *regexp.Regexp
	// Global extractors apply to every match, others to the first only.
	Global bool
	// Extract receives the match and its submatches.
	Extract func(match []string) (key string, v Value, ok bool)
}

// Key identifies the extractor by its pattern text.
func (e Extractor) Key() string {
	flags := ""
	if e.Global {
		flags = "g"
	}
	return "/" + e.Pattern.String() + "/" + flags
}

// Registry holds the built-in extractors plus the ones added at runtime.
type Registry struct {
	mu      sync.RWMutex
	builtin []Extractor
	custom  []Extractor
}

// NewRegistry returns a registry with the built-in extractors.
func NewRegistry() *Registry {
	return &Registry{builtin: Builtins()}
}

// Add registers a custom extractor. The returned function unregisters it.
func (r *Registry) Add(e Extractor) (func(), error) {
	if e.Pattern == nil || e.Extract == nil {
		return nil, fmt.Errorf("metadata: add extractor: pattern and extract func are required")
	}
	key := e.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.builtin {
		if x.Key() == key {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExtractor, key)
		}
	}
	for _, x := range r.custom {
		if x.Key() == key {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExtractor, key)
		}
	}
	r.custom = append(r.custom, e)

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(key) })
	}, nil
}

// MustAdd is Add that panics on error, for registration at process start.
func (r *Registry) MustAdd(e Extractor) func() {
	unregister, err := r.Add(e)
	if err != nil {
		panic(err)
	}
	return unregister
}

func (r *Registry) remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.custom {
		if x.Key() == key {
			r.custom = append(r.custom[:i:i], r.custom[i+1:]...)
			return
		}
	}
}

// Reset drops every custom extractor.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.custom = nil
	r.mu.Unlock()
}

// Extractors returns the built-in followed by the custom extractors.
func (r *Registry) Extractors() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extractor, 0, len(r.builtin)+len(r.custom))
	out = append(out, r.builtin...)
	return append(out, r.custom...)
}

// Extract runs every registered extractor over text.
func (r *Registry) Extract(text string) Metadata {
	return Extract(text, r.Extractors())
}

type hit struct {
	pos   int
	key   string
	value Value
}

// Extract runs extractors over text. Matches are applied in document order,
// so for scalar keys the last occurrence wins.
func Extract(text string, extractors []Extractor) Metadata {
	var hits []hit
	for _, e := range extractors {
		n := 1
		if e.Global {
			n = -1
		}
		for _, loc := range e.Pattern.FindAllStringSubmatchIndex(text, n) {
			match := make([]string, len(loc)/2)
			for i := range match {
				if loc[2*i] >= 0 {
					match[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			key, v, ok := e.Extract(match)
			if !ok || key == "" {
				continue
			}
			hits = append(hits, hit{pos: loc[0], key: key, value: v})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	md := make(Metadata, len(hits))
	for _, h := range hits {
		if prev, ok := md[h.key]; ok {
			md[h.key] = prev.merge(h.value)
			continue
		}
		md[h.key] = h.value
	}
	return md
}

var keyAliases = map[string]string{
	"focus_date_time": "focusDate",
	"due_date_time":   "dueDate",
}

// KeyFor returns the metadata key of a field type or marker name:
// "goal-status" -> "goalStatus", "due_date" -> "dueDate".
func KeyFor(name string) string {
	if k, ok := keyAliases[name]; ok {
		return k
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// FieldEntry returns the metadata entry of a decoded field. List views carry
// no value and report false.
func FieldEntry(f field.Field) (string, Value, bool) {
	switch v := f.(type) {
	case field.SingleSelect:
		return KeyFor(v.Type), Scalar(v.Value), v.Type != ""
	case field.MultiSelect:
		return KeyFor(v.Type), List(v.Values...), v.Type != ""
	case field.Checkbox:
		return KeyFor(v.Type), Scalar(fmt.Sprint(v.Checked)), v.Type != ""
	case field.DateTime:
		return KeyFor(v.Type), Scalar(v.Value), v.Type != ""
	case field.ReferenceList:
		return KeyFor(v.Name()), List(v.Paths...), true
	}
	return "", Value{}, false
}

func markerExtract(match []string) (string, Value, bool) {
	f, ok := field.Decode(match[0])
	if !ok {
		return "", Value{}, false
	}
	return FieldEntry(f)
}

var titlePattern = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t\r]*$`)

func heuristic(pattern, key string, normalize func(string) string) Extractor {
	return Extractor{
		Pattern: regexp.MustCompile(pattern),
		Global:  true,
		Extract: func(m []string) (string, Value, bool) {
			v := strings.TrimSpace(m[1])
			if normalize != nil {
				v = normalize(v)
			}
			return key, Scalar(v), v != ""
		},
	}
}

// Builtins returns the default extractors: the title heading, every marker
// kind that stores a value, and the legacy "Due:"-style lines.
func Builtins() []Extractor {
	const date = `(\d{4}-\d{2}-\d{2}(?:T\d{2}:\d{2}(?::\d{2})?)?)`
	return []Extractor{
		{
			Pattern: titlePattern,
			Extract: func(m []string) (string, Value, bool) {
				return "title", Scalar(marker.UnescapeText(strings.TrimSpace(m[1]))), true
			},
		},
		{Pattern: marker.FieldPattern, Global: true, Extract: markerExtract},
		{Pattern: marker.ReferencesPattern, Global: true, Extract: markerExtract},
		{Pattern: marker.LegacyPattern, Global: true, Extract: markerExtract},
		heuristic(`(?mi)^[ \t]*(?:[-*][ \t]+)?\**Due(?: Date)?:\**[ \t]*`+date, "dueDate", nil),
		heuristic(`(?mi)^[ \t]*(?:[-*][ \t]+)?\**Focus(?: Date)?:\**[ \t]*`+date, "focusDate", nil),
		heuristic(`(?mi)^[ \t]*(?:[-*][ \t]+)?\**Created(?: Date)?:\**[ \t]*`+date, "createdDate", nil),
		heuristic(`(?mi)^[ \t]*(?:[-*][ \t]+)?\**Status:\**[ \t]*([A-Za-z][A-Za-z -]*?)[ \t]*$`, "status", func(s string) string {
			return field.NormalizeSelect("status", s)
		}),
	}
}
