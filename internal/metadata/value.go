package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a metadata entry: a single string or a string list.
type Value struct {
	Text  string
	Items []string
	Multi bool
}

// Scalar returns a single-string value.
func Scalar(s string) Value { return Value{Text: s} }

// List returns a list value.
func List(items ...string) Value {
	return Value{Items: append([]string{}, items...), Multi: true}
}

// Strings returns the value as a list.
func (v Value) Strings() []string {
	if v.Multi {
		return v.Items
	}
	return []string{v.Text}
}

// String returns the scalar text or the first list item.
func (v Value) String() string {
	if !v.Multi {
		return v.Text
	}
	if len(v.Items) > 0 {
		return v.Items[0]
	}
	return ""
}

// merge folds next into v. Lists concatenate; a list arriving on a scalar
// coerces it into a list; a scalar arriving on a scalar replaces it.
func (v Value) merge(next Value) Value {
	switch {
	case v.Multi:
		return List(append(append([]string{}, v.Items...), next.Strings()...)...)
	case next.Multi:
		return List(append([]string{v.Text}, next.Items...)...)
	default:
		return next
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Multi {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("metadata: list value: %w", err)
		}
		*v = List(items...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("metadata: scalar value: %w", err)
	}
	*v = Scalar(s)
	return nil
}

// Metadata is the flat structured view of a document.
type Metadata map[string]Value

// Get returns the scalar form of key, or "".
func (m Metadata) Get(key string) string {
	return m[key].String()
}

// First returns the first non-empty scalar among keys.
func (m Metadata) First(keys ...string) string {
	for _, k := range keys {
		if s := m.Get(k); s != "" {
			return s
		}
	}
	return ""
}

// Changes returns the entries of next that differ from prev. Keys missing
// from next map to nil.
func Changes(prev, next Metadata) map[string]*Value {
	out := make(map[string]*Value)
	for k, nv := range next {
		if pv, ok := prev[k]; ok && sameValue(pv, nv) {
			continue
		}
		out[k] = &nv
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			out[k] = nil
		}
	}
	return out
}

func sameValue(a, b Value) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
