package field

import (
	"encoding/json"
	"strings"

	"github.com/starford/gtdspace/internal/marker"
)

// Props returns the editor block props for a field.
func Props(f Field) map[string]any {
	switch v := f.(type) {
	case SingleSelect:
		return map[string]any{"type": v.Type, "value": v.Value}
	case MultiSelect:
		return map[string]any{"type": v.Type, "value": append([]string{}, v.Values...)}
	case Checkbox:
		return map[string]any{"type": v.Type, "checked": v.Checked}
	case DateTime:
		return map[string]any{"type": v.Type, "value": v.Value}
	case ReferenceList:
		return map[string]any{"paths": append([]string{}, v.Paths...)}
	case ListView:
		props := map[string]any{"listType": v.ListType()}
		if s := v.StatusFilter(); s != "" {
			props["statusFilter"] = s
		} else if v.Param != "" {
			props["listType"] = v.Param
		}
		return props
	}
	return map[string]any{}
}

// FromProps rebuilds a field from an editor block. Props may come straight
// from JSON, so string slices arrive as []any and lists may be strings.
func FromProps(blockType string, props map[string]any) (Field, bool) {
	kind, ok := marker.KindOf(blockType)
	if !ok {
		return nil, false
	}
	typ := propString(props, "type")
	switch kind {
	case marker.SingleSelect:
		value := propString(props, "value")
		if typ == "habit-status" {
			return habitStatus(value), true
		}
		return SingleSelect{Type: typ, Value: NormalizeSelect(typ, value)}, true
	case marker.MultiSelect:
		return MultiSelect{Type: typ, Values: splitValues(propStrings(props, "value"), false)}, true
	case marker.Checkbox:
		return Checkbox{Type: typ, Checked: propBool(props, "checked")}, true
	case marker.DateTime:
		return DateTime{Type: typ, Value: normalizeDate(typ, propString(props, "value"))}, true
	case marker.References:
		return NewReferenceList(blockType, propStrings(props, "paths")), true
	case marker.List:
		name, _ := marker.CanonicalListName(blockType)
		lv := ListView{List: name}
		if name == "actions-list" {
			lv.Param = propString(props, "statusFilter")
		} else if lt := propString(props, "listType"); lt != "" && lt != lv.ListType() {
			lv.Param = lt
		}
		return lv, true
	}
	return nil, false
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	}
	return ""
}

func propBool(props map[string]any, key string) bool {
	switch v := props[key].(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) == "true"
	}
	return false
}

func propStrings(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var arr []string
			if json.Unmarshal([]byte(v), &arr) == nil {
				return arr
			}
		}
		return strings.Split(v, ",")
	}
	return nil
}
