package field

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// maxDecodePasses bounds percent-decoding of doubly encoded payloads.
const maxDecodePasses = 3

// EncodePaths encodes a reference list for a marker payload. Compact JSON is
// used when it cannot terminate the marker, percent-encoded JSON otherwise.
func EncodePaths(paths []string) string {
	paths = NormalizePaths(paths)
	if len(paths) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(paths)
	raw := strings.TrimSpace(buf.String())
	if markerSafe(paths) {
		return raw
	}
	return strings.ReplaceAll(url.QueryEscape(raw), "+", "%20")
}

func markerSafe(paths []string) bool {
	for _, p := range paths {
		if strings.ContainsAny(p, "[]<>&'`\n") {
			return false
		}
	}
	return true
}

// DecodePaths accepts a JSON array, percent-encoded JSON (up to three
// times) or a comma separated list. It never fails: a payload no strategy
// understands yields an empty list.
func DecodePaths(payload string) []string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return []string{}
	}
	if paths, ok := decodeJSONPaths(payload); ok {
		return paths
	}
	cur := payload
	for range maxDecodePasses {
		next, err := url.PathUnescape(cur)
		if err != nil || next == cur {
			break
		}
		cur = next
		if paths, ok := decodeJSONPaths(cur); ok {
			return paths
		}
	}
	return decodeCSVPaths(payload)
}

func decodeJSONPaths(s string) ([]string, bool) {
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return NormalizePaths(out), true
}

func decodeCSVPaths(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return NormalizePaths(parts)
}

// NormalizePaths converts back-slashes to slashes, trims, drops empty
// entries and de-duplicates keeping the first occurrence.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
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

var tableSeparatorRe = regexp.MustCompile(`^[\s|:\-]+$`)

// LooksLikeTableSeparator reports whether a payload is a Markdown table rule
// such as "|---|:--:|".
func LooksLikeTableSeparator(payload string) bool {
	return strings.Contains(payload, "-") && tableSeparatorRe.MatchString(payload)
}
