package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Registry payloads are only loosely schematic: the same field may arrive as
// a string, an object, or a single-element list depending on the record's
// history. These helpers extract values tolerantly, mirroring how the feeds
// behave in practice. Unknown shapes yield zero values, never errors.

// asMap coerces a value to an object, unwrapping single-element lists.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) > 0 {
			if m, ok := t[0].(map[string]any); ok {
				return m
			}
		}
	}
	return map[string]any{}
}

// asSlice coerces a value to a list, wrapping a lone object.
func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		return []any{t}
	}
	return nil
}

// textKeys are the object keys tried, in order, when a text value arrives
// wrapped in an object (e.g. "nazwaSkrocona": [{"nazwaSkrocona": "...", ...}]).
var textKeys = []string{
	"value", "text", "nazwa", "name", "opis",
	"nazwaSkrocona", "formaPrawna", "status",
	"kodDzial", "kod", "imiona", "nazwisko",
}

// asString coerces a value to a trimmed string, descending into lists and
// objects the way the KRS feed nests them.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) == 0 {
			return ""
		}
		return asString(t[0])
	case map[string]any:
		for _, key := range textKeys {
			if inner, ok := t[key]; ok {
				if s := asString(inner); s != "" {
					return s
				}
			}
		}
		for _, inner := range t {
			if s, ok := inner.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	return ""
}

// firstString returns the first non-empty value among the given keys.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// parseDate parses the registries' YYYY-MM-DD date prefix; longer timestamp
// strings are truncated.
func parseDate(s string) *time.Time {
	if len(s) < 10 {
		return nil
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return nil
	}
	return &t
}
