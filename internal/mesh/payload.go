package mesh

import (
	"encoding/json"
	"strconv"
)

// Upstream firmware versions disagree on key casing (snake_case vs
// camelCase). Lookups take an ordered candidate list and return the first
// hit, so the tolerance lives in one place instead of per-field branching.

// ObjectField returns the first candidate key whose value is a JSON object.
func ObjectField(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if obj, ok := v.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// ObjectFieldOrSelf returns the nested object under any of the candidate
// keys, or m itself when none is present. Mirrors the upstream convention of
// flattening single-level payloads.
func ObjectFieldOrSelf(m map[string]any, keys ...string) map[string]any {
	if obj, ok := ObjectField(m, keys...); ok {
		return obj
	}
	return m
}

// NumberField returns the first candidate key holding a JSON number, in
// literal wire form.
func NumberField(m map[string]any, keys ...string) (json.Number, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if n, ok := v.(json.Number); ok {
				return n, true
			}
		}
	}
	return "", false
}

// StringField returns the first candidate key holding a non-empty string.
func StringField(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ScalarField renders the first candidate key holding any scalar (string,
// number, bool) as its display text. Type mismatches fail soft.
func ScalarField(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if s, ok := scalarText(v); ok {
			return s, true
		}
	}
	return "", false
}

func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// Float converts a json.Number to float64, failing soft.
func Float(n json.Number) (float64, bool) {
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
