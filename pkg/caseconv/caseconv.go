// Package caseconv converts map keys between the external snake_case
// representation used on the wire and the camelCase representation used
// internally. Conversion is recursive over nested maps and slices and
// never touches values, only keys.
package caseconv

import "strings"

// ToCamel converts a snake_case identifier to camelCase.
// Identifiers without underscores are returned unchanged.
func ToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}

	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))

	first := true
	for _, part := range parts {
		if part == "" {
			continue
		}
		if first {
			b.WriteString(part)
			first = false
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// ToSnake converts a camelCase identifier to snake_case.
func ToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KeysToCamel returns a copy of v with every map key converted from
// snake_case to camelCase, descending into nested maps and slices.
// Non-map, non-slice values are returned as-is.
func KeysToCamel(v any) any {
	return convertKeys(v, ToCamel)
}

// KeysToSnake returns a copy of v with every map key converted from
// camelCase to snake_case, descending into nested maps and slices.
func KeysToSnake(v any) any {
	return convertKeys(v, ToSnake)
}

func convertKeys(v any, convert func(string) string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[convert(k)] = convertKeys(inner, convert)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = convertKeys(inner, convert)
		}
		return out
	default:
		return v
	}
}
