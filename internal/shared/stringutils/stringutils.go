package stringutils

import "strings"

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SnakeCase converts an exported Go identifier to its schema field name:
// Query -> query, MaxTokens -> max_tokens.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldName applies the argument naming rule shared by the analyzer and the
// dispatchers: an explicit json tag wins, json:"-" hides the field, otherwise
// the snake_case field name is used.
func FieldName(goName, jsonTag string) string {
	if jsonTag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(jsonTag, ",")
	if name != "" {
		return name
	}
	return SnakeCase(goName)
}
