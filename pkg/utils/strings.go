package utils

import "strings"

// ParseBool interprets the permissive boolean syntax used in config files.
// Accepts true/false, yes/no, on/off and 1/0, case-insensitive.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// IsComment reports whether a config line is empty or a comment.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";")
}

// SplitKeyValue splits a "key = value" config line. Surrounding whitespace
// and one level of matching quotes around the value are removed.
func SplitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	value = TrimQuotes(value)
	return key, value, true
}

// TrimQuotes removes one level of matching single or double quotes.
func TrimQuotes(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
