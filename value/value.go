// Package value implements the vCard property value grammar: escaping, comma
// lists, semi-structured and structured values.
//
// vCard 3.0 is defined in RFC 2426 section 4, vCard 4.0 in RFC 6350 section
// 3.4.
package value

import (
	"strconv"
	"strings"
)

// Escape backslash-escapes backslashes, commas and semicolons. Newlines are
// left untouched, the line writer takes care of them.
func Escape(s string) string {
	if !strings.ContainsAny(s, `\,;`) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', ',', ';':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Unescape reverses Escape. "\n" and "\N" are turned into newlines. Unknown
// escape sequences are kept as-is.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			sb.WriteByte(c)
			continue
		}

		i++
		switch next := s[i]; next {
		case 'n', 'N':
			sb.WriteByte('\n')
		case '\\', ',', ';':
			sb.WriteByte(next)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(next)
		}
	}
	return sb.String()
}

// split splits s on every unescaped sep. The returned parts are still
// escaped.
func split(s string, sep byte, limit int) []string {
	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case sep:
			if limit > 0 && len(parts) == limit-1 {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// SplitList parses a comma-separated list. An empty string yields an empty
// list.
func SplitList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := split(s, ',', -1)
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts
}

// JoinList formats a comma-separated list.
func JoinList(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = Escape(v)
	}
	return strings.Join(escaped, ",")
}

// SplitSemiStructured parses a semicolon-separated value whose components are
// single values. If limit is positive, at most limit components are returned
// and the last one holds the remainder of the value.
func SplitSemiStructured(s string, limit int) []string {
	if s == "" {
		return []string{}
	}

	parts := split(s, ';', limit)
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts
}

// JoinSemiStructured formats a semicolon-separated value. If trailing is
// false, empty trailing components are dropped.
func JoinSemiStructured(values []string, trailing bool) string {
	if !trailing {
		values = trimEmpty(values)
	}

	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = Escape(v)
	}
	return strings.Join(escaped, ";")
}

func trimEmpty(values []string) []string {
	n := len(values)
	for n > 0 && values[n-1] == "" {
		n--
	}
	return values[:n]
}

// ParseStructured parses a semicolon-separated value whose components may be
// comma-separated lists. Empty components are returned as empty lists.
func ParseStructured(s string) [][]string {
	if s == "" {
		return [][]string{}
	}

	parts := split(s, ';', -1)
	components := make([][]string, len(parts))
	for i, p := range parts {
		components[i] = SplitList(p)
	}
	return components
}

// JoinStructured formats a structured value. If trailing is false, empty
// trailing components are dropped.
func JoinStructured(components [][]string, trailing bool) string {
	if !trailing {
		n := len(components)
		for n > 0 && isEmptyComponent(components[n-1]) {
			n--
		}
		components = components[:n]
	}

	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = JoinList(c)
	}
	return strings.Join(parts, ";")
}

func isEmptyComponent(c []string) bool {
	for _, v := range c {
		if v != "" {
			return false
		}
	}
	return true
}

// FormatFloat formats a number with at most six decimals. Trailing zeros are
// dropped, so that values survive a format/parse round-trip unchanged.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
