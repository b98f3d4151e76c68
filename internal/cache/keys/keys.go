// Package keys builds Redis key names and in-process memo keys for fences.
package keys

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// FenceHash names the Redis hash holding one instance's fences.
func FenceHash(prefix string, instanceID int) string {
	p := sanitize(strings.TrimSuffix(strings.TrimSpace(prefix), ":"))
	return p + ":" + strconv.Itoa(instanceID)
}

// ParseDigest identifies one stored fence's text. Fields are NUL separated so
// ("ab","c") and ("a","bc") differ.
func ParseDigest(fenceName, fenceType, raw string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(fenceName)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strings.ToLower(strings.TrimSpace(fenceType)))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(raw)
	return d.Sum64()
}

// whitespace runs become '_', other disallowed runes '-'
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
