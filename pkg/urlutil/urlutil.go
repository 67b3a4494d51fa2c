// Package urlutil provides URL manipulation helpers shared by the resolvers.
package urlutil

import (
	"net/url"
	"strings"
)

// LastPathSegment returns the last non-empty path segment of a URL, or "" if
// the path has none. Unparseable input is treated as a bare path.
func LastPathSegment(urlStr string) string {
	p := urlStr
	if parsed, err := url.Parse(urlStr); err == nil {
		p = parsed.Path
	}
	segments := strings.Split(p, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// QueryParam returns the first decoded value of name in the URL's query string.
func QueryParam(urlStr, name string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return parsed.Query().Get(name)
}

// JoinPath appends path to base, dropping trailing slashes from base first.
func JoinPath(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// PercentEncode escapes every byte except ASCII letters, digits, "_.-~" and "/".
// Upstream form handlers expect exactly this set, which differs from both
// url.QueryEscape (space as '+') and url.PathEscape (keeps '&', '=', '+').
func PercentEncode(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '~', c == '/':
		return true
	}
	return false
}
