// Package sanitize strips markup from free-text profile fields before they
// are persisted. It removes tags and comments; it does not attempt to render
// or validate HTML.
package sanitize

import "strings"

// StripTags removes anything between '<' and the matching '>' from s,
// including HTML comments. Unterminated tags are dropped to the end of the
// string, so a truncated payload cannot smuggle markup through.
func StripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:lt])
		s = s[lt:]
		if strings.HasPrefix(s, "<!--") {
			end := strings.Index(s, "-->")
			if end < 0 {
				break
			}
			s = s[end+len("-->"):]
			continue
		}
		gt := strings.IndexByte(s, '>')
		if gt < 0 {
			break
		}
		s = s[gt+1:]
	}
	return strings.TrimSpace(b.String())
}
