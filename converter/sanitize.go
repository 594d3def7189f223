package converter

import "strings"

// invisibleRunes are stripped from all converted text: zero-width and
// formatting characters confuse downstream chunking, and NUL bytes break
// some Markdown consumers. Newlines and tabs are kept.
var invisibleRunes = map[rune]struct{}{
	'\u0000': {}, // NUL
	'\u200b': {}, // zero width space
	'\u200c': {}, // zero width non-joiner
	'\u200d': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\ufeff': {}, // BOM / zero width no-break space
	'\u00ad': {}, // soft hyphen
}

// Sanitize removes invisible characters from converted text while keeping
// all printable content, newlines and tabs intact.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if _, drop := invisibleRunes[r]; drop {
			return -1
		}
		return r
	}, s)
}
