package converter

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// isUnicodeEscape matches \uN control words (and not \ucN, whose word is
// "uc" plus digits).
func isUnicodeEscape(word string) bool {
	if len(word) < 2 || word[0] != 'u' {
		return false
	}
	rest := word[1:]
	if rest[0] == '-' {
		rest = rest[1:]
	}
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// rtfSkipGroups are destination groups carrying no body text.
var rtfSkipGroups = map[string]struct{}{
	"fonttbl":    {},
	"colortbl":   {},
	"stylesheet": {},
	"info":       {},
	"pict":       {},
	"object":     {},
	"header":     {},
	"footer":     {},
}

// rtfText strips RTF control words and groups down to the body text.
func (c *Converter) rtfText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !strings.HasPrefix(string(data), `{\rtf`) {
		return "", fmt.Errorf("not an rtf file")
	}
	return stripRTF(data), nil
}

func stripRTF(data []byte) string {
	var sb strings.Builder
	depth := 0
	skipUntil := -1 // group depth below which text flows again
	i := 0
	for i < len(data) {
		ch := data[i]
		switch ch {
		case '{':
			depth++
			i++
			// Destination groups ({\*\...} and known tables) are dropped wholesale.
			if i < len(data) && data[i] == '\\' {
				word, _ := rtfControlWord(data, i+1)
				if _, skip := rtfSkipGroups[word]; skip || word == "*" {
					if skipUntil < 0 {
						skipUntil = depth
					}
				}
			}
		case '}':
			if skipUntil >= 0 && depth == skipUntil {
				skipUntil = -1
			}
			depth--
			i++
		case '\\':
			word, next := rtfControlWord(data, i+1)
			if skipUntil >= 0 {
				i = next
				continue
			}
			switch {
			case word == "par" || word == "line":
				sb.WriteByte('\n')
			case word == "tab":
				sb.WriteByte('\t')
			case word == "" && next < len(data):
				// Control symbol: escaped brace/backslash or hex byte.
				switch data[next-1] {
				case '\\', '{', '}':
					sb.WriteByte(data[next-1])
				case '\'':
					if next+1 < len(data) {
						if b, err := strconv.ParseUint(string(data[next:next+2]), 16, 8); err == nil {
							sb.WriteRune(charmap.Windows1252.DecodeByte(byte(b)))
						}
						next += 2
					}
				case '~':
					sb.WriteByte(' ')
				}
			case isUnicodeEscape(word):
				n, _ := strconv.Atoi(word[1:])
				if n < 0 {
					n += 65536
				}
				sb.WriteRune(rune(n))
				// A substitution character follows; drop it.
				if next < len(data) && data[next] == '?' {
					next++
				}
			}
			i = next
		case '\r', '\n':
			i++
		default:
			if skipUntil < 0 {
				sb.WriteByte(ch)
			}
			i++
		}
	}
	return strings.TrimSpace(sb.String())
}

// rtfControlWord reads the control word starting at i (just past the
// backslash) and returns it with the index of the first byte after the
// word and its delimiter.
func rtfControlWord(data []byte, i int) (string, int) {
	if i >= len(data) {
		return "", i
	}
	if data[i] == '*' {
		return "*", i + 1
	}
	if !unicode.IsLetter(rune(data[i])) {
		// Control symbol: single non-letter character.
		return "", i + 1
	}
	start := i
	for i < len(data) && unicode.IsLetter(rune(data[i])) {
		i++
	}
	word := string(data[start:i])
	// Optional numeric parameter.
	numStart := i
	if i < len(data) && data[i] == '-' {
		i++
	}
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	word += string(data[numStart:i])
	// A single trailing space is part of the control word.
	if i < len(data) && data[i] == ' ' {
		i++
	}
	return word, i
}
