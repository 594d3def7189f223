package classify

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// probeSize is how much of a file the text probe reads.
const probeSize = 8 * 1024

// nullByteThreshold is the fraction of NUL bytes above which content is
// treated as binary regardless of what the MIME sniffer says.
const nullByteThreshold = 0.15

// minTextConfidence is the fraction of printable runes a decoded sample
// must reach before unknown content counts as text. Windows-1252 decodes
// any byte soup without replacement runes, but byte soup lands near 87%
// printable while real text sits at ~100%, so the bar is high.
const minTextConfidence = 0.95

// textualMIMEPrefixes are sniffed content types that identify textual
// structure; content matching one still has to pass the decode gate.
var textualMIMEPrefixes = []string{
	"text/",
	"application/json",
	"application/xml",
	"application/javascript",
	"application/x-sh",
}

// DetectText reports whether the file at path holds decodable text.
// Classification as text requires a charset that decodes the sample
// without replacement runes AND a printable-rune majority; NUL-free
// binary fails one of the two. Any read failure counts as "not text";
// the caller skips the file.
func DetectText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, probeSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	if n == 0 {
		// Empty files are text: they get the placeholder body downstream.
		return true
	}
	data := buf[:n]
	if n == probeSize {
		// A full buffer can end mid-sequence; drop the tail so truncation
		// is not mistaken for corruption.
		data = data[:n-3]
	}

	if isBinary(data) {
		return false
	}
	decoded, ok := decodeProbe(data)
	if !ok {
		return false
	}
	if sniffedTextual(data) {
		return true
	}
	return printableRatio(decoded) >= minTextConfidence
}

func sniffedTextual(data []byte) bool {
	contentType := http.DetectContentType(data)
	for _, prefix := range textualMIMEPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func isBinary(data []byte) bool {
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	nulls := bytes.Count(window, []byte{0})
	return float64(nulls)/float64(len(window)) > nullByteThreshold
}

// decodeProbe mirrors DecodeText but rejects instead of falling back: the
// probe needs one charset that decodes the sample without replacement
// runes, otherwise the content is not text.
func decodeProbe(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})
	if utf8.Valid(data) {
		return string(data), true
	}
	if enc, _, certain := charset.DetermineEncoding(data, ""); certain {
		if decoded, _, err := transform.Bytes(enc.NewDecoder(), data); err == nil {
			return string(decoded), true
		}
	}
	for _, enc := range candidateEncodings {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			continue
		}
		s := string(decoded)
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s, true
		}
	}
	return "", false
}

func printableRatio(s string) float64 {
	if s == "" {
		return 1
	}
	printable, total := 0, 0
	for _, r := range s {
		total++
		if r == '\n' || r == '\r' || r == '\t' || r == '\f' || unicode.IsPrint(r) {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

// candidateEncodings are tried in order when neither UTF-8 validation nor a
// BOM settles the charset. Windows-1252 decodes any byte sequence, so it
// terminates the chain.
var candidateEncodings = []encoding.Encoding{
	japanese.ShiftJIS,
	japanese.EUCJP,
	charmap.Windows1252,
}

// DecodeText converts raw file bytes to UTF-8. Valid UTF-8 input passes
// through untouched (minus BOM); otherwise BOM-declared charsets win, then
// candidate encodings are tried until one decodes without replacement runes.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})
	if utf8.Valid(data) {
		return string(data), nil
	}
	if enc, _, certain := charset.DetermineEncoding(data, ""); certain {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err == nil {
			return string(decoded), nil
		}
	}
	var fallback string
	for _, enc := range candidateEncodings {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			continue
		}
		s := string(decoded)
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s, nil
		}
		if fallback == "" {
			fallback = s
		}
	}
	// Every candidate produced replacement runes; keep the first attempt
	// rather than dropping the file.
	return fallback, nil
}
