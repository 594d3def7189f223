package converter

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// docxMarkdown parses word/document.xml from the ZIP container, mapping
// heading styles to Markdown headings.
func (c *Converter) docxMarkdown(path string) (string, error) {
	rc, err := openZipMember(path, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	var currentText strings.Builder
	var inParagraph bool
	var paragraphStyle string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				currentText.Reset()
				paragraphStyle = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			case t.Name.Local == "br" && inParagraph:
				currentText.WriteByte('\n')
			case t.Name.Local == "tab" && inParagraph:
				currentText.WriteByte('\t')
			}
		case xml.CharData:
			if inParagraph {
				currentText.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := strings.TrimSpace(currentText.String())
				if text == "" {
					continue
				}
				if level := docxHeadingLevel(paragraphStyle); level > 0 {
					sb.WriteString(strings.Repeat("#", level))
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
				sb.WriteString("\n\n")
			}
		}
	}
	return sb.String(), nil
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" → 1, "Heading2" → 2, "Title" → 1, etc.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift", "見出し"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// analyzeDocx counts extractable characters and visual elements in one XML
// pass over word/document.xml.
func analyzeDocx(path string) (chars, visuals int, err error) {
	rc, err := openZipMember(path, "word/document.xml")
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var inText bool
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "drawing", "pict", "object":
				visuals++
			}
		case xml.CharData:
			if inText {
				chars += utf8.RuneCount(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		}
	}
	return chars, visuals, nil
}

// openZipMember opens one named member of a ZIP container.
func openZipMember(path, member string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, f := range r.File {
		if f.Name == member {
			rc, err := f.Open()
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("open %s in %s: %w", member, path, err)
			}
			return &zipMemberReader{rc: rc, zr: r}, nil
		}
	}
	r.Close()
	return nil, fmt.Errorf("%s not found in %s", member, path)
}

type zipMemberReader struct {
	rc io.ReadCloser
	zr *zip.ReadCloser
}

func (z *zipMemberReader) Read(p []byte) (int, error) { return z.rc.Read(p) }

func (z *zipMemberReader) Close() error {
	err := z.rc.Close()
	if cerr := z.zr.Close(); err == nil {
		err = cerr
	}
	return err
}
