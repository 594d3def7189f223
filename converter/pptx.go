package converter

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// pptxMarkdown extracts slide text in slide order, one section per slide.
func (c *Converter) pptxMarkdown(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	slides := slideFiles(r)
	var sb strings.Builder
	for i, f := range slides {
		text, _, err := parseSlide(f)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", i+1, err)
		}
		fmt.Fprintf(&sb, "## Slide %d\n\n", i+1)
		if text != "" {
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// analyzePptx counts text characters and visual shapes across all slides.
func analyzePptx(path string) (chars, visuals int, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range slideFiles(r) {
		text, shapes, err := parseSlide(f)
		if err != nil {
			return 0, 0, err
		}
		chars += utf8.RuneCountInString(text)
		visuals += shapes
	}
	return chars, visuals, nil
}

// slideFiles returns slide members sorted by slide number. The name order
// inside the ZIP is not reliable (slide10 sorts before slide2 textually).
func slideFiles(r *zip.ReadCloser) []*zip.File {
	type numbered struct {
		n int
		f *zip.File
	}
	var slides []numbered
	for _, f := range r.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, numbered{n: n, f: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })
	out := make([]*zip.File, len(slides))
	for i, s := range slides {
		out[i] = s.f
	}
	return out
}

// parseSlide walks one slide's XML, joining text runs per paragraph and
// counting picture and embedded-frame shapes.
func parseSlide(f *zip.File) (string, int, error) {
	rc, err := f.Open()
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sb strings.Builder
	var para strings.Builder
	var inText bool
	shapes := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "pic", "graphicFrame", "oleObj":
				shapes++
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(para.String()); text != "" {
					sb.WriteString(text)
					sb.WriteByte('\n')
				}
				para.Reset()
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), shapes, nil
}
