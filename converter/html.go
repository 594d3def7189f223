package converter

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/miitarou/notebooklm-loader/classify"
)

// htmlMarkdown sanitizes an HTML file and converts it to Markdown.
func (c *Converter) htmlMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	decoded, err := classify.DecodeText(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return c.htmlToMarkdown(decoded)
}

func (c *Converter) htmlToMarkdown(html string) (string, error) {
	clean := c.sanitizer.Sanitize(html)
	md, err := c.md.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}

// epubMarkdown walks the EPUB container's XHTML spine files in path order
// and converts each to Markdown.
func (c *Converter) epubMarkdown(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open epub: %w", err)
	}
	defer r.Close()

	var chapters []*zip.File
	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			chapters = append(chapters, f)
		}
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("no xhtml content in epub")
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Name < chapters[j].Name })

	var sb strings.Builder
	for _, f := range chapters {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		md, err := c.htmlToMarkdown(string(data))
		if err != nil {
			return "", fmt.Errorf("chapter %s: %w", f.Name, err)
		}
		if md = strings.TrimSpace(md); md != "" {
			sb.WriteString(md)
			sb.WriteString("\n\n")
		}
	}
	return sb.String(), nil
}
