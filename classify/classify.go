// Package classify assigns every input file to exactly one processing
// category. Classification is driven by extension tables first; files with
// an unknown extension are probed for a decodable text encoding, and
// anything that fails the probe is skipped as binary.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/miitarou/notebooklm-loader/config"
)

// Category is the closed set of routing decisions. Every file lands in
// exactly one category; downstream dispatch switches on it exhaustively.
type Category int

const (
	// SkipExplicit covers extensions on the configured skip list.
	SkipExplicit Category = iota
	// SkipOversize covers files above the size ceiling.
	SkipOversize
	// SkipBinary covers unknown-extension files that fail the text probe.
	SkipBinary
	// Archive is a container to be expanded and recursed into.
	Archive
	// OfficeModern is a ZIP-based office document, subject to visual
	// density rerouting.
	OfficeModern
	// OfficeLegacy is a pre-XML office document converted via LibreOffice.
	OfficeLegacy
	// PdfPassthrough is copied as-is after validation.
	PdfPassthrough
	// GenericConvertible is handled by a format-specific text converter.
	GenericConvertible
	// VectorDiagram is rendered to PDF.
	VectorDiagram
	// Image is converted to a single-page PDF.
	Image
	// PlainText is decoded and passed through.
	PlainText
)

var categoryNames = map[Category]string{
	SkipExplicit:       "skip_explicit",
	SkipOversize:       "skip_oversize",
	SkipBinary:         "skip_binary",
	Archive:            "archive",
	OfficeModern:       "office_modern",
	OfficeLegacy:       "office_legacy",
	PdfPassthrough:     "pdf_passthrough",
	GenericConvertible: "generic_convertible",
	VectorDiagram:      "vector_diagram",
	Image:              "image",
	PlainText:          "plain_text",
}

func (c Category) String() string { return categoryNames[c] }

// IsSkip reports whether the category means the file produces no output.
func (c Category) IsSkip() bool {
	return c == SkipExplicit || c == SkipOversize || c == SkipBinary
}

// Classifier maps paths to categories using the configured extension sets.
type Classifier struct {
	byExt    map[string]Category
	maxBytes int64
}

// New builds a Classifier from the configured extension tables.
func New(cfg *config.Config) *Classifier {
	c := &Classifier{
		byExt:    make(map[string]Category),
		maxBytes: cfg.MaxFileBytes(),
	}
	add := func(exts []string, cat Category) {
		for _, e := range exts {
			c.byExt[strings.ToLower(e)] = cat
		}
	}
	add(cfg.Extensions.Skip, SkipExplicit)
	add(cfg.Extensions.Archive, Archive)
	add(cfg.Extensions.OfficeModern, OfficeModern)
	add(cfg.Extensions.OfficeLegacy, OfficeLegacy)
	add(cfg.Extensions.Generic, GenericConvertible)
	add(cfg.Extensions.Visio, VectorDiagram)
	add(cfg.Extensions.Image, Image)
	add(cfg.Extensions.Text, PlainText)
	c.byExt[".pdf"] = PdfPassthrough
	return c
}

// Classify assigns a category from extension and size alone. Unknown
// extensions fall through to the content probe on the file at path.
// The skip list wins over the size ceiling: an explicitly skipped file is
// reported as such even when it is also oversized.
func (c *Classifier) Classify(path string, size int64) Category {
	ext := strings.ToLower(filepath.Ext(path))
	cat, known := c.byExt[ext]
	if known && cat == SkipExplicit {
		return SkipExplicit
	}
	if size > c.maxBytes {
		return SkipOversize
	}
	if known {
		return cat
	}
	if DetectText(path) {
		return PlainText
	}
	return SkipBinary
}
