// Package converter turns classified input files into Markdown text or
// PDF. Modern office formats are parsed natively (archive/zip + XML);
// legacy office and vector formats shell out to LibreOffice; everything
// textual funnels through charset decoding and sanitation.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/miitarou/notebooklm-loader/classify"
	"github.com/miitarou/notebooklm-loader/config"
	"github.com/miitarou/notebooklm-loader/retry"
)

// ErrLibraryMissing marks conversions that need an external tool which is
// not installed. The file is reported, not failed.
var ErrLibraryMissing = errors.New("required external tool not installed")

// EmptyPlaceholder is the body emitted for files with no content at all.
const EmptyPlaceholder = "(Empty File)"

// Converter holds the shared conversion machinery for one run.
type Converter struct {
	cfg       *config.Config
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	md        *converter.Converter
	retryCfg  retry.Config
}

// New creates a Converter. A nil logger falls back to slog.Default.
func New(cfg *config.Config, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		cfg:       cfg,
		logger:    logger,
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		retryCfg: retry.Config{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
	}
}

// ToText converts path into Markdown (or plain) text, dispatching on the
// routing category and extension. The result is sanitized of invisible
// characters; empty content becomes the placeholder body.
func (c *Converter) ToText(ctx context.Context, path string, cat classify.Category) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch cat {
	case classify.PlainText:
		text, err = c.plainText(path)
	case classify.OfficeModern:
		switch ext {
		case ".docx":
			text, err = c.docxMarkdown(path)
		case ".pptx":
			text, err = c.pptxMarkdown(path)
		case ".xlsx":
			text, err = c.xlsxMarkdown(path)
		case ".xls":
			// No native parser for the binary workbook format.
			text, err = c.legacyToText(ctx, path)
		default:
			err = fmt.Errorf("no text converter for %s", ext)
		}
	case classify.OfficeLegacy:
		text, err = c.legacyToText(ctx, path)
	case classify.GenericConvertible:
		switch ext {
		case ".html", ".htm":
			text, err = c.htmlMarkdown(path)
		case ".epub":
			text, err = c.epubMarkdown(path)
		case ".eml":
			text, err = c.emlText(path)
		case ".msg":
			text, err = c.msgText(path)
		case ".mbox":
			text, err = c.mboxText(path)
		case ".rtf":
			text, err = c.rtfText(path)
		default:
			err = fmt.Errorf("no text converter for %s", ext)
		}
	default:
		err = fmt.Errorf("category %s has no text conversion", cat)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(Sanitize(text))
	if text == "" {
		text = EmptyPlaceholder
	}
	return text, nil
}
