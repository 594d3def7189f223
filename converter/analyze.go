package converter

import (
	"path/filepath"
	"strings"
)

// Analysis is the visual-density measurement of a modern office document.
type Analysis struct {
	CharCount   int
	VisualCount int
}

// AnalyzeOffice measures extractable text and embedded visuals so the
// router can decide between text extraction and PDF rendering. The binary
// .xls format cannot be inspected natively; it reports zero visuals and
// stays on the text path.
func (c *Converter) AnalyzeOffice(path string) (Analysis, error) {
	var chars, visuals int
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		chars, visuals, err = analyzeDocx(path)
	case ".pptx":
		chars, visuals, err = analyzePptx(path)
	case ".xlsx":
		chars, visuals, err = analyzeXlsx(path)
	case ".xls":
		return Analysis{}, nil
	default:
		return Analysis{}, nil
	}
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{CharCount: chars, VisualCount: visuals}, nil
}
