package converter

import (
	"archive/zip"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// xlsxMarkdown renders every sheet as a Markdown table under a heading.
func (c *Converter) xlsxMarkdown(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&sb, "## %s\n\n", sheet)
		if len(rows) == 0 {
			sb.WriteByte('\n')
			continue
		}
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		for i, row := range rows {
			sb.WriteString("| ")
			for col := range width {
				if col > 0 {
					sb.WriteString(" | ")
				}
				if col < len(row) {
					sb.WriteString(tableEscape(row[col]))
				}
			}
			sb.WriteString(" |\n")
			if i == 0 {
				sb.WriteString("|")
				sb.WriteString(strings.Repeat(" --- |", width))
				sb.WriteByte('\n')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func tableEscape(cell string) string {
	cell = strings.ReplaceAll(cell, "|", "\\|")
	return strings.ReplaceAll(cell, "\n", " ")
}

// analyzeXlsx counts cell characters via excelize and visual elements by
// listing the container's media and chart parts.
func analyzeXlsx(path string) (chars, visuals int, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return 0, 0, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			for _, cell := range row {
				chars += utf8.RuneCountInString(cell)
			}
		}
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open container: %w", err)
	}
	defer r.Close()
	for _, zf := range r.File {
		if strings.HasPrefix(zf.Name, "xl/media/") ||
			(strings.HasPrefix(zf.Name, "xl/charts/chart") && strings.HasSuffix(zf.Name, ".xml")) {
			visuals++
		}
	}
	return chars, visuals, nil
}
