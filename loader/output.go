package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// illegalNameChars cannot appear in output file names on any supported
// filesystem; they are stripped, not replaced.
const illegalNameChars = `\/*?:"<>|`

// outputBaseName flattens a relative path into a single file name:
// separators become underscores, illegal characters vanish.
func outputBaseName(rel string) string {
	flat := strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
	var sb strings.Builder
	for _, r := range flat {
		if strings.ContainsRune(illegalNameChars, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// textOutputName is the Markdown output name for rel. The source
// extension is replaced, not stacked: docs/a.txt becomes docs_a.md.
func textOutputName(rel string) string {
	return stripExt(outputBaseName(rel)) + ".md"
}

// pdfOutputName is the PDF output name for rel. The source extension is
// replaced, which leaves passthrough PDFs with their original name.
func pdfOutputName(rel string) string {
	return stripExt(outputBaseName(rel)) + ".pdf"
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// fileHeader is the metadata block prefixed to every converted text file,
// so provenance survives flattening and merging. chain lists the enclosing
// archives, outermost first; it is prepended to the context trail.
func fileHeader(rel string, chain []string) string {
	slash := filepath.ToSlash(rel)
	trail := append(append([]string(nil), chain...), strings.Split(slash, "/")...)

	var sb strings.Builder
	sb.WriteString("# File Info\n")
	fmt.Fprintf(&sb, "- Original Filename: %s\n", filepath.Base(rel))
	fmt.Fprintf(&sb, "- Relative Path: %s\n", slash)
	fmt.Fprintf(&sb, "- Context: %s\n", strings.Join(trail, " > "))
	sb.WriteString("\n---\n\n")
	return sb.String()
}
