package loader

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputBaseName(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"notes.txt", "notes.txt"},
		{filepath.Join("sub", "dir", "notes.txt"), "sub_dir_notes.txt"},
		{`weird?na*me".txt`, "weirdname.txt"},
		{"a<b>c|d.txt", "abcd.txt"},
	}
	for _, tt := range tests {
		if got := outputBaseName(tt.rel); got != tt.want {
			t.Errorf("outputBaseName(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestOutputNames(t *testing.T) {
	// The source extension is replaced by the category extension.
	if got := textOutputName(filepath.Join("docs", "a.txt")); got != "docs_a.md" {
		t.Fatalf("textOutputName = %q", got)
	}
	if got := pdfOutputName(filepath.Join("docs", "deck.pptx")); got != "docs_deck.pdf" {
		t.Fatalf("pdfOutputName = %q", got)
	}
	// Passthrough PDFs keep their original name.
	if got := pdfOutputName(filepath.Join("docs", "report.pdf")); got != "docs_report.pdf" {
		t.Fatalf("pdfOutputName passthrough = %q", got)
	}
	if got := textOutputName("README"); got != "README.md" {
		t.Fatalf("textOutputName without extension = %q", got)
	}
}

func TestFileHeader(t *testing.T) {
	h := fileHeader(filepath.Join("sub", "notes.txt"), []string{"outer.zip", "inner.zip"})
	for _, want := range []string{
		"# File Info\n",
		"- Original Filename: notes.txt\n",
		"- Relative Path: sub/notes.txt\n",
		"- Context: outer.zip > inner.zip > sub > notes.txt\n",
	} {
		if !strings.Contains(h, want) {
			t.Errorf("header missing %q:\n%s", want, h)
		}
	}
	if !strings.HasSuffix(h, "\n---\n\n") {
		t.Fatalf("header must end with a separator:\n%q", h)
	}

	// The context trail is present for plain files too, built from the
	// relative path alone.
	plain := fileHeader(filepath.Join("sub", "notes.txt"), nil)
	if !strings.Contains(plain, "- Context: sub > notes.txt\n") {
		t.Fatalf("context line missing without an archive chain:\n%s", plain)
	}
}
