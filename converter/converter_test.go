package converter

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/miitarou/notebooklm-loader/classify"
	"github.com/miitarou/notebooklm-loader/config"
)

func newConverter(t *testing.T) *Converter {
	t.Helper()
	return New(config.DefaultConfig(), nil)
}

func writeDocx(t *testing.T, dir string, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, "test.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(documentXML))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleDocxXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Quarterly Review</w:t></w:r>
    </w:p>
    <w:p><w:r><w:t>Revenue grew in all regions.</w:t></w:r></w:p>
    <w:p>
      <w:r><w:drawing/></w:r>
      <w:r><w:t>See chart above.</w:t></w:r>
    </w:p>
  </w:body>
</w:document>`

func TestDocxMarkdown(t *testing.T) {
	c := newConverter(t)
	path := writeDocx(t, t.TempDir(), sampleDocxXML)

	text, err := c.ToText(context.Background(), path, classify.OfficeModern)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "# Quarterly Review") {
		t.Fatalf("heading not converted:\n%s", text)
	}
	if !strings.Contains(text, "Revenue grew in all regions.") {
		t.Fatalf("paragraph missing:\n%s", text)
	}
}

func TestAnalyzeDocx(t *testing.T) {
	c := newConverter(t)
	path := writeDocx(t, t.TempDir(), sampleDocxXML)

	a, err := c.AnalyzeOffice(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.VisualCount != 1 {
		t.Fatalf("visuals = %d, want 1", a.VisualCount)
	}
	if a.CharCount == 0 {
		t.Fatal("char count should be non-zero")
	}
}

func writePptx(t *testing.T, dir string, slides map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "deck.pptx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, content := range slides {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPptxMarkdownSlideOrder(t *testing.T) {
	c := newConverter(t)
	slideXML := func(text string) string {
		return `<p:sld xmlns:a="a" xmlns:p="p"><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sld>`
	}
	path := writePptx(t, t.TempDir(), map[string]string{
		"ppt/slides/slide1.xml":  slideXML("first"),
		"ppt/slides/slide2.xml":  slideXML("second"),
		"ppt/slides/slide10.xml": slideXML("tenth"),
	})

	text, err := c.ToText(context.Background(), path, classify.OfficeModern)
	if err != nil {
		t.Fatal(err)
	}
	iFirst := strings.Index(text, "first")
	iSecond := strings.Index(text, "second")
	iTenth := strings.Index(text, "tenth")
	if iFirst < 0 || iSecond < 0 || iTenth < 0 {
		t.Fatalf("slide text missing:\n%s", text)
	}
	if !(iFirst < iSecond && iSecond < iTenth) {
		t.Fatalf("slides out of order (10 must sort after 2):\n%s", text)
	}
	if !strings.Contains(text, "## Slide 3") {
		t.Fatalf("slide headings missing:\n%s", text)
	}
}

func TestAnalyzePptxCountsShapes(t *testing.T) {
	c := newConverter(t)
	path := writePptx(t, t.TempDir(), map[string]string{
		"ppt/slides/slide1.xml": `<p:sld xmlns:a="a" xmlns:p="p"><p:pic/><p:graphicFrame/><p:txBody><a:p><a:r><a:t>caption</a:t></a:r></a:p></p:txBody></p:sld>`,
	})
	a, err := c.AnalyzeOffice(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.VisualCount != 2 {
		t.Fatalf("visuals = %d, want 2", a.VisualCount)
	}
}

func TestXlsxMarkdown(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.xlsx")

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "name")
	f.SetCellValue("Sheet1", "B1", "count")
	f.SetCellValue("Sheet1", "A2", "widgets")
	f.SetCellValue("Sheet1", "B2", 42)
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	text, err := c.ToText(context.Background(), path, classify.OfficeModern)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "## Sheet1") {
		t.Fatalf("sheet heading missing:\n%s", text)
	}
	if !strings.Contains(text, "| name | count |") {
		t.Fatalf("header row missing:\n%s", text)
	}
	if !strings.Contains(text, "| widgets | 42 |") {
		t.Fatalf("data row missing:\n%s", text)
	}
}

func TestHTMLMarkdown(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	os.WriteFile(path, []byte(`<html><body><h1>Title</h1><p>Body text with <script>alert(1)</script>markup.</p></body></html>`), 0644)

	text, err := c.ToText(context.Background(), path, classify.GenericConvertible)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "# Title") {
		t.Fatalf("heading missing:\n%s", text)
	}
	if strings.Contains(text, "alert(1)") {
		t.Fatalf("script content must be sanitized away:\n%s", text)
	}
}

func TestEmlText(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "mail.eml")
	msg := "From: alice@example.com\r\nTo: bob@example.com\r\nSubject: Status\r\nContent-Type: text/plain\r\n\r\nAll systems nominal.\r\n"
	os.WriteFile(path, []byte(msg), 0644)

	text, err := c.ToText(context.Background(), path, classify.GenericConvertible)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Subject: Status", "From: alice@example.com", "All systems nominal."} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestMsgPropType(t *testing.T) {
	tests := []struct {
		name string
		prop string
		typ  string
		ok   bool
	}{
		{"__substg1.0_0037001F", "0037", "001F", true},
		{"__substg1.0_1000001e", "1000", "001E", true},
		{"__substg1.0_0037", "", "", false},
		{"__properties_version1.0", "", "", false},
	}
	for _, tt := range tests {
		prop, typ, ok := msgPropType(tt.name)
		if prop != tt.prop || typ != tt.typ || ok != tt.ok {
			t.Errorf("msgPropType(%q) = %q/%q/%v, want %q/%q/%v",
				tt.name, prop, typ, ok, tt.prop, tt.typ, tt.ok)
		}
	}
}

func TestMsgDecodeString(t *testing.T) {
	// UTF-16LE "Hi" with a trailing NUL.
	utf16 := []byte{0x48, 0x00, 0x69, 0x00, 0x00, 0x00}
	got, err := msgDecodeString(utf16, "001F")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hi" {
		t.Fatalf("unicode property = %q, want %q", got, "Hi")
	}

	got, err = msgDecodeString([]byte("plain"), "001E")
	if err != nil {
		t.Fatal(err)
	}
	if got != "plain" {
		t.Fatalf("string8 property = %q, want %q", got, "plain")
	}

	if _, err := msgDecodeString(nil, "0102"); err == nil {
		t.Fatal("binary property type must be rejected")
	}
}

func TestMsgTextRejectsNonCompoundFile(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.msg")
	os.WriteFile(path, []byte("From: someone\n\nnot an OLE container\n"), 0644)

	if _, err := c.ToText(context.Background(), path, classify.GenericConvertible); err == nil {
		t.Fatal("plain text with a .msg extension must not parse as a compound document")
	}
}

func TestMboxText(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.mbox")
	mbox := "From alice@example.com Thu Jan  1 00:00:00 2026\n" +
		"From: alice@example.com\nSubject: One\n\nfirst body\n\n" +
		"From bob@example.com Thu Jan  2 00:00:00 2026\n" +
		"From: bob@example.com\nSubject: Two\n\nsecond body\n"
	os.WriteFile(path, []byte(mbox), 0644)

	text, err := c.ToText(context.Background(), path, classify.GenericConvertible)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "first body") || !strings.Contains(text, "second body") {
		t.Fatalf("mbox messages missing:\n%s", text)
	}
}

func TestRtfText(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.rtf")
	rtf := `{\rtf1\ansi{\fonttbl{\f0 Calibri;}}\f0\fs22 Hello \b bold\b0  world.\par Second line.\par}`
	os.WriteFile(path, []byte(rtf), 0644)

	text, err := c.ToText(context.Background(), path, classify.GenericConvertible)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Hello bold world.") {
		t.Fatalf("body missing:\n%q", text)
	}
	if !strings.Contains(text, "Second line.") {
		t.Fatalf("paragraph break lost:\n%q", text)
	}
	if strings.Contains(text, "Calibri") {
		t.Fatalf("font table leaked:\n%q", text)
	}
}

func TestPlainTextEmptyPlaceholder(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	os.WriteFile(path, nil, 0644)

	text, err := c.ToText(context.Background(), path, classify.PlainText)
	if err != nil {
		t.Fatal(err)
	}
	if text != EmptyPlaceholder {
		t.Fatalf("text = %q, want placeholder", text)
	}
}

func TestPlainTextShiftJIS(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ja.txt")
	// Shift-JIS bytes for "日本語".
	os.WriteFile(path, []byte{0x93, 0xfa, 0x96, 0x7b, 0x8c, 0xea}, 0644)

	text, err := c.ToText(context.Background(), path, classify.PlainText)
	if err != nil {
		t.Fatal(err)
	}
	if text != "日本語" {
		t.Fatalf("text = %q, want 日本語", text)
	}
}

func TestSanitize(t *testing.T) {
	in := "a\u200bb\ufeffc\x00d\ne\tf\u00adg"
	want := "abcd\ne\tfg"
	if got := Sanitize(in); got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
}

func TestSofficeMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	c := newConverter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "old.doc")
	os.WriteFile(path, []byte("legacy"), 0644)

	_, err := c.ToText(context.Background(), path, classify.OfficeLegacy)
	if !errors.Is(err, ErrLibraryMissing) {
		t.Fatalf("err = %v, want ErrLibraryMissing", err)
	}
}
