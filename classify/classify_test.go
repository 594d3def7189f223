package classify

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/miitarou/notebooklm-loader/config"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return New(cfg)
}

func TestClassifyByExtension(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		path string
		want Category
	}{
		{"notes.one", SkipExplicit},
		{"movie.mp4", SkipExplicit},
		{"bundle.zip", Archive},
		{"bundle.tar", Archive},
		{"bundle.tgz", Archive},
		{"bundle.lzh", Archive},
		{"report.docx", OfficeModern},
		{"sheet.xlsx", OfficeModern},
		{"deck.pptx", OfficeModern},
		{"old.xls", OfficeModern},
		{"old.doc", OfficeLegacy},
		{"old.ppt", OfficeLegacy},
		{"spec.pdf", PdfPassthrough},
		{"mail.eml", GenericConvertible},
		{"book.epub", GenericConvertible},
		{"page.html", GenericConvertible},
		{"diagram.vsdx", VectorDiagram},
		{"photo.JPG", Image},
		{"readme.md", PlainText},
		{"script.py", PlainText},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.path, 100); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestClassifyOversize(t *testing.T) {
	c := newClassifier(t)

	big := int64(101) * 1024 * 1024
	if got := c.Classify("report.docx", big); got != SkipOversize {
		t.Fatalf("oversized docx = %s, want %s", got, SkipOversize)
	}
	// Skip list wins over the size ceiling.
	if got := c.Classify("movie.mp4", big); got != SkipExplicit {
		t.Fatalf("oversized mp4 = %s, want %s", got, SkipExplicit)
	}
}

func TestClassifyUnknownExtensionProbes(t *testing.T) {
	c := newClassifier(t)
	dir := t.TempDir()

	textPath := filepath.Join(dir, "notes.unknownext")
	os.WriteFile(textPath, []byte("plain readable text\nsecond line\n"), 0644)
	if got := c.Classify(textPath, 32); got != PlainText {
		t.Errorf("text probe = %s, want %s", got, PlainText)
	}

	binPath := filepath.Join(dir, "blob.unknownext")
	os.WriteFile(binPath, bytes.Repeat([]byte{0x00, 0x9c, 0x01, 0xff}, 512), 0644)
	if got := c.Classify(binPath, 2048); got != SkipBinary {
		t.Errorf("binary probe = %s, want %s", got, SkipBinary)
	}

	// Unreadable file: conservative skip.
	if got := c.Classify(filepath.Join(dir, "missing.unknownext"), 10); got != SkipBinary {
		t.Errorf("missing file = %s, want %s", got, SkipBinary)
	}
}

func TestDetectTextEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.weird")
	os.WriteFile(path, nil, 0644)
	if !DetectText(path) {
		t.Fatal("empty file should count as text")
	}
}

func TestDetectTextRejectsNULFreeBinary(t *testing.T) {
	// Compressed or encrypted content has no NUL bytes to trip the ratio
	// gate; the decode gate has to reject it on its own.
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.xyz")
	r := rand.New(rand.NewSource(1))
	data := make([]byte, probeSize)
	for i := range data {
		data[i] = byte(r.Intn(255)) + 1
	}
	os.WriteFile(path, data, 0644)
	if DetectText(path) {
		t.Fatal("NUL-free random bytes must not classify as text")
	}
}

func TestDetectTextAcceptsLegacyCharsets(t *testing.T) {
	dir := t.TempDir()

	latin := filepath.Join(dir, "latin.unknownext")
	os.WriteFile(latin, bytes.Repeat([]byte("caf\xe9 au lait\n"), 40), 0644)
	if !DetectText(latin) {
		t.Fatal("Windows-1252 text must classify as text")
	}

	// Shift-JIS bytes for "日本語" plus newline.
	sjis := filepath.Join(dir, "ja.unknownext")
	os.WriteFile(sjis, bytes.Repeat([]byte{0x93, 0xfa, 0x96, 0x7b, 0x8c, 0xea, 0x0a}, 40), 0644)
	if !DetectText(sjis) {
		t.Fatal("Shift-JIS text must classify as text")
	}
}

func TestDensity(t *testing.T) {
	if d := Density(3000, 0); d != 9999 {
		t.Fatalf("no visuals: density = %v, want sentinel 9999", d)
	}
	if d := Density(600, 2); d != 300 {
		t.Fatalf("density = %v, want 300", d)
	}
}

func TestReroutePDF(t *testing.T) {
	tests := []struct {
		name            string
		chars, visuals  int
		want            bool
	}{
		{"text heavy, no visuals", 50000, 0, false},
		{"sparse text per visual", 500, 2, true},
		{"dense text per visual", 2000, 2, false},
		{"visual count at limit", 100000, 5, true},
		{"visual count above limit", 100000, 9, true},
		{"boundary density not below threshold", 1200, 4, false},
	}
	for _, tt := range tests {
		if got := ReroutePDF(tt.chars, tt.visuals, 300, 5); got != tt.want {
			t.Errorf("%s: ReroutePDF(%d, %d) = %v, want %v", tt.name, tt.chars, tt.visuals, got, tt.want)
		}
	}
}

func TestDecodeText(t *testing.T) {
	// Shift-JIS bytes for "日本語".
	sjis := []byte{0x93, 0xfa, 0x96, 0x7b, 0x8c, 0xea}
	got, err := DecodeText(sjis)
	if err != nil {
		t.Fatal(err)
	}
	if got != "日本語" {
		t.Fatalf("DecodeText = %q, want %q", got, "日本語")
	}

	utf8Text, err := DecodeText([]byte("already utf-8 ✓"))
	if err != nil {
		t.Fatal(err)
	}
	if utf8Text != "already utf-8 ✓" {
		t.Fatalf("DecodeText utf-8 = %q", utf8Text)
	}
}
