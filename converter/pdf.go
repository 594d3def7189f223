package converter

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// ImageToPDF wraps an image file into a single-page PDF at outPath.
func (c *Converter) ImageToPDF(path, outPath string) error {
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImagesFile([]string{path}, outPath, imp, nil); err != nil {
		return fmt.Errorf("import image: %w", err)
	}
	return nil
}

// CopyPDF validates a PDF and copies it byte-for-byte to outPath.
// Corrupt files fail here rather than poisoning the output set.
func (c *Converter) CopyPDF(path, outPath string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer in.Close()
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy pdf: %w", err)
	}
	return out.Close()
}
