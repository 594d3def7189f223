package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/miitarou/notebooklm-loader/classify"
	"github.com/miitarou/notebooklm-loader/retry"
)

// sofficeBinary resolves the LibreOffice binary, honoring the configured
// override. Returns ErrLibraryMissing when nothing is installed.
func (c *Converter) sofficeBinary() (string, error) {
	if c.cfg.SofficePath != "" {
		if _, err := os.Stat(c.cfg.SofficePath); err != nil {
			return "", fmt.Errorf("%w: configured soffice path %s: %v", ErrLibraryMissing, c.cfg.SofficePath, err)
		}
		return c.cfg.SofficePath, nil
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: soffice not found on PATH", ErrLibraryMissing)
}

// OfficeToPDF renders an office or Visio document to PDF via LibreOffice
// headless, writing the result into outDir. The conversion is retried;
// LibreOffice occasionally fails on a cold profile and succeeds on the
// next attempt. Returns the produced PDF path.
func (c *Converter) OfficeToPDF(ctx context.Context, path, outDir string) (string, error) {
	bin, err := c.sofficeBinary()
	if err != nil {
		return "", err
	}
	return retry.Do(ctx, c.retryCfg, "soffice convert-to pdf",
		func(ctx context.Context) (string, error) {
			return c.runSoffice(ctx, bin, path, outDir, "pdf")
		})
}

// legacyToText converts pre-XML office documents through LibreOffice's
// text filter, then reads the produced file back.
func (c *Converter) legacyToText(ctx context.Context, path string) (string, error) {
	bin, err := c.sofficeBinary()
	if err != nil {
		return "", err
	}
	scratch, err := os.MkdirTemp("", "loader-soffice-*")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	outPath, err := retry.Do(ctx, c.retryCfg, "soffice convert-to txt",
		func(ctx context.Context) (string, error) {
			return c.runSoffice(ctx, bin, path, scratch, "txt:Text")
		})
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read converted text: %w", err)
	}
	text, err := classify.DecodeText(data)
	if err != nil {
		return "", fmt.Errorf("decode converted text: %w", err)
	}
	return text, nil
}

// runSoffice performs one headless conversion and returns the output path.
func (c *Converter) runSoffice(ctx context.Context, bin, path, outDir, filter string) (string, error) {
	cmd := exec.CommandContext(ctx, bin,
		"--headless", "--norestore",
		"--convert-to", filter,
		"--outdir", outDir,
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("soffice: %w: %s", err, firstLine(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := "." + strings.SplitN(filter, ":", 2)[0]
	produced := filepath.Join(outDir, base+ext)
	if _, err := os.Stat(produced); err != nil {
		// soffice sometimes exits zero without producing output.
		return "", fmt.Errorf("soffice produced no output for %s: %s", filepath.Base(path), firstLine(string(out)))
	}
	return produced, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
