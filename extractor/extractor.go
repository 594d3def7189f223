// Package extractor expands archives into a scratch directory so their
// members can be fed back through the normal file pipeline. ZIP, tar and
// gzip are handled natively; 7z, rar and lzh shell out to the matching
// command-line tool and degrade cleanly when the tool is absent.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Status is the outcome of one extraction attempt.
type Status int

const (
	// StatusOK means the scratch directory holds the usable members.
	StatusOK Status = iota
	// StatusPasswordProtected means the archive needs a password; no
	// member was extracted.
	StatusPasswordProtected
	// StatusMultiVolume means the archive is one part of a multi-volume
	// set, which is not supported.
	StatusMultiVolume
	// StatusLibraryMissing means the external tool for this format is not
	// installed.
	StatusLibraryMissing
	// StatusError covers every other failure.
	StatusError
)

var statusNames = map[Status]string{
	StatusOK:                "ok",
	StatusPasswordProtected: "password_protected",
	StatusMultiVolume:       "multi_volume",
	StatusLibraryMissing:    "library_missing",
	StatusError:             "error",
}

func (s Status) String() string { return statusNames[s] }

var (
	errPasswordProtected = errors.New("archive is password protected")
	errMultiVolume       = errors.New("multi-volume archive")
)

// Result reports one extraction.
type Result struct {
	Status Status
	// Dropped lists member names rejected for escaping the scratch dir.
	Dropped []string
	Err     error
}

// Extractor expands archives by extension.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract expands the archive at path into destDir. destDir must exist and
// be empty. The returned Result carries a non-OK status for all recognized
// degradations; Err is set for StatusError and usually nil otherwise.
func (e *Extractor) Extract(ctx context.Context, path, destDir string) Result {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
		ext = ".tgz"
	}
	switch ext {
	case ".zip":
		return e.extractZip(path, destDir)
	case ".tar", ".tgz":
		return e.extractTar(path, destDir, ext == ".tgz")
	case ".gz":
		return e.extractGzip(path, destDir)
	case ".7z":
		return e.extractWithTool(ctx, path, destDir, tool7z)
	case ".rar":
		return e.extractWithTool(ctx, path, destDir, toolUnrar)
	case ".lzh":
		return e.extractWithTool(ctx, path, destDir, toolLha)
	default:
		return Result{Status: StatusError, Err: fmt.Errorf("unsupported archive format %q", ext)}
	}
}

// securePath joins member inside destDir and rejects names that resolve
// outside it. The second return is false for escaping members.
func securePath(destDir, member string) (string, bool) {
	clean := filepath.Clean(filepath.FromSlash(member))
	if clean == "." || filepath.IsAbs(clean) {
		return "", false
	}
	target := filepath.Join(destDir, clean)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}
