package extractor

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// zipFlagEncrypted is bit 0 of the general purpose flags.
const zipFlagEncrypted = 0x1

func (e *Extractor) extractZip(path, destDir string) Result {
	r, err := zip.OpenReader(path)
	// ErrInsecurePath still yields a usable reader; member containment is
	// enforced below either way.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return Result{Status: StatusError, Err: fmt.Errorf("open zip: %w", err)}
	}
	defer r.Close()

	var dropped []string
	for _, f := range r.File {
		if zipEntryEncrypted(&f.FileHeader) {
			return Result{Status: StatusPasswordProtected, Err: errPasswordProtected}
		}
		name := zipMemberName(&f.FileHeader)
		target, ok := securePath(destDir, name)
		if !ok {
			// Escaping members are dropped, never fatal for the archive.
			e.logger.Debug("dropping member escaping scratch dir", "archive", path, "member", name)
			dropped = append(dropped, name)
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return Result{Status: StatusError, Err: fmt.Errorf("mkdir %s: %w", name, err)}
			}
			continue
		}
		if err := writeZipMember(f, target); err != nil {
			return Result{Status: StatusError, Err: fmt.Errorf("extract %s: %w", name, err)}
		}
	}
	return Result{Status: StatusOK, Dropped: dropped}
}

func zipEntryEncrypted(h *zip.FileHeader) bool {
	return h.Flags&zipFlagEncrypted != 0
}

// zipMemberName recovers a usable member name. Archives produced by older
// Windows tools store names as raw Shift-JIS bytes without the UTF-8 flag;
// those are re-decoded before falling back to the raw string.
func zipMemberName(h *zip.FileHeader) string {
	if !h.NonUTF8 || utf8.ValidString(h.Name) {
		return h.Name
	}
	decoded, _, err := transform.String(japanese.ShiftJIS.NewDecoder(), h.Name)
	if err != nil || strings.ContainsRune(decoded, utf8.RuneError) {
		return h.Name
	}
	return decoded
}

func writeZipMember(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
