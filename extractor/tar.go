package extractor

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func (e *Extractor) extractTar(path, destDir string, gzipped bool) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("open tar: %w", err)}
	}
	defer f.Close()

	var src io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Result{Status: StatusError, Err: fmt.Errorf("gzip reader: %w", err)}
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(src)
	var dropped []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		// ErrInsecurePath still yields the header; containment is
		// enforced below either way.
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return Result{Status: StatusError, Err: fmt.Errorf("read tar: %w", err)}
		}
		target, ok := securePath(destDir, hdr.Name)
		if !ok {
			e.logger.Debug("dropping member escaping scratch dir", "archive", path, "member", hdr.Name)
			dropped = append(dropped, hdr.Name)
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return Result{Status: StatusError, Err: fmt.Errorf("mkdir %s: %w", hdr.Name, err)}
			}
		case tar.TypeReg:
			if err := writeTarMember(tr, target); err != nil {
				return Result{Status: StatusError, Err: fmt.Errorf("extract %s: %w", hdr.Name, err)}
			}
		default:
			// Symlinks and specials are not materialized in the scratch dir.
			e.logger.Debug("skipping non-regular tar member", "archive", path, "member", hdr.Name)
		}
	}
	return Result{Status: StatusOK, Dropped: dropped}
}

// extractGzip handles a bare .gz wrapping a single file: the member takes
// the archive's name minus the suffix.
func (e *Extractor) extractGzip(path, destDir string) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("open gz: %w", err)}
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("gzip reader: %w", err)}
	}
	defer gz.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name == "" {
		name = "content"
	}
	target := filepath.Join(destDir, name)
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return Result{Status: StatusError, Err: err}
	}
	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		return Result{Status: StatusError, Err: fmt.Errorf("decompress %s: %w", name, err)}
	}
	if err := out.Close(); err != nil {
		return Result{Status: StatusError, Err: err}
	}
	return Result{Status: StatusOK}
}

func writeTarMember(tr *tar.Reader, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, tr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
