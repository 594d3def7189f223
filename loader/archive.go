package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/miitarou/notebooklm-loader/extractor"
	"github.com/miitarou/notebooklm-loader/summary"
)

// processArchive expands an archive into a scratch directory and feeds the
// members back through processFile. The visited set breaks archive cycles:
// an archive is expanded at most once per run, by resolved path identity.
func (l *Loader) processArchive(ctx context.Context, path, rel string, chain []string) {
	cat := l.cls.Classify(path, 0)

	identity, err := filepath.EvalSymlinks(path)
	if err != nil {
		identity = path
	}
	if identity, err = filepath.Abs(identity); err != nil {
		identity = path
	}
	if _, seen := l.visitedArchives[identity]; seen {
		l.logger.Warn("archive cycle detected, skipping repeat expansion",
			"archive", displayPath(rel, chain), "resolved", identity)
		l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusSkipped})
		return
	}
	l.visitedArchives[identity] = struct{}{}

	// Physical archives participate in incremental skipping as a unit: an
	// unchanged archive is never re-expanded.
	key := trackerKey(rel)
	if len(chain) == 0 {
		l.seenKeys[key] = struct{}{}
		if !l.opts.FullRebuild && !l.tracker.NeedsProcessing(ctx, key, path) {
			l.logger.Debug("archive unchanged, skipping expansion", "archive", rel)
			l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusUnchanged})
			return
		}
	}

	scratch, err := os.MkdirTemp("", "loader-archive-*")
	if err != nil {
		l.recordResult(rel, chain, cat, summary.FileResult{
			Status: summary.StatusConversionFailed,
			Error:  "scratch dir: " + err.Error(),
		})
		return
	}
	defer os.RemoveAll(scratch)

	res := l.ext.Extract(ctx, path, scratch)
	switch res.Status {
	case extractor.StatusOK:
	case extractor.StatusPasswordProtected:
		l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusPasswordProtected})
		return
	case extractor.StatusMultiVolume:
		l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusMultiVolume})
		return
	case extractor.StatusLibraryMissing:
		l.recordResult(rel, chain, cat, summary.FileResult{
			Status: summary.StatusLibraryMissing,
			Error:  res.Err.Error(),
		})
		return
	default:
		l.recordResult(rel, chain, cat, summary.FileResult{
			Status: summary.StatusConversionFailed,
			Error:  res.Err.Error(),
		})
		return
	}
	if len(res.Dropped) > 0 {
		l.logger.Warn("archive members dropped for escaping the scratch dir",
			"archive", rel, "count", len(res.Dropped))
	}

	members, err := l.collectFiles(scratch)
	if err != nil {
		l.recordResult(rel, chain, cat, summary.FileResult{
			Status: summary.StatusConversionFailed,
			Error:  "scan scratch: " + err.Error(),
		})
		return
	}

	memberChain := append(append([]string(nil), chain...), filepath.Base(path))
	for _, memberRel := range members {
		l.processFile(ctx, filepath.Join(scratch, memberRel), memberRel, memberChain)
		if ctx.Err() != nil {
			return
		}
	}

	l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusExpanded})
	if len(chain) == 0 {
		if err := l.tracker.RecordProcessed(ctx, key, path, "", cat.String()); err != nil {
			l.logger.Warn("state record failed", "archive", rel, "error", err)
		}
	}
}
