// Package loader drives one conversion run: it walks the target tree,
// classifies every file, dispatches it to the matching converter, expands
// archives into scratch directories, and aggregates the outcome. One file
// failing never stops the run; only a missing target is fatal.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/miitarou/notebooklm-loader/classify"
	"github.com/miitarou/notebooklm-loader/config"
	"github.com/miitarou/notebooklm-loader/converter"
	"github.com/miitarou/notebooklm-loader/extractor"
	"github.com/miitarou/notebooklm-loader/merge"
	"github.com/miitarou/notebooklm-loader/state"
	"github.com/miitarou/notebooklm-loader/summary"
)

// Options are the per-run switches from the CLI.
type Options struct {
	// OutputBase is the directory receiving the output and merged
	// directories (default: current directory).
	OutputBase string

	// Merge also packs converted text into size-bounded volumes.
	Merge bool

	// DryRun lists what would be processed without converting anything.
	DryRun bool

	// FullRebuild ignores the incremental state and reprocesses everything.
	FullRebuild bool

	// Quiet suppresses the progress display.
	Quiet bool
}

// Loader is the per-run pipeline instance. Not safe for concurrent use;
// the run is deliberately single-threaded.
type Loader struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	cls  *classify.Classifier
	conv *converter.Converter
	ext  *extractor.Extractor

	tracker *state.Tracker
	merger  *merge.Writer
	sum     *summary.Summary
	bar     *progressbar.ProgressBar

	outputDir string
	mergedDir string

	// visitedArchives holds resolved paths of every archive opened in
	// this run; re-encountering one means a cycle, not more work.
	visitedArchives map[string]struct{}
	// seenKeys collects tracker keys observed this run, for pruning.
	seenKeys map[string]struct{}
}

// New assembles a Loader for one run.
func New(cfg *config.Config, opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OutputBase == "" {
		opts.OutputBase = "."
	}
	return &Loader{
		cfg:             cfg,
		opts:            opts,
		logger:          logger,
		cls:             classify.New(cfg),
		conv:            converter.New(cfg, logger),
		ext:             extractor.New(logger),
		outputDir:       filepath.Join(opts.OutputBase, cfg.OutputDirName),
		mergedDir:       filepath.Join(opts.OutputBase, cfg.MergedDirName),
		visitedArchives: make(map[string]struct{}),
		seenKeys:        make(map[string]struct{}),
	}
}

// OutputDir returns the directory receiving converted files.
func (l *Loader) OutputDir() string { return l.outputDir }

// Run processes everything under target. It returns an error only for
// run-level failures: a missing target, or an unusable output directory.
func (l *Loader) Run(ctx context.Context, target string) (*summary.Summary, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("target not found: %w", err)
	}

	root := target
	var files []string
	if info.IsDir() {
		files, err = l.collectFiles(root)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	} else {
		root = filepath.Dir(target)
		files = []string{filepath.Base(target)}
	}

	l.sum = summary.New(target)

	if l.opts.DryRun {
		l.dryRun(root, files)
		return l.sum, nil
	}

	if err := os.MkdirAll(l.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	l.tracker, err = state.Open(filepath.Join(l.outputDir, l.cfg.StateDBName), l.logger)
	if err != nil {
		return nil, fmt.Errorf("open state tracker: %w", err)
	}
	defer l.tracker.Close()

	if l.opts.Merge {
		l.merger = merge.NewWriter(l.mergedDir, merge.Config{
			MaxChars: l.cfg.MaxCharsPerVolume,
			MaxParts: l.cfg.MaxParts,
			Logger:   l.logger,
		})
	}

	if l.opts.Quiet {
		l.bar = progressbar.DefaultSilent(int64(len(files)))
	} else {
		l.bar = progressbar.Default(int64(len(files)), "converting")
	}

	for _, rel := range files {
		l.processFile(ctx, filepath.Join(root, rel), rel, nil)
		l.bar.Add(1)
		if ctx.Err() != nil {
			l.logger.Warn("run interrupted", "error", ctx.Err())
			break
		}
	}

	if ctx.Err() == nil {
		if pruned, err := l.tracker.PruneDeleted(ctx, l.seenKeys); err != nil {
			l.logger.Warn("prune failed", "error", err)
		} else if pruned > 0 {
			l.logger.Info("pruned deleted inputs from state", "count", pruned)
		}
	}

	if l.merger != nil {
		if err := l.merger.Finalize(); err != nil {
			l.logger.Error("finalize merge volumes", "error", err)
		}
		l.sum.Volumes = len(l.merger.Volumes())
	}

	if err := l.sum.Write(l.outputDir); err != nil {
		l.logger.Error("write processing report", "error", err)
	}
	l.sum.Log(l.logger)
	return l.sum, nil
}

func (l *Loader) dryRun(root string, files []string) {
	for _, rel := range files {
		path := filepath.Join(root, rel)
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Warn("dry-run: unreadable", "file", rel, "error", err)
			continue
		}
		cat := l.cls.Classify(path, info.Size())
		l.logger.Info("dry-run: would process", "file", rel, "category", cat.String())
		l.sum.Record(summary.FileResult{
			RelPath:  filepath.ToSlash(rel),
			Category: cat.String(),
			Status:   summary.StatusSkipped,
		})
	}
}
