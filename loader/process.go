package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/miitarou/notebooklm-loader/classify"
	"github.com/miitarou/notebooklm-loader/converter"
	"github.com/miitarou/notebooklm-loader/summary"
)

// processFile is the per-file fault boundary: no error or panic from one
// file's conversion escapes into the run. chain lists enclosing archives,
// outermost first; it is empty for files physically under the target root.
func (l *Loader) processFile(ctx context.Context, path, rel string, chain []string) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic while processing file", "file", rel, "panic", r)
			l.record(rel, "", summary.FileResult{
				RelPath: filepath.ToSlash(rel),
				Status:  summary.StatusConversionFailed,
				Error:   fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		l.record(rel, "", summary.FileResult{
			RelPath: filepath.ToSlash(rel),
			Status:  summary.StatusConversionFailed,
			Error:   err.Error(),
		})
		return
	}

	cat := l.cls.Classify(path, info.Size())
	ext := strings.ToLower(filepath.Ext(path))

	if l.cfg.SkipPPT && (ext == ".ppt" || ext == ".pptx") {
		l.logger.Debug("skipping presentation", "file", rel)
		l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusSkipped})
		return
	}
	if cat.IsSkip() {
		l.logger.Debug("skipping file", "file", rel, "category", cat.String())
		l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusSkipped})
		return
	}

	if cat == classify.Archive {
		l.processArchive(ctx, path, rel, chain)
		return
	}

	// Incremental skip applies to physical files only; archive members
	// live in scratch dirs and are covered by their archive's identity.
	key := trackerKey(rel)
	if len(chain) == 0 {
		l.seenKeys[key] = struct{}{}
		if !l.opts.FullRebuild && !l.tracker.NeedsProcessing(ctx, key, path) {
			l.logger.Debug("unchanged, skipping", "file", rel)
			l.recordResult(rel, chain, cat, summary.FileResult{Status: summary.StatusUnchanged})
			return
		}
	}

	result := l.convert(ctx, path, rel, chain, cat)
	l.recordResult(rel, chain, cat, result)

	if result.Status == summary.StatusConverted && len(chain) == 0 {
		if err := l.tracker.RecordProcessed(ctx, key, path, result.Output, cat.String()); err != nil {
			l.logger.Warn("state record failed", "file", rel, "error", err)
		}
	}
}

// convert produces the output for one non-archive file and returns the
// outcome. The returned FileResult carries only outcome fields; provenance
// is filled in by recordResult.
func (l *Loader) convert(ctx context.Context, path, rel string, chain []string, cat classify.Category) summary.FileResult {
	switch cat {
	case classify.PdfPassthrough:
		out := pdfOutputName(rel)
		if err := l.conv.CopyPDF(path, filepath.Join(l.outputDir, out)); err != nil {
			return failResult(err)
		}
		l.exportPDF(out)
		return summary.FileResult{Status: summary.StatusConverted, Output: out}

	case classify.Image:
		out := pdfOutputName(rel)
		if err := l.conv.ImageToPDF(path, filepath.Join(l.outputDir, out)); err != nil {
			return failResult(err)
		}
		l.exportPDF(out)
		return summary.FileResult{Status: summary.StatusConverted, Output: out}

	case classify.VectorDiagram:
		return l.renderPDF(ctx, path, rel)

	case classify.OfficeModern:
		analysis, err := l.conv.AnalyzeOffice(path)
		if err != nil {
			return failResult(err)
		}
		density := classify.Density(analysis.CharCount, analysis.VisualCount)
		reroute := classify.ReroutePDF(analysis.CharCount, analysis.VisualCount,
			l.cfg.VisualDensityThreshold, l.cfg.VisualCountLimit)
		l.sum.RecordDensity(summary.DensityEntry{
			RelPath:     filepath.ToSlash(rel),
			CharCount:   analysis.CharCount,
			VisualCount: analysis.VisualCount,
			Density:     density,
			Rerouted:    reroute,
		})
		if reroute {
			l.logger.Info("visual-heavy document, rendering to PDF",
				"file", rel, "visuals", analysis.VisualCount, "density", fmt.Sprintf("%.1f", density))
			return l.renderPDF(ctx, path, rel)
		}
		return l.convertText(ctx, path, rel, chain, cat)

	default:
		return l.convertText(ctx, path, rel, chain, cat)
	}
}

// convertText runs the text conversion path: convert, prefix the metadata
// header, write the .md file, and feed the merger.
func (l *Loader) convertText(ctx context.Context, path, rel string, chain []string, cat classify.Category) summary.FileResult {
	text, err := l.conv.ToText(ctx, path, cat)
	if err != nil {
		return failResult(err)
	}

	out := textOutputName(rel)
	content := fileHeader(rel, chain) + text + "\n"
	if err := os.WriteFile(filepath.Join(l.outputDir, out), []byte(content), 0644); err != nil {
		return summary.FileResult{Status: summary.StatusWriteFailed, Error: err.Error()}
	}
	if l.merger != nil {
		if err := l.merger.Add(out, content); err != nil {
			l.logger.Error("merge write failed", "file", rel, "error", err)
			return summary.FileResult{
				Status: summary.StatusWriteFailed,
				Output: out,
				Error:  err.Error(),
				Chars:  utf8.RuneCountInString(content),
			}
		}
	}
	return summary.FileResult{
		Status: summary.StatusConverted,
		Output: out,
		Chars:  utf8.RuneCountInString(content),
	}
}

// renderPDF converts a document to PDF via LibreOffice and moves the
// result under the flattened output name.
func (l *Loader) renderPDF(ctx context.Context, path, rel string) summary.FileResult {
	produced, err := l.conv.OfficeToPDF(ctx, path, l.outputDir)
	if err != nil {
		return failResult(err)
	}
	out := pdfOutputName(rel)
	target := filepath.Join(l.outputDir, out)
	if produced != target {
		if err := os.Rename(produced, target); err != nil {
			os.Remove(produced)
			return summary.FileResult{Status: summary.StatusWriteFailed, Error: err.Error()}
		}
	}
	l.exportPDF(out)
	return summary.FileResult{Status: summary.StatusConverted, Output: out}
}

// exportPDF mirrors a produced PDF into the merged directory, where it
// sits next to the volumes as source material that cannot be merged.
func (l *Loader) exportPDF(out string) {
	if l.merger == nil {
		return
	}
	if err := os.MkdirAll(l.mergedDir, 0755); err != nil {
		l.logger.Warn("mirror pdf: create merged dir", "error", err)
		return
	}
	src := filepath.Join(l.outputDir, out)
	dst := filepath.Join(l.mergedDir, out)
	data, err := os.ReadFile(src)
	if err == nil {
		err = os.WriteFile(dst, data, 0644)
	}
	if err != nil {
		l.logger.Warn("mirror pdf into merged dir", "file", out, "error", err)
	}
}

func failResult(err error) summary.FileResult {
	status := summary.StatusConversionFailed
	if errors.Is(err, converter.ErrLibraryMissing) {
		status = summary.StatusLibraryMissing
	}
	return summary.FileResult{Status: status, Error: err.Error()}
}

// recordResult fills provenance fields and folds the outcome into the
// summary, logging failures as it goes.
func (l *Loader) recordResult(rel string, chain []string, cat classify.Category, r summary.FileResult) {
	r.RelPath = displayPath(rel, chain)
	r.Category = cat.String()
	l.record(rel, cat.String(), r)
}

func (l *Loader) record(rel, cat string, r summary.FileResult) {
	if r.RelPath == "" {
		r.RelPath = filepath.ToSlash(rel)
	}
	switch r.Status {
	case summary.StatusConverted, summary.StatusExpanded, summary.StatusSkipped, summary.StatusUnchanged:
	default:
		l.logger.Warn("file not converted", "file", r.RelPath, "status", string(r.Status), "error", r.Error)
	}
	l.sum.Record(r)
}

// displayPath shows archive members as archive!member so report entries
// stay unambiguous after flattening.
func displayPath(rel string, chain []string) string {
	if len(chain) == 0 {
		return filepath.ToSlash(rel)
	}
	return strings.Join(chain, "!") + "!" + filepath.ToSlash(rel)
}

func trackerKey(rel string) string { return filepath.ToSlash(rel) }
