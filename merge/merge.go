// Package merge packs converted documents into size-bounded Markdown
// volumes. A volume never exceeds the configured character budget: the
// bound is enforced before content is accepted, not checked after the
// fact. Files too large for any single volume are split on line
// boundaries into sequentially numbered parts.
package merge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	tocHeader  = "# Table of Contents\n\n"
	tocPrefix  = "- "
	separator  = "\n---\n\n"
	bodyJoiner = "\n\n"
)

// Config sizes the volume writer.
type Config struct {
	// MaxChars bounds a rendered volume's character count (default: 5,000,000).
	MaxChars int

	// MaxParts caps how many parts one oversized file may produce before
	// the remainder is dropped (default: 10,000).
	MaxParts int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxChars <= 0 {
		c.MaxChars = 5_000_000
	}
	if c.MaxParts <= 0 {
		c.MaxParts = 10_000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type entry struct {
	name string
	body string
}

// Writer accumulates documents and flushes them as numbered volumes under
// dir. Not safe for concurrent use.
type Writer struct {
	dir    string
	cfg    Config
	logger *slog.Logger

	vol       int
	entries   []entry
	tocChars  int
	bodyChars int
	finalized bool
	volumes   []string
}

// NewWriter creates a volume writer targeting dir. The directory is
// created on the first flush, not here.
func NewWriter(dir string, cfg Config) *Writer {
	cfg.defaults()
	return &Writer{dir: dir, cfg: cfg, logger: cfg.Logger}
}

// Add appends one named document body to the current volume, flushing
// first when it would not fit. A body too large for an empty volume is
// split on line boundaries into "(Part N)" entries.
func (w *Writer) Add(name, body string) error {
	if w.finalized {
		return fmt.Errorf("merge: writer already finalized")
	}
	if w.fits(name, body) {
		w.append(name, body)
		return nil
	}
	if len(w.entries) > 0 {
		if err := w.Flush(); err != nil {
			return err
		}
		if w.fits(name, body) {
			w.append(name, body)
			return nil
		}
	}
	return w.addSplit(name, body)
}

// fits reports whether adding (name, body) keeps the rendered volume
// within budget.
func (w *Writer) fits(name, body string) bool {
	return w.projectedSize(name, body) <= w.cfg.MaxChars
}

func (w *Writer) projectedSize(name, body string) int {
	n := len(w.entries) + 1
	toc := w.tocChars + runeLen(tocPrefix+name) + 1 // trailing newline
	bodies := w.bodyChars + runeLen(body)
	return runeLen(tocHeader) + toc + runeLen(separator) + bodies + (n-1)*runeLen(bodyJoiner) + 1
}

func (w *Writer) append(name, body string) {
	w.entries = append(w.entries, entry{name: name, body: body})
	w.tocChars += runeLen(tocPrefix+name) + 1
	w.bodyChars += runeLen(body)
}

// addSplit breaks an oversized body into line-bounded parts, each flushed
// as (at most) one full volume. The current buffer is empty on entry.
func (w *Writer) addSplit(name, body string) error {
	lines := strings.SplitAfter(body, "\n")
	part := 1
	var sb strings.Builder
	sbChars := 0
	var firstErr error

	flushPart := func() error {
		if sb.Len() == 0 {
			return nil
		}
		// The part header rides in the body so the boundary stays visible
		// after the part is packed into a volume with other files.
		body := partHeader(name, part) + strings.TrimSuffix(sb.String(), "\n")
		w.append(partName(name, part), body)
		sb.Reset()
		sbChars = 0
		part++
		return w.Flush()
	}

	for i, line := range lines {
		lineChars := runeLen(line)
		capacity := w.partCapacity(name, part)
		if sbChars > 0 && sbChars+lineChars > capacity {
			if part > w.cfg.MaxParts {
				w.logger.Warn("part ceiling reached, dropping remainder",
					"name", name, "max_parts", w.cfg.MaxParts, "dropped_lines", len(lines)-i)
				return firstErr
			}
			if err := flushPart(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		// A single line above capacity is emitted whole as its own
		// oversized part; lines are never cut.
		sb.WriteString(line)
		sbChars += lineChars
		if sbChars > w.partCapacity(name, part) {
			if part > w.cfg.MaxParts {
				w.logger.Warn("part ceiling reached, dropping remainder",
					"name", name, "max_parts", w.cfg.MaxParts, "dropped_lines", len(lines)-i-1)
				return firstErr
			}
			w.logger.Warn("single line exceeds volume capacity, emitting oversized part",
				"name", name, "part", part, "chars", sbChars)
			if err := flushPart(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if sb.Len() > 0 {
		if part > w.cfg.MaxParts {
			w.logger.Warn("part ceiling reached, dropping remainder",
				"name", name, "max_parts", w.cfg.MaxParts)
			return firstErr
		}
		body := partHeader(name, part) + strings.TrimSuffix(sb.String(), "\n")
		w.append(partName(name, part), body)
	}
	return firstErr
}

// partCapacity is the largest content that fits a single-entry volume
// whose TOC entry and in-body header carry the given part name.
func (w *Writer) partCapacity(name string, part int) int {
	overhead := runeLen(tocHeader) + runeLen(tocPrefix+partName(name, part)) + 1 +
		runeLen(separator) + runeLen(partHeader(name, part)) + 1
	return w.cfg.MaxChars - overhead
}

func partName(name string, part int) string {
	return fmt.Sprintf("%s (Part %d)", name, part)
}

func partHeader(name string, part int) string {
	return "# " + partName(name, part) + "\n\n"
}

// Flush writes the buffered entries as the next volume. The volume
// counter advances even when the write fails, so a bad volume never
// silently reuses a number. The buffer is cleared either way.
func (w *Writer) Flush() error {
	if len(w.entries) == 0 {
		return nil
	}
	w.vol++
	name := fmt.Sprintf("Merged_Files_Vol%02d.md", w.vol)
	path := filepath.Join(w.dir, name)
	content := w.render()
	files := len(w.entries)

	w.entries = nil
	w.tocChars = 0
	w.bodyChars = 0

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create merge dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.volumes = append(w.volumes, path)
	w.logger.Info("volume written", "volume", name, "chars", runeLen(content), "files", files)
	return nil
}

func (w *Writer) render() string {
	var sb strings.Builder
	sb.WriteString(tocHeader)
	for _, e := range w.entries {
		sb.WriteString(tocPrefix)
		sb.WriteString(e.name)
		sb.WriteByte('\n')
	}
	sb.WriteString(separator)
	for i, e := range w.entries {
		if i > 0 {
			sb.WriteString(bodyJoiner)
		}
		sb.WriteString(e.body)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Finalize flushes the last partial volume. Safe to call more than once;
// only the first call does work.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	return w.Flush()
}

// Volumes returns the paths written so far, in volume order.
func (w *Writer) Volumes() []string { return w.volumes }

func runeLen(s string) int { return utf8.RuneCountInString(s) }
