// Package summary aggregates per-file outcomes for a run and writes the
// machine-readable processing report.
package summary

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ReportName is the JSON report written into the output directory.
const ReportName = "processing_report.json"

// Status is the terminal outcome of one file.
type Status string

const (
	StatusConverted         Status = "converted"
	StatusExpanded          Status = "expanded"
	StatusSkipped           Status = "skipped"
	StatusUnchanged         Status = "unchanged"
	StatusPasswordProtected Status = "password_protected"
	StatusLibraryMissing    Status = "library_missing"
	StatusMultiVolume       Status = "multi_volume_unsupported"
	StatusConversionFailed  Status = "conversion_failed"
	StatusWriteFailed       Status = "write_failed"
)

// FileResult records what happened to one input file.
type FileResult struct {
	RelPath  string `json:"relative_path"`
	Category string `json:"category"`
	Status   Status `json:"status"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Chars    int    `json:"chars,omitempty"`
}

// DensityEntry records one office rerouting decision for the end-of-run table.
type DensityEntry struct {
	RelPath     string  `json:"relative_path"`
	CharCount   int     `json:"char_count"`
	VisualCount int     `json:"visual_count"`
	Density     float64 `json:"density"`
	Rerouted    bool    `json:"rerouted_to_pdf"`
}

// Summary accumulates results over one run. Not safe for concurrent use.
// Every recorded file lands in exactly one of the tally counters.
type Summary struct {
	RunAt      time.Time      `json:"run_time"`
	TargetPath string         `json:"target_path"`
	Total      int            `json:"total"`
	Converted  int            `json:"converted"`
	Expanded   int            `json:"expanded,omitempty"`
	Skipped    int            `json:"skipped"`
	Unchanged  int            `json:"unchanged"`
	Protected  int            `json:"password_protected"`
	Failed     int            `json:"failed"`
	Volumes    int            `json:"merged_volumes,omitempty"`
	Files      []FileResult   `json:"files"`
	Density    []DensityEntry `json:"density_report,omitempty"`
	Passworded []string       `json:"password_protected_files,omitempty"`
}

// New starts an empty summary for a run over targetPath.
func New(targetPath string) *Summary {
	return &Summary{RunAt: time.Now().UTC(), TargetPath: targetPath}
}

// Record folds one file outcome into the totals. Password-protected
// archives are counted on their own, not as failures.
func (s *Summary) Record(r FileResult) {
	s.Files = append(s.Files, r)
	s.Total++
	switch r.Status {
	case StatusConverted:
		s.Converted++
	case StatusExpanded:
		s.Expanded++
	case StatusSkipped:
		s.Skipped++
	case StatusUnchanged:
		s.Unchanged++
	case StatusPasswordProtected:
		s.Passworded = append(s.Passworded, r.RelPath)
		s.Protected++
	default:
		s.Failed++
	}
}

// RecordDensity adds one office rerouting decision to the density table.
func (s *Summary) RecordDensity(d DensityEntry) {
	s.Density = append(s.Density, d)
}

// Write serializes the report into dir as processing_report.json.
func (s *Summary) Write(dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, ReportName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Log emits the end-of-run totals, the password-protected file list, and
// the density table through the run logger.
func (s *Summary) Log(logger *slog.Logger) {
	logger.Info("run complete",
		"target", s.TargetPath,
		"total", s.Total,
		"converted", s.Converted,
		"skipped", s.Skipped,
		"unchanged", s.Unchanged,
		"password_protected", s.Protected,
		"failed", s.Failed,
		"volumes", s.Volumes,
	)
	if len(s.Passworded) > 0 {
		sorted := append([]string(nil), s.Passworded...)
		sort.Strings(sorted)
		logger.Warn("password-protected files were not converted", "count", len(sorted))
		for _, p := range sorted {
			logger.Warn("password protected", "file", p)
		}
	}
	for _, d := range s.Density {
		logger.Info("visual density decision",
			"file", d.RelPath,
			"chars", d.CharCount,
			"visuals", d.VisualCount,
			"density", fmt.Sprintf("%.1f", d.Density),
			"rerouted_to_pdf", d.Rerouted,
		)
	}
}
