package loader

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miitarou/notebooklm-loader/config"
	"github.com/miitarou/notebooklm-loader/summary"
)

func testLoader(t *testing.T, opts Options) (*Loader, string) {
	t.Helper()
	if opts.OutputBase == "" {
		opts.OutputBase = t.TempDir()
	}
	cfg := config.DefaultConfig()
	l := New(cfg, opts, nil)
	return l, opts.OutputBase
}

func writeInput(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunTargetNotFound(t *testing.T) {
	l, _ := testLoader(t, Options{Quiet: true})
	if _, err := l.Run(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("missing target must be fatal")
	}
}

func TestRunConvertsTextTree(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "readme.txt", "hello world")
	writeInput(t, root, filepath.Join("sub", "notes.md"), "# Notes\n\nbody")
	writeInput(t, root, ".hidden.txt", "should not appear")
	writeInput(t, root, "movie.mp4", "fake video")

	l, base := testLoader(t, Options{Quiet: true})
	sum, err := l.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Converted != 2 {
		t.Fatalf("converted = %d, want 2 (results: %+v)", sum.Converted, sum.Files)
	}
	if sum.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", sum.Skipped)
	}

	outDir := filepath.Join(base, "converted_files")
	data, err := os.ReadFile(filepath.Join(outDir, "readme.md"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "# File Info") || !strings.Contains(content, "hello world") {
		t.Fatalf("converted output:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(outDir, "sub_notes.md")); err != nil {
		t.Fatalf("nested file output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, summary.ReportName)); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestRunIncrementalSkipsSecondPass(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "a.txt", "alpha")
	writeInput(t, root, "b.txt", "beta")
	base := t.TempDir()

	l, _ := testLoader(t, Options{Quiet: true, OutputBase: base})
	sum, err := l.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Converted != 2 {
		t.Fatalf("first run converted = %d, want 2", sum.Converted)
	}

	// Second run: nothing changed, nothing converts.
	l2, _ := testLoader(t, Options{Quiet: true, OutputBase: base})
	sum2, err := l2.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum2.Converted != 0 || sum2.Unchanged != 2 {
		t.Fatalf("second run converted=%d unchanged=%d, want 0/2", sum2.Converted, sum2.Unchanged)
	}

	// Modify one file: only it reconverts.
	writeInput(t, root, "a.txt", "alpha v2")
	l3, _ := testLoader(t, Options{Quiet: true, OutputBase: base})
	sum3, err := l3.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum3.Converted != 1 || sum3.Unchanged != 1 {
		t.Fatalf("third run converted=%d unchanged=%d, want 1/1", sum3.Converted, sum3.Unchanged)
	}

	// Full rebuild ignores the state.
	l4, _ := testLoader(t, Options{Quiet: true, OutputBase: base, FullRebuild: true})
	sum4, err := l4.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum4.Converted != 2 {
		t.Fatalf("full rebuild converted = %d, want 2", sum4.Converted)
	}
}

func TestRunExpandsArchives(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "plain.txt", "top level")

	// bundle.zip holds a text file and a nested zip with another.
	var nested strings.Builder
	nestedPath := filepath.Join(t.TempDir(), "inner.zip")
	f, err := os.Create(nestedPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("deep.txt")
	w.Write([]byte("from the inner archive"))
	zw.Close()
	f.Close()
	nestedBytes, _ := os.ReadFile(nestedPath)
	nested.Write(nestedBytes)

	outer := filepath.Join(root, "bundle.zip")
	f, err = os.Create(outer)
	if err != nil {
		t.Fatal(err)
	}
	zw = zip.NewWriter(f)
	w, _ = zw.Create("member.txt")
	w.Write([]byte("from the outer archive"))
	w, _ = zw.Create("inner.zip")
	w.Write([]byte(nested.String()))
	zw.Close()
	f.Close()

	l, base := testLoader(t, Options{Quiet: true})
	sum, err := l.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	// plain.txt, member.txt, deep.txt all convert.
	if sum.Converted != 3 {
		t.Fatalf("converted = %d, want 3 (results: %+v)", sum.Converted, sum.Files)
	}

	outDir := filepath.Join(base, "converted_files")
	data, err := os.ReadFile(filepath.Join(outDir, "deep.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Context: bundle.zip > inner.zip > deep.txt") {
		t.Fatalf("archive chain missing from header:\n%s", data)
	}
}

func TestRunMergeProducesVolumes(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "a.txt", "alpha content")
	writeInput(t, root, "b.txt", "beta content")

	l, base := testLoader(t, Options{Quiet: true, Merge: true})
	sum, err := l.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Volumes != 1 {
		t.Fatalf("volumes = %d, want 1", sum.Volumes)
	}

	data, err := os.ReadFile(filepath.Join(base, "converted_files_merged", "Merged_Files_Vol01.md"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "# Table of Contents") {
		t.Fatalf("TOC missing:\n%s", content)
	}
	if !strings.Contains(content, "- a.md") || !strings.Contains(content, "- b.md") {
		t.Fatalf("TOC entries missing:\n%s", content)
	}
	if !strings.Contains(content, "alpha content") || !strings.Contains(content, "beta content") {
		t.Fatalf("bodies missing:\n%s", content)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "a.txt", "alpha")

	l, base := testLoader(t, Options{Quiet: true, DryRun: true})
	if _, err := l.Run(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "converted_files")); !os.IsNotExist(err) {
		t.Fatal("dry run must not create the output directory")
	}
}

func TestRunReportContents(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "good.txt", "fine")
	writeInput(t, root, "skip.mp4", "video")

	l, base := testLoader(t, Options{Quiet: true})
	if _, err := l.Run(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(base, "converted_files", summary.ReportName))
	if err != nil {
		t.Fatal(err)
	}
	var report summary.Summary
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Files) != 2 {
		t.Fatalf("report files = %d, want 2", len(report.Files))
	}
	byPath := map[string]summary.FileResult{}
	for _, fr := range report.Files {
		byPath[fr.RelPath] = fr
	}
	if byPath["good.txt"].Status != summary.StatusConverted {
		t.Fatalf("good.txt = %+v", byPath["good.txt"])
	}
	if byPath["skip.mp4"].Status != summary.StatusSkipped ||
		byPath["skip.mp4"].Category != "skip_explicit" {
		t.Fatalf("skip.mp4 = %+v", byPath["skip.mp4"])
	}
}
