package extractor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// toolSpec describes one external archive tool and how to read its output.
type toolSpec struct {
	// names are tried in order through exec.LookPath.
	names []string
	// args builds the extraction command line for (binary, archive, dest).
	args func(archive, dest string) []string
	// passwordMarkers in combined output mean the archive wants a password.
	passwordMarkers []string
	// multiVolumeMarkers mean a missing continuation volume.
	multiVolumeMarkers []string
}

var tool7z = toolSpec{
	names: []string{"7z", "7zz", "7za"},
	args: func(archive, dest string) []string {
		return []string{"x", "-y", "-o" + dest, archive}
	},
	passwordMarkers:    []string{"Wrong password", "Enter password"},
	multiVolumeMarkers: []string{"Missing volume"},
}

var toolUnrar = toolSpec{
	names: []string{"unrar"},
	args: func(archive, dest string) []string {
		return []string{"x", "-y", "-p-", archive, dest + "/"}
	},
	passwordMarkers:    []string{"password is incorrect", "Corrupt file or wrong password", "password required"},
	multiVolumeMarkers: []string{"volume is required", "You need to start extraction from a previous volume"},
}

var toolLha = toolSpec{
	names: []string{"lha", "lhasa"},
	args: func(archive, dest string) []string {
		return []string{"xw=" + dest, archive}
	},
}

// extractWithTool shells out to the first available binary of the spec.
// An absent binary degrades to StatusLibraryMissing so the file is
// reported, not failed.
func (e *Extractor) extractWithTool(ctx context.Context, archive, dest string, spec toolSpec) Result {
	bin := ""
	for _, name := range spec.names {
		if path, err := exec.LookPath(name); err == nil {
			bin = path
			break
		}
	}
	if bin == "" {
		return Result{Status: StatusLibraryMissing,
			Err: fmt.Errorf("none of %v found on PATH", spec.names)}
	}

	cmd := exec.CommandContext(ctx, bin, spec.args(archive, dest)...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return Result{Status: StatusOK}
	}
	text := string(out)
	for _, marker := range spec.passwordMarkers {
		if strings.Contains(text, marker) {
			return Result{Status: StatusPasswordProtected, Err: errPasswordProtected}
		}
	}
	for _, marker := range spec.multiVolumeMarkers {
		if strings.Contains(text, marker) {
			return Result{Status: StatusMultiVolume, Err: errMultiVolume}
		}
	}
	return Result{Status: StatusError,
		Err: fmt.Errorf("%s exited: %w: %s", bin, err, firstLines(text, 3))}
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, " | ")
}
