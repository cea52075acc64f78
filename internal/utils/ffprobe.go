package utils

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/tidwall/gjson"
)

// ProbeCommand creates an ffprobe command to get file metadata as JSON.
func ProbeCommand(ctx context.Context, file string) *exec.Cmd {
	return exec.CommandContext(ctx, "ffprobe", //nolint:gosec // G204: args are internal file paths, not raw user input
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		file,
	)
}

// ProbeDuration returns the container duration of a finalized recording.
func ProbeDuration(ctx context.Context, file string) (time.Duration, error) {
	output, err := ProbeCommand(ctx, file).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %q: %w", file, err)
	}

	duration := gjson.GetBytes(output, "format.duration")
	if !duration.Exists() {
		return 0, fmt.Errorf("no duration in probe output for %q", file)
	}

	seconds := duration.Float()
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid duration %q for %q", duration.String(), file)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
