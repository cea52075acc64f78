package utils

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rmeijer/screenrec/internal/constants"
)

// RecordingName returns the filename for a recording started at t,
// e.g. "screen_recording_20240115_143702.mp4". The embedded timestamp makes
// lexical order match chronological order.
func RecordingName(t time.Time) string {
	return constants.FilenamePrefix + t.Format(constants.FilenameTimeFormat) + constants.RecordingExt
}

// IsRecordingName reports whether name looks like a finalized recording
// produced by this application.
func IsRecordingName(name string) bool {
	return strings.HasPrefix(name, constants.FilenamePrefix) &&
		strings.HasSuffix(name, constants.RecordingExt)
}

// IsSafeName reports whether name is a plain filename with no path
// components, suitable for joining with the recordings directory.
func IsSafeName(name string) bool {
	return name != "" && name == filepath.Base(name) &&
		!strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// RecordingPath returns the on-disk path of a finalized recording.
func RecordingPath(dir, name string) string {
	return filepath.Join(dir, name)
}
