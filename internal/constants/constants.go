// Package constants defines application-wide constants for recording limits,
// default configuration values, and file permissions.
package constants

const (
	// MinFPS is the lowest accepted capture frame rate.
	MinFPS = 1
	// MaxFPS is the highest accepted capture frame rate.
	MaxFPS = 60

	// ShortsWidth is the fixed output width of shorts-format recordings.
	ShortsWidth = 1080
	// ShortsHeight is the fixed output height of shorts-format recordings.
	ShortsHeight = 1920

	// DefaultRecordingsDir is the default directory for storing recordings.
	DefaultRecordingsDir = "recordings"
	// DefaultPort is the default HTTP server port.
	DefaultPort = 8080
	// DefaultKeepDays is the default number of days to retain recordings.
	DefaultKeepDays = 31
	// DefaultTimezone is the default timezone for the application.
	DefaultTimezone = "UTC"

	// FilenamePrefix is the common prefix of all recording filenames.
	FilenamePrefix = "screen_recording_"
	// FilenameTimeFormat embeds the creation timestamp in recording filenames
	// so that lexical and chronological order coincide.
	FilenameTimeFormat = "20060102_150405"
	// RecordingExt is the container extension of finalized recordings.
	RecordingExt = ".mp4"
	// InProgressExt is appended to the output filename while the encoder
	// still owns it; the file is renamed on finalize.
	InProgressExt = ".rec"

	// DirPermissions defines the file mode for created directories.
	DirPermissions = 0o755
	// FilePermissions defines the file mode for created files.
	FilePermissions = 0o644
)
