// Package utils provides small filesystem, naming, and probing helpers
// shared across packages.
package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/rmeijer/screenrec/internal/constants"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, constants.DirPermissions)
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SetTimezone sets the process-wide local timezone. Recording filenames and
// cron schedules follow it.
func SetTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	time.Local = loc
	return nil
}
