// Package store manages the directory of finalized recordings: listing,
// serving, deletion, and cleanup, always guarded against the file the
// active session still owns.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rmeijer/screenrec/internal/constants"
	"github.com/rmeijer/screenrec/internal/logger"
	"github.com/rmeijer/screenrec/internal/utils"
)

var (
	// ErrNotFound is returned when a named recording does not exist.
	ErrNotFound = errors.New("recording not found")
	// ErrInUse is returned when a recording is still owned by the active
	// session and must not be read or deleted.
	ErrInUse = errors.New("recording is in use")
)

// ActiveSource reports the file owned by the running session, if any.
type ActiveSource interface {
	ActiveFile() (string, bool)
}

// Entry describes one finalized recording for listings.
type Entry struct {
	Name    string
	Size    string
	ModTime time.Time
}

// Store lists, serves, and deletes finalized recordings in one directory.
type Store struct {
	dir    string
	log    *logger.Logger
	active ActiveSource
}

// New returns a Store over dir, creating it if necessary.
func New(dir string, log *logger.Logger, active ActiveSource) (*Store, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create recordings dir %q: %w", dir, err)
	}
	return &Store{dir: dir, log: log, active: active}, nil
}

// List returns the finalized recording filenames, newest first. The
// directory is re-read on every call, and the file owned by an active
// session is excluded. Timestamped names make the reverse lexical order
// chronological.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read recordings dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !utils.IsRecordingName(name) {
			continue
		}
		if s.inUse(name) {
			continue
		}
		names = append(names, name)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// ListEntries returns recordings with size and modification time for the
// control panel listing, newest first.
func (s *Store) ListEntries() ([]Entry, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			Size:    humanize.Bytes(uint64(info.Size())), //nolint:gosec // file sizes are non-negative
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Resolve checks that name refers to an existing finalized recording not
// owned by the active session and returns its on-disk path for serving.
func (s *Store) Resolve(name string) (string, error) {
	if !utils.IsSafeName(name) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if s.inUse(name) {
		return "", fmt.Errorf("%w: %q", ErrInUse, name)
	}
	path := filepath.Join(s.dir, name)
	if !utils.FileExists(path) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return path, nil
}

// Delete removes a finalized recording.
func (s *Store) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	s.log.Info("recording deleted", "file", name)
	return nil
}

// inUse reports whether name is the active session's output file, or its
// in-progress form.
func (s *Store) inUse(name string) bool {
	activeName, ok := s.active.ActiveFile()
	if !ok {
		return false
	}
	return name == activeName || name == activeName+constants.InProgressExt
}

// SweepTemp removes leftover in-progress files from sessions that never
// finalized, e.g. after a crash. The active session's own work file is left
// alone.
func (s *Store) SweepTemp() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("temp sweep: read dir failed", "error", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, constants.InProgressExt) {
			continue
		}
		if s.inUse(name) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn("temp sweep: remove failed", "file", name, "error", err)
			continue
		}
		s.log.Info("removed leftover in-progress file", "file", name)
	}
}

// CleanupOld removes finalized recordings older than keepDays.
func (s *Store) CleanupOld(keepDays int) {
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	s.log.Info("cleaning up recordings", "older_than", cutoff.Format(time.DateOnly))

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("cleanup: read dir failed", "error", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !utils.IsRecordingName(name) || s.inUse(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn("cleanup: remove failed", "file", name, "error", err)
			continue
		}
		s.log.Info("deleted old recording", "file", name)
	}
}
