package store

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rmeijer/screenrec/internal/logger"
)

type stubActive struct {
	name string
}

func (s *stubActive) ActiveFile() (string, bool) {
	return s.name, s.name != ""
}

func newTestStore(t *testing.T) (*Store, *stubActive, string) {
	t.Helper()
	dir := t.TempDir()
	active := &stubActive{}
	st, err := New(dir, logger.New("", false), active)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return st, active, dir
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("video"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListNewestFirst(t *testing.T) {
	st, _, dir := newTestStore(t)

	writeFile(t, dir, "screen_recording_20240101_090000.mp4")
	writeFile(t, dir, "screen_recording_20240315_120000.mp4")
	writeFile(t, dir, "screen_recording_20231224_180000.mp4")

	names, err := st.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{
		"screen_recording_20240315_120000.mp4",
		"screen_recording_20240101_090000.mp4",
		"screen_recording_20231224_180000.mp4",
	}
	if !slices.Equal(names, want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
}

func TestListIgnoresForeignAndInProgressFiles(t *testing.T) {
	st, _, dir := newTestStore(t)

	writeFile(t, dir, "screen_recording_20240101_090000.mp4")
	writeFile(t, dir, "screen_recording_20240101_100000.mp4.rec")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "holiday.mp4")

	names, err := st.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "screen_recording_20240101_090000.mp4" {
		t.Fatalf("List() = %v, want only the finalized recording", names)
	}
}

func TestListExcludesActiveSessionFile(t *testing.T) {
	st, active, dir := newTestStore(t)

	writeFile(t, dir, "screen_recording_20240101_090000.mp4")
	writeFile(t, dir, "screen_recording_20240101_100000.mp4")

	active.name = "screen_recording_20240101_100000.mp4"
	names, err := st.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "screen_recording_20240101_090000.mp4" {
		t.Fatalf("List() = %v, want active file excluded", names)
	}

	// Once the session is idle again the file shows up immediately.
	active.name = ""
	names, err = st.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List() after idle = %v, want both files", names)
	}
}

func TestDeleteErrors(t *testing.T) {
	st, active, dir := newTestStore(t)
	writeFile(t, dir, "screen_recording_20240101_090000.mp4")

	if err := st.Delete("screen_recording_19990101_000000.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if err := st.Delete("../../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(traversal) error = %v, want ErrNotFound", err)
	}

	active.name = "screen_recording_20240101_090000.mp4"
	if err := st.Delete(active.name); !errors.Is(err, ErrInUse) {
		t.Fatalf("Delete(active) error = %v, want ErrInUse", err)
	}

	active.name = ""
	if err := st.Delete("screen_recording_20240101_090000.mp4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20240101_090000.mp4")); !os.IsNotExist(err) {
		t.Fatal("file still present after Delete")
	}
}

func TestResolveGuardsInUse(t *testing.T) {
	st, active, dir := newTestStore(t)
	writeFile(t, dir, "screen_recording_20240101_090000.mp4")

	active.name = "screen_recording_20240101_090000.mp4"
	if _, err := st.Resolve(active.name); !errors.Is(err, ErrInUse) {
		t.Fatalf("Resolve(active) error = %v, want ErrInUse", err)
	}

	active.name = ""
	path, err := st.Resolve("screen_recording_20240101_090000.mp4")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != filepath.Join(dir, "screen_recording_20240101_090000.mp4") {
		t.Fatalf("Resolve() path = %q", path)
	}
}

func TestSweepTempRemovesOrphansOnly(t *testing.T) {
	st, active, dir := newTestStore(t)

	writeFile(t, dir, "screen_recording_20240101_090000.mp4.rec")
	writeFile(t, dir, "screen_recording_20240101_100000.mp4.rec")
	writeFile(t, dir, "screen_recording_20240101_110000.mp4")

	active.name = "screen_recording_20240101_100000.mp4"
	st.SweepTemp()

	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20240101_090000.mp4.rec")); !os.IsNotExist(err) {
		t.Fatal("orphaned in-progress file survived sweep")
	}
	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20240101_100000.mp4.rec")); err != nil {
		t.Fatal("active session's in-progress file was swept")
	}
	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20240101_110000.mp4")); err != nil {
		t.Fatal("finalized recording was swept")
	}
}

func TestCleanupOldHonorsRetention(t *testing.T) {
	st, _, dir := newTestStore(t)

	writeFile(t, dir, "screen_recording_20230101_090000.mp4")
	writeFile(t, dir, "screen_recording_20240101_090000.mp4")

	old := time.Now().AddDate(0, 0, -40)
	if err := os.Chtimes(filepath.Join(dir, "screen_recording_20230101_090000.mp4"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	st.CleanupOld(31)

	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20230101_090000.mp4")); !os.IsNotExist(err) {
		t.Fatal("expired recording survived cleanup")
	}
	if _, err := os.Stat(filepath.Join(dir, "screen_recording_20240101_090000.mp4")); err != nil {
		t.Fatal("recent recording was removed by cleanup")
	}
}
