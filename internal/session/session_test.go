package session

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rmeijer/screenrec/internal/capture"
	"github.com/rmeijer/screenrec/internal/encoder"
	"github.com/rmeijer/screenrec/internal/logger"
)

type fakeSource struct {
	bounds    image.Rectangle
	mu        sync.Mutex
	grabs     int
	failAfter int // fail once this many grabs succeeded; 0 disables
	closed    bool
}

func (f *fakeSource) Grab() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && f.grabs >= f.failAfter {
		return nil, errors.New("display went away")
	}
	f.grabs++
	return image.NewRGBA(f.bounds), nil
}

func (f *fakeSource) Bounds() image.Rectangle { return f.bounds }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeEncoder struct {
	mu        sync.Mutex
	frames    int
	closed    bool
	appendErr error
	closeErr  error
}

func (f *fakeEncoder) Append(frame *image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.frames++
	return nil
}

func (f *fakeEncoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *fakeEncoder) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fixture struct {
	manager *Manager
	source  *fakeSource
	encoder *fakeEncoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		source:  &fakeSource{bounds: image.Rect(0, 0, 640, 480)},
		encoder: &fakeEncoder{},
	}

	openSource := func(region *image.Rectangle) (capture.Source, error) {
		if region != nil {
			if !region.In(f.source.bounds) {
				return nil, fmt.Errorf("%w: %v", capture.ErrInvalidRegion, *region)
			}
			f.source.bounds = *region
		}
		return f.source, nil
	}
	openEncoder := func(path string, width, height, fps int) (encoder.Encoder, error) {
		return f.encoder, nil
	}

	f.manager = New(t.TempDir(), logger.New("", false), openSource, openEncoder)
	return f
}

func waitForIdle(t *testing.T, m *Manager, timeout time.Duration) Status {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if st := m.Status(); !st.Recording() {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session did not return to idle within %v", timeout)
	return Status{}
}

func TestStartReturnsImmediatelyAndReportsRecording(t *testing.T) {
	f := newFixture(t)

	began := time.Now()
	filename, err := f.manager.Start(Config{Duration: time.Second, FPS: 10})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if elapsed := time.Since(began); elapsed > 500*time.Millisecond {
		t.Fatalf("Start() blocked for %v", elapsed)
	}
	if filename == "" {
		t.Fatal("Start() returned empty filename")
	}

	st := f.manager.Status()
	if !st.Recording() {
		t.Fatalf("status after Start = %v, want recording", st.State)
	}
	if st.CurrentFile != filename {
		t.Fatalf("current file = %q, want %q", st.CurrentFile, filename)
	}

	waitForIdle(t, f.manager, 3*time.Second)
}

func TestStartWhileRecordingFails(t *testing.T) {
	f := newFixture(t)

	if _, err := f.manager.Start(Config{Duration: 2 * time.Second, FPS: 10}); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	before := f.manager.Status().FramesWritten
	if _, err := f.manager.Start(Config{Duration: time.Second, FPS: 10}); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyRecording", err)
	}

	// The existing session keeps advancing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.manager.Status().FramesWritten > before {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := f.manager.Status().FramesWritten; got <= before {
		t.Fatalf("frame counter stalled at %d after rejected Start", got)
	}

	if err := f.manager.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitForIdle(t, f.manager, 3*time.Second)
}

func TestStopWhileIdleFails(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop() error = %v, want ErrNotRecording", err)
	}
}

func TestStopIsIdempotentWhileStopping(t *testing.T) {
	f := newFixture(t)

	if _, err := f.manager.Start(Config{Duration: 10 * time.Second, FPS: 10}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.manager.Stop(); err != nil {
		t.Fatalf("first Stop() error = %v", err)
	}
	if err := f.manager.Stop(); err != nil {
		t.Fatalf("second Stop() while stopping error = %v, want nil", err)
	}

	st := waitForIdle(t, f.manager, 3*time.Second)
	if st.Err != nil {
		t.Fatalf("stopped session recorded error %v", st.Err)
	}
	if !f.encoder.isClosed() {
		t.Fatal("encoder was not finalized after stop")
	}
}

func TestNaturalCompletionFrameCount(t *testing.T) {
	f := newFixture(t)

	const fps = 20
	duration := time.Second
	if _, err := f.manager.Start(Config{Duration: duration, FPS: fps}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := waitForIdle(t, f.manager, 5*time.Second)
	if st.Err != nil {
		t.Fatalf("session recorded error %v", st.Err)
	}

	// Expect close to fps*seconds frames; allow slack for startup and
	// scheduler jitter but catch systematic drift in either direction.
	want := int64(fps)
	if st.FramesWritten < want-6 || st.FramesWritten > want+2 {
		t.Fatalf("frames written = %d, want about %d", st.FramesWritten, want)
	}
	if !f.encoder.isClosed() {
		t.Fatal("encoder was not finalized after natural completion")
	}
	if !f.source.closed {
		t.Fatal("capture source was not released")
	}
}

func TestCaptureErrorForcesStopAndSurfacesInStatus(t *testing.T) {
	f := newFixture(t)
	f.source.failAfter = 3

	if _, err := f.manager.Start(Config{Duration: 10 * time.Second, FPS: 30}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := waitForIdle(t, f.manager, 3*time.Second)
	if st.Err == nil {
		t.Fatal("capture failure was not surfaced in status")
	}
	if st.FramesWritten != 3 {
		t.Fatalf("frames written = %d, want 3", st.FramesWritten)
	}
	if !f.encoder.isClosed() {
		t.Fatal("partial recording was not finalized after capture failure")
	}
}

func TestFirstFrameFailureStillFinalizes(t *testing.T) {
	f := newFixture(t)
	// failAfter with no successful grabs yet: the very first Grab fails.
	f.source.failAfter = 1
	f.source.grabs = 1
	if _, err := f.manager.Start(Config{Duration: time.Second, FPS: 10}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := waitForIdle(t, f.manager, 3*time.Second)
	if st.FramesWritten != 0 {
		t.Fatalf("frames written = %d, want 0", st.FramesWritten)
	}
	if st.Err == nil {
		t.Fatal("expected error in status after first-frame failure")
	}
	if !f.encoder.isClosed() {
		t.Fatal("encoder not finalized after first-frame failure")
	}
}

func TestEncodeErrorForcesStop(t *testing.T) {
	f := newFixture(t)
	f.encoder.appendErr = errors.New("container write failed")

	if _, err := f.manager.Start(Config{Duration: 10 * time.Second, FPS: 10}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := waitForIdle(t, f.manager, 3*time.Second)
	if st.Err == nil {
		t.Fatal("encode failure was not surfaced in status")
	}
}

func TestActiveFileGuardsCurrentRecording(t *testing.T) {
	f := newFixture(t)

	if _, ok := f.manager.ActiveFile(); ok {
		t.Fatal("idle session reported an active file")
	}

	filename, err := f.manager.Start(Config{Duration: 2 * time.Second, FPS: 10})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if name, ok := f.manager.ActiveFile(); !ok || name != filename {
		t.Fatalf("ActiveFile() = %q, %v; want %q, true", name, ok, filename)
	}

	if err := f.manager.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	waitForIdle(t, f.manager, 3*time.Second)
	if _, ok := f.manager.ActiveFile(); ok {
		t.Fatal("idle session still reported an active file after stop")
	}
}

func TestIdleStatusCarriesNoStaleSessionData(t *testing.T) {
	f := newFixture(t)

	if _, err := f.manager.Start(Config{Duration: 2 * time.Second, FPS: 10}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if st := f.manager.Status(); st.StartedAt.IsZero() {
		t.Fatal("recording status missing started_at")
	}
	if err := f.manager.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	st := waitForIdle(t, f.manager, 3*time.Second)
	if !st.StartedAt.IsZero() {
		t.Fatalf("idle status kept started_at %v from the previous session", st.StartedAt)
	}
	if st.CurrentFile != "" {
		t.Fatalf("idle status kept current file %q", st.CurrentFile)
	}
}

func TestStartValidation(t *testing.T) {
	negative := image.Rect(-10, 0, 90, 100)
	outOfBounds := image.Rect(0, 0, 10000, 10000)

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero duration", Config{Duration: 0, FPS: 30}, ErrInvalidConfig},
		{"fps too low", Config{Duration: time.Second, FPS: 0}, ErrInvalidConfig},
		{"fps too high", Config{Duration: time.Second, FPS: 61}, ErrInvalidConfig},
		{"negative region offset", Config{Duration: time.Second, FPS: 30, Region: &negative}, ErrInvalidConfig},
		{"region exceeds screen", Config{Duration: time.Second, FPS: 30, Region: &outOfBounds}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.manager.Start(tt.cfg); !errors.Is(err, tt.want) {
				t.Fatalf("Start() error = %v, want %v", err, tt.want)
			}
			if st := f.manager.Status(); st.Recording() {
				t.Fatal("rejected Start left the session recording")
			}
		})
	}
}

func TestCaptureOpenFailureMapsToUnavailable(t *testing.T) {
	openSource := func(region *image.Rectangle) (capture.Source, error) {
		return nil, capture.ErrUnavailable
	}
	openEncoder := func(path string, width, height, fps int) (encoder.Encoder, error) {
		return &fakeEncoder{}, nil
	}
	m := New(t.TempDir(), logger.New("", false), openSource, openEncoder)

	if _, err := m.Start(Config{Duration: time.Second, FPS: 10}); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Start() error = %v, want ErrCaptureUnavailable", err)
	}
	if st := m.Status(); st.Recording() {
		t.Fatal("failed Start left the session recording")
	}
}
