// Package session implements the recording state machine and the background
// capture loop. Exactly one recording can be active per process.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rmeijer/screenrec/internal/capture"
	"github.com/rmeijer/screenrec/internal/constants"
	"github.com/rmeijer/screenrec/internal/encoder"
	"github.com/rmeijer/screenrec/internal/logger"
	"github.com/rmeijer/screenrec/internal/transform"
	"github.com/rmeijer/screenrec/internal/utils"
)

// State is the lifecycle state of the recording session.
type State string

const (
	// StateIdle means no recording is active; Start is allowed.
	StateIdle State = "idle"
	// StateRecording means the capture loop is running.
	StateRecording State = "recording"
	// StateStopping means a stop was requested and the loop is winding down.
	StateStopping State = "stopping"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when the session is idle.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrInvalidConfig is returned by Start on a rejected configuration.
	ErrInvalidConfig = errors.New("invalid recording config")
	// ErrCaptureUnavailable is returned by Start when the screen cannot be opened.
	ErrCaptureUnavailable = errors.New("capture source unavailable")
)

// Config holds the immutable parameters of one recording.
type Config struct {
	Duration     time.Duration
	FPS          int
	ShortsFormat bool
	Region       *image.Rectangle
}

func (c Config) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if c.FPS < constants.MinFPS || c.FPS > constants.MaxFPS {
		return fmt.Errorf("%w: fps must be between %d and %d, got %d",
			ErrInvalidConfig, constants.MinFPS, constants.MaxFPS, c.FPS)
	}
	if r := c.Region; r != nil {
		if r.Min.X < 0 || r.Min.Y < 0 {
			return fmt.Errorf("%w: region offset must be non-negative", ErrInvalidConfig)
		}
		if r.Dx() < 1 || r.Dy() < 1 {
			return fmt.Errorf("%w: region width and height must be at least 1", ErrInvalidConfig)
		}
	}
	return nil
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State         State
	CurrentFile   string
	FramesWritten int64
	StartedAt     time.Time
	Err           error
}

// Recording reports whether a capture loop is active.
func (s Status) Recording() bool {
	return s.State != StateIdle
}

// Manager is the single process-wide recording session. Control calls and
// the capture loop share its state under one mutex; the mutex is never held
// across a grab or encode call.
type Manager struct {
	dir         string
	log         *logger.Logger
	openSource  capture.Opener
	openEncoder encoder.Opener
	now         func() time.Time

	mu          sync.Mutex
	state       State
	currentFile string
	frames      int64
	startedAt   time.Time
	lastErr     error
	stopCh      chan struct{}
}

// New returns an idle Manager writing recordings into dir. The capture and
// encoder openers are injected so the full loop runs against fakes in tests.
func New(dir string, log *logger.Logger, openSource capture.Opener, openEncoder encoder.Opener) *Manager {
	return &Manager{
		dir:         dir,
		log:         log,
		openSource:  openSource,
		openEncoder: openEncoder,
		now:         time.Now,
		state:       StateIdle,
	}
}

// Start validates cfg, opens the capture source and encoder, and hands the
// capture loop off to its own goroutine. It returns the assigned filename
// without waiting for the recording to make progress.
func (m *Manager) Start(cfg Config) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}
	if err := utils.EnsureDir(m.dir); err != nil {
		return "", fmt.Errorf("recordings dir: %w", err)
	}

	filename := utils.RecordingName(m.now())

	// Reserve the session before the blocking opens so a concurrent Start
	// fails fast instead of racing for the capture source.
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return "", ErrAlreadyRecording
	}
	stopCh := make(chan struct{})
	m.state = StateRecording
	m.currentFile = filename
	m.frames = 0
	m.startedAt = m.now()
	m.lastErr = nil
	m.stopCh = stopCh
	m.mu.Unlock()

	src, enc, tr, err := m.open(cfg, filename)
	if err != nil {
		m.reset()
		return "", err
	}

	go m.run(cfg, src, enc, tr, stopCh)

	m.log.Info("recording started",
		"file", filename,
		"duration", cfg.Duration,
		"fps", cfg.FPS,
		"shorts_format", cfg.ShortsFormat,
		"region", cfg.Region != nil,
	)
	return filename, nil
}

// open sets up the capture source, frame transform, and encoder for one
// session, mapping failures onto the Start error taxonomy.
func (m *Manager) open(cfg Config, filename string) (capture.Source, encoder.Encoder, *transform.Transform, error) {
	src, err := m.openSource(cfg.Region)
	if err != nil {
		if errors.Is(err, capture.ErrInvalidRegion) {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	// The source already delivers the region, so the transform only has to
	// normalize to the shorts canvas.
	tr, err := transform.New(src.Bounds(), nil, cfg.ShortsFormat)
	if err != nil {
		_ = src.Close()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	w, h := tr.OutputSize()
	enc, err := m.openEncoder(utils.RecordingPath(m.dir, filename), w, h, cfg.FPS)
	if err != nil {
		_ = src.Close()
		return nil, nil, nil, fmt.Errorf("%w: open encoder: %w", ErrCaptureUnavailable, err)
	}
	return src, enc, tr, nil
}

// Stop signals the capture loop to terminate and returns immediately.
// A second Stop while already stopping is a no-op; callers observe the
// eventual Idle transition by polling Status.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle:
		return ErrNotRecording
	case StateRecording:
		m.state = StateStopping
		close(m.stopCh)
		m.log.Info("stop requested", "file", m.currentFile)
	case StateStopping:
		// Already winding down.
	}
	return nil
}

// Status returns a snapshot of the session without blocking on the loop.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:         m.state,
		CurrentFile:   m.currentFile,
		FramesWritten: m.frames,
		StartedAt:     m.startedAt,
		Err:           m.lastErr,
	}
}

// ActiveFile returns the filename owned by the session while it is not idle.
// The store consults this before serving or deleting files.
func (m *Manager) ActiveFile() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle || m.currentFile == "" {
		return "", false
	}
	return m.currentFile, true
}

// reset returns the session to Idle after a failed Start.
func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateIdle
	m.currentFile = ""
	m.startedAt = time.Time{}
	m.stopCh = nil
}

// run is the capture loop. It paces frames against a monotonic deadline
// schedule (next tick advances by exactly one interval) so timing error does
// not accumulate over long recordings.
func (m *Manager) run(cfg Config, src capture.Source, enc encoder.Encoder, tr *transform.Transform, stopCh chan struct{}) {
	interval := time.Second / time.Duration(cfg.FPS)
	start := time.Now()
	deadline := start.Add(cfg.Duration)
	next := start

	var loopErr error

	for {
		if stopped(stopCh) || !time.Now().Before(deadline) {
			break
		}

		frame, err := src.Grab()
		if err != nil {
			loopErr = fmt.Errorf("capture failed: %w", err)
			break
		}
		if err := enc.Append(tr.Apply(frame)); err != nil {
			loopErr = fmt.Errorf("encode failed: %w", err)
			break
		}

		m.mu.Lock()
		m.frames++
		m.mu.Unlock()

		next = next.Add(interval)
		if wait := time.Until(next); wait > 0 {
			select {
			case <-time.After(wait):
			case <-stopCh:
			}
		}
	}

	// Finalize best-effort: a partial file beats no file, and the error is
	// surfaced through Status instead of being lost with the goroutine.
	if err := enc.Close(); err != nil && loopErr == nil {
		loopErr = fmt.Errorf("finalize failed: %w", err)
	}
	if err := src.Close(); err != nil {
		m.log.Warn("failed to release capture source", "error", err)
	}

	m.mu.Lock()
	filename := m.currentFile
	frames := m.frames
	m.state = StateIdle
	m.currentFile = ""
	m.startedAt = time.Time{}
	m.lastErr = loopErr
	m.mu.Unlock()

	if loopErr != nil {
		m.log.Error("recording finished with error", "file", filename, "frames", frames, "error", loopErr)
		return
	}
	m.logFinalized(filename, frames)
}

// logFinalized reports the finalized artifact with its probed duration and
// on-disk size.
func (m *Manager) logFinalized(filename string, frames int64) {
	log := m.log.WithRecording(filename)
	path := utils.RecordingPath(m.dir, filename)

	size := "unknown"
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size())) //nolint:gosec // file sizes are non-negative
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if dur, err := utils.ProbeDuration(ctx, path); err == nil {
		log.Info("recording finalized", "frames", frames, "size", size, "duration", dur.Round(time.Millisecond))
		return
	}
	log.Info("recording finalized", "frames", frames, "size", size)
}

func stopped(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}
