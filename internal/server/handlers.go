package server

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmeijer/screenrec/internal/session"
	"github.com/rmeijer/screenrec/internal/store"
)

// startRequest is the JSON body of POST /start_recording. Region fields are
// meaningful only when region_enabled is true.
type startRequest struct {
	Duration      int  `json:"duration"`
	FPS           int  `json:"fps"`
	ShortsFormat  bool `json:"shorts_format"`
	RegionEnabled bool `json:"region_enabled"`
	Left          int  `json:"left"`
	Top           int  `json:"top"`
	Width         int  `json:"width"`
	Height        int  `json:"height"`
}

func successResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleStartRecording validates the request and starts a recording session.
func (s *Server) handleStartRecording(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "request body is empty or not valid JSON")
		return
	}

	cfg := session.Config{
		Duration:     time.Duration(req.Duration) * time.Second,
		FPS:          req.FPS,
		ShortsFormat: req.ShortsFormat,
	}
	if req.RegionEnabled {
		// Validated before image.Rect, which would silently canonicalize a
		// negative width or height into a swapped min/max rectangle.
		if req.Left < 0 || req.Top < 0 || req.Width < 1 || req.Height < 1 {
			errorResponse(c, http.StatusBadRequest, "region offset must be non-negative and size at least 1x1")
			return
		}
		region := image.Rect(req.Left, req.Top, req.Left+req.Width, req.Top+req.Height)
		cfg.Region = &region
	}

	filename, err := s.session.Start(cfg)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyRecording):
			errorResponse(c, http.StatusConflict, "recording already in progress")
		case errors.Is(err, session.ErrInvalidConfig):
			errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			errorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	successResponse(c, fmt.Sprintf("Recording started (%s)", filename))
}

// handleStopRecording signals the active session to stop. A repeated stop
// while already stopping succeeds as a no-op.
func (s *Server) handleStopRecording(c *gin.Context) {
	if err := s.session.Stop(); err != nil {
		if errors.Is(err, session.ErrNotRecording) {
			errorResponse(c, http.StatusConflict, "no recording in progress")
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, "Stop requested")
}

// handleStatus returns a snapshot of the session. An in-progress error is
// reported here so the panel never has to infer failure from silence.
func (s *Server) handleStatus(c *gin.Context) {
	st := s.session.Status()

	var currentFile any
	if st.CurrentFile != "" {
		currentFile = st.CurrentFile
	}
	var errMsg any
	if st.Err != nil {
		errMsg = st.Err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"recording":      st.Recording(),
		"current_file":   currentFile,
		"status":         st.State,
		"frames_written": st.FramesWritten,
		"error":          errMsg,
	})
}

// handleRecordings lists finalized recordings, newest first.
func (s *Server) handleRecordings(c *gin.Context) {
	names, err := s.store.List()
	if err != nil {
		s.log.Error("failed to list recordings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"recordings": []string{}, "error": "failed to list recordings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": names})
}

// handleDownload serves a finalized recording as an attachment.
func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("filename")
	path, err := s.store.Resolve(name)
	if err != nil {
		s.fileError(c, name, err)
		return
	}
	c.FileAttachment(path, name)
}

// handleDelete removes a finalized recording.
func (s *Server) handleDelete(c *gin.Context) {
	name := c.Param("filename")
	if err := s.store.Delete(name); err != nil {
		s.fileError(c, name, err)
		return
	}
	successResponse(c, fmt.Sprintf("Deleted %s", name))
}

// fileError maps store errors onto HTTP statuses. A file still owned by the
// active session is a conflict, not a missing file.
func (s *Server) fileError(c *gin.Context, name string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorResponse(c, http.StatusNotFound, fmt.Sprintf("recording %s not found", name))
	case errors.Is(err, store.ErrInUse):
		errorResponse(c, http.StatusConflict, fmt.Sprintf("recording %s is still being written", name))
	default:
		s.log.Error("file operation failed", "file", name, "error", err)
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

// handleIndex renders the control panel.
func (s *Server) handleIndex(c *gin.Context) {
	entries, err := s.store.ListEntries()
	if err != nil {
		s.log.Error("failed to list recordings for panel", "error", err)
	}

	data := struct {
		Recordings []store.Entry
	}{
		Recordings: entries,
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := panelTemplate().Execute(c.Writer, data); err != nil {
		s.log.Error("failed to execute panel template", "error", err)
	}
}
