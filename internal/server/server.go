// Package server provides the HTTP control surface: recording control,
// status polling, and recording file management.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmeijer/screenrec/internal/config"
	"github.com/rmeijer/screenrec/internal/logger"
	"github.com/rmeijer/screenrec/internal/session"
	"github.com/rmeijer/screenrec/internal/store"
)

// Server handles HTTP requests for recording control and file management.
type Server struct {
	config  *config.Config
	log     *logger.Logger
	session *session.Manager
	store   *store.Store
	server  *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, log *logger.Logger, sess *session.Manager, st *store.Store) *Server {
	return &Server{
		config:  cfg,
		log:     log,
		session: sess,
		store:   st,
	}
}

// Handler builds the gin router. Exposed separately from Start so handler
// tests can exercise routes without binding a port.
func (s *Server) Handler() http.Handler {
	if !s.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(s.cors())

	router.GET("/", s.handleIndex)
	router.GET("/health", s.handleHealth)

	router.POST("/start_recording", s.handleStartRecording)
	router.POST("/stop_recording", s.handleStopRecording)
	router.GET("/status", s.handleStatus)

	router.GET("/recordings", s.handleRecordings)
	router.GET("/download/:filename", s.handleDownload)
	router.DELETE("/delete/:filename", s.handleDelete)

	return router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: downloads of long recordings can outlive any
		// fixed value.
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.Info("http server started", "port", s.config.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
