// Package main is the entry point for the screen recorder application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata" // Embed timezone data for consistent behavior

	"github.com/rmeijer/screenrec/internal/capture"
	"github.com/rmeijer/screenrec/internal/config"
	"github.com/rmeijer/screenrec/internal/encoder"
	"github.com/rmeijer/screenrec/internal/logger"
	"github.com/rmeijer/screenrec/internal/scheduler"
	"github.com/rmeijer/screenrec/internal/server"
	"github.com/rmeijer/screenrec/internal/session"
	"github.com/rmeijer/screenrec/internal/store"
	"github.com/rmeijer/screenrec/internal/utils"
	"github.com/rmeijer/screenrec/internal/version"
)

func main() {
	configFile := flag.String("config", "", "Config file path (optional)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogFile, cfg.Debug)
	defer func() { _ = logg.Close() }()
	logg.Info("starting", "version", version.Version, "recordings_dir", cfg.RecordingsDir)

	if err := utils.SetTimezone(cfg.Timezone); err != nil {
		logg.Warn("falling back to default timezone", "error", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logg.Info("shutting down")
		cancel()
	}()

	sess := session.New(cfg.RecordingsDir, logg, capture.Open, encoder.Open)
	st, err := store.New(cfg.RecordingsDir, logg, sess)
	if err != nil {
		log.Fatalf("Failed to open recordings store: %v", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		httpServer := server.New(cfg, logg, sess, st)
		if err := httpServer.Start(ctx); err != nil {
			logg.Error("http server error", "error", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched := scheduler.New(cfg, st, logg)
		sched.Start(ctx)
	}()

	wg.Wait()

	// A recording still running at shutdown is signalled to stop so the
	// encoder finalizes the open file.
	if err := sess.Stop(); err == nil {
		logg.Info("stopping active recording before exit")
		waitIdle(sess)
	}
}

// waitIdle polls the session until the capture loop has finalized its
// output, bounded so shutdown cannot hang on a wedged encoder.
func waitIdle(sess *session.Manager) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !sess.Status().Recording() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
