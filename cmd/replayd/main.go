package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flightwatch/flight-replay/internal/api"
	"github.com/flightwatch/flight-replay/internal/client"
	"github.com/flightwatch/flight-replay/internal/config"
	"github.com/flightwatch/flight-replay/internal/db"
	"github.com/flightwatch/flight-replay/internal/nats"
	"github.com/flightwatch/flight-replay/internal/redis"
	"github.com/flightwatch/flight-replay/internal/replay"
	"github.com/flightwatch/flight-replay/internal/stats"
	"github.com/flightwatch/flight-replay/internal/storage"
)

const statsPersistInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Printf("replayd failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Backend client, with optional failover
	var backend replay.Backend
	primary := client.New(cfg.BackendURL)
	if cfg.BackendFallbackURL != "" {
		backend = client.NewFallback(primary, client.New(cfg.BackendFallbackURL))
	} else {
		backend = primary
	}

	// Database is required: it holds the airports, the track archive and
	// session records
	dbClient, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbClient.Close()

	airports, err := dbClient.LoadAirports()
	if err != nil {
		return fmt.Errorf("failed to load airports: %w", err)
	}
	log.Printf("Loaded %d reference airports", len(airports))

	// Cache and message bus are optional; the service degrades without them
	var cache replay.TrackCache
	redisClient, err := redis.New(cfg.RedisAddr)
	if err != nil {
		log.Printf("Warning: Redis unavailable, track caching disabled: %v", err)
	} else {
		defer redisClient.Close()
		cache = redisClient
	}

	statistics := stats.New()
	statistics.SetDB(dbClient)

	sinks := []replay.FrameSink{statistics}
	var notifier replay.Notifier

	natsClient, err := nats.New(cfg.NATSURL)
	if err != nil {
		log.Printf("Warning: NATS unavailable, frame fanout disabled: %v", err)
	} else {
		defer natsClient.Close()
		sinks = append(sinks, natsClient)
		notifier = natsClient
	}

	var recorder *storage.Recorder
	if cfg.RecordDir != "" {
		if err := os.MkdirAll(cfg.RecordDir, 0o750); err != nil {
			return fmt.Errorf("failed to create record directory: %w", err)
		}
		recorder = storage.New(cfg.RecordDir)
		if err := recorder.Start(); err != nil {
			return fmt.Errorf("failed to start frame recorder: %w", err)
		}
		sinks = append(sinks, recorder)
		log.Printf("Recording frames to %s", cfg.RecordDir)
	}

	manager := replay.NewManager(replay.ManagerConfig{
		Backend:       backend,
		Cache:         cache,
		Archive:       dbClient,
		Store:         dbClient,
		Notifier:      notifier,
		Metrics:       statistics,
		References:    airports,
		Sinks:         sinks,
		FrameInterval: cfg.FrameInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go statistics.StartPersistence(ctx, statsPersistInterval)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(manager, statistics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (backend %s)", cfg.HTTPAddr, cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-sigChan:
		log.Printf("Received %v, shutting down...", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown incomplete: %v", err)
	}

	manager.CloseAll()
	if recorder != nil {
		if err := recorder.Stop(); err != nil {
			log.Printf("Warning: failed to stop frame recorder: %v", err)
		}
	}
	cancel()
	time.Sleep(time.Second) // let the final stats persist finish

	return nil
}

// interface conformance checks
var (
	_ replay.Backend      = (*client.Client)(nil)
	_ replay.Backend      = (*client.Fallback)(nil)
	_ replay.TrackCache   = (*redis.Client)(nil)
	_ replay.TrackArchive = (*db.Client)(nil)
	_ replay.SessionStore = (*db.Client)(nil)
	_ replay.FrameSink    = (*storage.Recorder)(nil)
	_ replay.Metrics      = (*stats.Stats)(nil)
	_ api.Metrics         = (*stats.Stats)(nil)
)
