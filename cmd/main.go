package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/matchpoint/internal/adapters/broadcast"
	"github.com/okian/matchpoint/internal/adapters/http/api"
	"github.com/okian/matchpoint/internal/adapters/storage"
	service "github.com/okian/matchpoint/internal/app"
	"github.com/okian/matchpoint/internal/config"
	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/internal/reconcile"
	"github.com/okian/matchpoint/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the custom registry carries
	// only scoring metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Broadcast hub has its own lifecycle, independent of the service.
	hub := broadcast.NewHub(
		broadcast.WithRoomBuffer(cfg.RoomBufferSize),
		broadcast.WithLogger(log.Named("broadcast")),
	)
	hub.Start(ctx)
	defer hub.Stop()

	svc := service.New(
		service.WithLogger(log.Named("match")),
		service.WithStore(storage.NewMemoryStore()),
		service.WithPublisher(hub),
		service.WithPersistTimeout(time.Duration(cfg.PersistTimeoutMS)*time.Millisecond),
		service.WithDefaultPointsToWin(cfg.DefaultPointsToWin),
		service.WithDefaultTotalSets(cfg.DefaultTotalSets),
		service.WithDefaultScoringMode(model.ScoringMode(cfg.DefaultScoringMode)),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	rec := reconcile.New(svc, reconcile.WithPollInterval(time.Duration(cfg.PollIntervalMS)*time.Millisecond))

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, rec, hub, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
