package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nvr-hls/internal/platform/config"
	"nvr-hls/internal/platform/database"
	"nvr-hls/internal/platform/logger"
	"nvr-hls/internal/platform/metrics"
	"nvr-hls/internal/recordings"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	cameras, err := recordings.LoadCameraRegistry(cfg.CamerasFile)
	if err != nil {
		log.Error("load cameras", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabaseDSN, log)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if cfg.DBAutoMigrate {
		if err := recordings.Migrate(db); err != nil {
			log.Error("migrate database", "error", err)
			os.Exit(1)
		}
	}

	store := recordings.NewGormStore(db,
		recordings.WithQueryTimeout(cfg.QueryTimeout),
		recordings.WithSegmentSlack(cfg.SegmentSlack),
	)
	builder := recordings.NewPlaylistBuilder(store,
		recordings.WithDefaultTargetDuration(cfg.TargetDuration),
		recordings.WithSegmentURLPrefix(cfg.URLPrefix),
		recordings.WithInitSegment(cfg.InitSegment),
	)
	svc := recordings.NewService(cameras, builder, recordings.NewTimespanMerger(store),
		recordings.WithGapTolerance(cfg.GapTolerance),
	)
	met := metrics.New()
	h := recordings.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetCamerasConfigured(cameras.Len()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			log.Error("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/api/v1/hls", h.Routes)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"cameras", cameras.Identifiers(),
		"gap_tolerance", cfg.GapTolerance.String(),
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
