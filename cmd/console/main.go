package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/application/voice"
	"github.com/voice-console/internal/config"
	"github.com/voice-console/internal/infrastructure/dynamo"
	"github.com/voice-console/internal/infrastructure/memory"
	redisinfra "github.com/voice-console/internal/infrastructure/redis"
	s3infra "github.com/voice-console/internal/infrastructure/s3"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/metrics"
	"github.com/voice-console/internal/pkg/logger"
	transporthttp "github.com/voice-console/internal/transport/http"
	"github.com/voice-console/internal/transport/http/handler"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("console stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]handler.Check{}
	store, err := sessionStore(ctx, cfg, zl, checks)
	if err != nil {
		return err
	}

	// Recording archive (optional).
	var archive voice.Archive
	if cfg.RecordingArchiveBucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		archive = s3infra.NewArchive(client, cfg.RecordingArchiveBucket)
		zl.Info("recording archive enabled", zap.String("bucket", cfg.RecordingArchiveBucket))
	}

	deps := &transporthttp.Deps{
		Sessions: store,
		API:      voiceapi.NewClient(cfg.VoiceAPIURL, cfg.VoiceAPITimeout, zl.Named("voiceapi"), m),
		Archive:  archive,
		Metrics:  m,
		Logger:   zl,
		Checks:   checks,
	}
	router, err := transporthttp.NewRouter(ctx, cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.VoiceAPITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zl.Info("console starting",
			zap.String("port", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.String("session_store", cfg.SessionStore),
			zap.String("voice_api", cfg.VoiceAPIURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	zl.Info("shutting down console")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zl.Info("console stopped")
	return nil
}

// sessionStore builds the configured session backend and registers its
// health check.
func sessionStore(ctx context.Context, cfg *config.Config, zl *zap.Logger, checks map[string]handler.Check) (session.Store, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		store := memory.NewSessionStore()
		go store.RunSweeper(ctx, time.Minute)
		return store, nil
	case config.StoreRedis:
		store := redisinfra.NewSessionStore(redisinfra.NewClient(cfg, zl))
		checks["redis"] = store.Ping
		return store, nil
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamo client: %w", err)
		}
		// Creates the sessions table if it doesn't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoSessionsTable, zl)
		return dynamo.NewSessionStore(client, cfg.DynamoSessionsTable), nil
	}
	return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
}
