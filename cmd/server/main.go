package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/cache"
	"github.com/nulzo/ollama-openai-proxy/internal/config"
	"github.com/nulzo/ollama-openai-proxy/internal/logger"
	"github.com/nulzo/ollama-openai-proxy/internal/platform/otel"
	"github.com/nulzo/ollama-openai-proxy/internal/retry"
	"github.com/nulzo/ollama-openai-proxy/internal/server"
	"github.com/nulzo/ollama-openai-proxy/internal/store"
	"github.com/nulzo/ollama-openai-proxy/internal/store/sqlite"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
	"github.com/nulzo/ollama-openai-proxy/internal/version"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Initialize(cfg.Server.Env)
	log := logger.Get()
	defer logger.Sync()

	go version.CheckForUpdates(log)

	tracerShutdown, err := otel.InitTracer("ollama-openai-proxy", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}

	var repo store.Repository
	var ingestor analytics.Ingestor
	var analyticsService analytics.Service

	ingestorCtx, cancelIngestor := context.WithCancel(context.Background())
	defer cancelIngestor()

	if cfg.Store.Enabled {
		repo, err = sqlite.NewSQLiteStorage(cfg.Store.DSN)
		if err != nil {
			log.Fatal("failed to open request log store", zap.Error(err))
		}
		ingestor = analytics.NewIngestor(log, repo)
		ingestor.Start(ingestorCtx)
		analyticsService = analytics.NewService(repo)
	}

	cacheService := cache.New(cfg)

	client := upstream.NewClient(cfg.Upstream, retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: cfg.Retry.InitialDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     cfg.Retry.MaxDelay,
	})

	srv := server.New(cfg, log, client, cacheService, ingestor, analyticsService)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info("starting proxy",
			zap.String("port", cfg.Server.Port),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.String("version", version.Proxy),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	// drain the log buffer before the store goes away
	if ingestor != nil {
		ingestor.Stop()
	}
	if repo != nil {
		if err := repo.Close(); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}

	client.Close()

	if err := tracerShutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down tracer", zap.Error(err))
	}

	log.Info("stopped")
}
