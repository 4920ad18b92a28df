package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/act-mass/pendo/internal/analytics"
	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/config"
	"github.com/act-mass/pendo/internal/engine"
	"github.com/act-mass/pendo/internal/httpapi"
	"github.com/act-mass/pendo/internal/llm"
	"github.com/act-mass/pendo/internal/memory"
	"github.com/act-mass/pendo/internal/observability"
	"github.com/act-mass/pendo/internal/scoring"
	"github.com/act-mass/pendo/internal/specialist"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	backend, err := memory.NewBackend(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory backend init failed: %v", err)
	}
	store := memory.NewStore(backend, memory.WithLossHandler(func(userID string, err error) {
		metrics.MemoryLosses.Inc()
	}))
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("memory backend: in-memory (set DATABASE_URL for postgres)")
	} else {
		log.Printf("memory backend: postgres")
	}

	entries := catalog.Seed()
	if cfg.CatalogPath != "" {
		entries, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("catalog load failed: %v", err)
		}
		log.Printf("catalog: %d entries from %s", len(entries), cfg.CatalogPath)
	} else {
		log.Printf("catalog: %d seed entries", len(entries))
	}
	cat := catalog.New(entries)

	generator, err := llm.NewGenerator(ctx, llm.Config{
		Mode:    cfg.GeneratorMode,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		HTTPURL: cfg.GeneratorHTTPURL,
		Timeout: cfg.GenerateTimeout,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	eng := engine.New(engine.Config{
		Executor: specialist.NewExecutor(generator, scoring.New(scoring.Config{
			CatalogFloor:    cfg.CatalogFloor,
			SkillMatchFloor: cfg.SkillMatchFloor,
		})),
		Store:   store,
		Catalog: cat,
		Metrics: metrics,
		Stages:  observability.NewStageWindow(cfg.StageWindowSize),
		Sink:    analytics.NewLogSink(),
	})

	api := httpapi.New(cfg, eng, cat)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
