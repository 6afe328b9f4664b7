package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lingualens/lingualens/internal/cache"
	"github.com/lingualens/lingualens/internal/config"
	"github.com/lingualens/lingualens/internal/history"
	"github.com/lingualens/lingualens/internal/httpapi"
	"github.com/lingualens/lingualens/internal/llm"
	"github.com/lingualens/lingualens/internal/orchestrator"
	"github.com/lingualens/lingualens/internal/persistence"
	"github.com/lingualens/lingualens/internal/precompute"
	"github.com/lingualens/lingualens/internal/profile"
	"github.com/lingualens/lingualens/internal/sources"
	"github.com/lingualens/lingualens/pkg/log"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.Server.LogLevel))

	ctx := context.Background()

	sqlStore, err := persistence.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: %v", err)
	}
	defer sqlStore.Close()

	fileStore, err := persistence.NewFileStore(cfg.Store.FallbackPath)
	if err != nil {
		log.Fatal("Failed to open fallback cache: %v", err)
	}

	settings, err := config.NewRuntimeSettingsStore(ctx, sqlStore)
	if err != nil {
		log.Fatal("Failed to load runtime settings: %v", err)
	}

	cacheStore := cache.NewStore(sqlStore, func() cache.Policy {
		s := settings.GetRuntimeSettings()
		return cache.Policy{QuickTTL: s.QuickTTL(), MaxEntries: s.MaxEntries}
	}, cache.WithSecondary(fileStore))

	source := llm.NewSource(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.APIURL,
		QuickModel:  cfg.LLM.QuickModel,
		DeepModel:   cfg.LLM.DeepModel,
		Temperature: 0.3,
		Timeout:     cfg.LLM.Timeout,
	})

	profiles, err := profile.NewStore(ctx, sqlStore)
	if err != nil {
		log.Fatal("Failed to load profiles: %v", err)
	}
	historyStore := history.NewStore(sqlStore)

	retriever := sources.NewRetriever(sqlStore, sources.DefaultCollection)
	finder := sources.NewFinder(cfg.Sources.UrbanURL, cfg.Sources.WikiURL, cfg.Sources.EnableOnline,
		sources.WithRetriever(retriever))

	orch := orchestrator.New(cacheStore, source, profiles, finder,
		orchestrator.WithHistory(historyStore))

	queue := precompute.NewQueue(2)
	scheduler := precompute.NewScheduler(cfg.Precompute.CronExpr, cfg.Precompute.Limit, queue, historyStore, cacheStore, orch)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start precompute scheduler: %v", err)
	}
	defer scheduler.Stop()

	server := httpapi.NewServer(orch, profiles, source,
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithHistoryStore(historyStore),
		httpapi.WithPrecomputeQueue(queue),
		httpapi.WithCollectionStore(retriever))

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("Server stopped: %v", err)
	case sig := <-sigCh:
		log.Info("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown failed: %v", err)
	}
}
