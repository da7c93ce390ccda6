package main

import (
	"log/slog"

	"github.com/gtiscan/screener-api/internal/cache"
	"github.com/gtiscan/screener-api/internal/config"
	"github.com/gtiscan/screener-api/internal/ratelimit"
	"github.com/gtiscan/screener-api/internal/scan"
	"github.com/gtiscan/screener-api/internal/screener"
	"github.com/gtiscan/screener-api/internal/task"
)

// application holds every wired component. Built once at startup; the
// limiter and cache are the single shared instances every scan goes through.
type application struct {
	config *config.Config
	logger *slog.Logger

	limiter      *ratelimit.Limiter
	resultCache  *cache.Cache
	analyzer     *screener.Analyzer
	orchestrator *scan.Orchestrator
	catalog      *screener.Catalog
	taskManager  *task.Manager
}

// newApplication wires the component graph from the loaded configuration:
// provider behind the shared limiter and cache, analyzer on top, the scan
// orchestrator fanning it out, and the task manager running scans in the
// background.
func newApplication(cfg *config.Config, logger *slog.Logger) *application {
	limiter := ratelimit.New(ratelimit.Config{
		BaseDelay:         cfg.RateLimit.BaseDelay,
		MinDelay:          cfg.RateLimit.MinDelay,
		MaxDelay:          cfg.RateLimit.MaxDelay,
		MaxAttempts:       cfg.RateLimit.MaxAttempts,
		BackoffMultiplier: cfg.RateLimit.BackoffMultiplier,
		DecayFactor:       cfg.RateLimit.DecayFactor,
		RetryBase:         cfg.RateLimit.RetryBase,
	}, logger)

	resultCache := cache.New(cache.Config{
		DefaultTTL: cfg.Cache.DefaultTTL,
		MaxEntries: cfg.Cache.MaxEntries,
		LowWater:   cfg.Cache.LowWater,
		EvictBatch: cfg.Cache.EvictBatch,
	}, logger)

	provider := screener.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.Timeout, logger)

	analyzer := screener.NewAnalyzer(provider, limiter, resultCache,
		screener.Config{HistoryDays: cfg.Provider.HistoryDays}, logger)

	orchestrator := scan.New(scan.Config{
		Workers:         cfg.Scan.Workers,
		ItemTimeout:     cfg.Scan.ItemTimeout,
		MaxTotalTimeout: cfg.Scan.MaxTotalTimeout,
		ChunkSize:       cfg.Scan.ChunkSize,
	}, logger)

	catalog := screener.NewCatalog()

	handlers := screener.NewHandlers(analyzer, orchestrator, catalog, resultCache, logger)

	taskManager := task.NewManager(task.Config{
		Workers:       cfg.Task.Workers,
		QueueSize:     cfg.Task.QueueSize,
		Retention:     cfg.Task.Retention,
		SweepInterval: cfg.Task.SweepInterval,
	}, handlers.Registry(), logger)

	return &application{
		config:       cfg,
		logger:       logger,
		limiter:      limiter,
		resultCache:  resultCache,
		analyzer:     analyzer,
		orchestrator: orchestrator,
		catalog:      catalog,
		taskManager:  taskManager,
	}
}

// cleanup stops background components in dependency order.
func (app *application) cleanup() {
	app.taskManager.Stop()
	app.logger.Info("application cleanup completed")
}
