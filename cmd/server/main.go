// Package main implements the entry point for the screener API server,
// which runs GTI market scans over a bounded worker pool and serves the
// results through a polling task API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/gtiscan/screener-api/internal/config"
	"github.com/gtiscan/screener-api/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(context.Background(), router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, and wires the
// application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"provider_base_url", cfg.Provider.BaseURL,
		"scan_workers", cfg.Scan.Workers,
		"task_workers", cfg.Task.Workers)

	return newApplication(cfg, appLogger), nil
}
