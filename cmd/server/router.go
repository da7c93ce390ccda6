package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gtiscan/screener-api/internal/api"
	apiMiddleware "github.com/gtiscan/screener-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	scanHandler := api.NewScanHandler(app.taskManager, app.logger)
	analyzeHandler := api.NewAnalyzeHandler(app.analyzer, app.logger)
	cacheHandler := api.NewCacheHandler(app.resultCache, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Background scan tasks
		r.Post("/scans", scanHandler.Submit)
		r.Get("/scans/stats", scanHandler.GetStats)
		r.Get("/scans/{id}", scanHandler.GetStatus)
		r.Get("/scans/{id}/result", scanHandler.GetResult)

		// Synchronous single-symbol analysis
		r.Get("/analyze/{symbol}", analyzeHandler.Analyze)

		// Result cache inspection
		r.Get("/cache/stats", cacheHandler.GetStats)
		r.Delete("/cache", cacheHandler.Clear)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
