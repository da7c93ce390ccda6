package screener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gtiscan/screener-api/internal/cache"
	"github.com/gtiscan/screener-api/internal/scan"
	"github.com/gtiscan/screener-api/internal/task"
)

// ErrMissingParameter is returned when a task submission lacks a required
// parameter.
var ErrMissingParameter = errors.New("missing required parameter")

const (
	cacheOpMarketScan = "market_scan"

	defaultTopPicksLimit = 15
)

// ScanResult is the payload stored on a completed scan task.
type ScanResult struct {
	TaskType             task.Type      `json:"task_type"`
	Parameters           map[string]any `json:"parameters"`
	ScanReport           *scan.Report   `json:"scan_report"`
	ExecutionTimeSeconds float64        `json:"execution_time_seconds"`
}

// Handlers builds the task-type dispatch table over the scan orchestrator.
type Handlers struct {
	analyzer     *Analyzer
	orchestrator *scan.Orchestrator
	catalog      *Catalog
	cache        *cache.Cache
	logger       *slog.Logger
}

// NewHandlers wires the scanning handlers.
func NewHandlers(
	analyzer *Analyzer,
	orchestrator *scan.Orchestrator,
	catalog *Catalog,
	resultCache *cache.Cache,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		analyzer:     analyzer,
		orchestrator: orchestrator,
		catalog:      catalog,
		cache:        resultCache,
		logger:       logger,
	}
}

// Registry returns the handler per task type, used to validate submissions
// and dispatch execution.
func (h *Handlers) Registry() map[task.Type]task.Handler {
	return map[task.Type]task.Handler{
		task.TypeTopPicks:     h.topPicks,
		task.TypeSectorScan:   h.sectorScan,
		task.TypeCategoryScan: h.categoryScan,
		task.TypeCustomScan:   h.customScan,
	}
}

// topPicks scans the whole known universe and keeps the highest-ranked
// results up to the requested limit.
func (h *Handlers) topPicks(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
	limit := intParam(params, "limit", defaultTopPicksLimit)
	th := thresholds(params)
	symbols := h.catalog.All()

	progress(fmt.Sprintf("scanning %d symbols for top picks", len(symbols)))

	report := h.orchestrator.Scan(ctx, symbols, h.analyzer.WorkFunc(th), scan.Options{})
	if limit > 0 && len(report.Results) > limit {
		report.Results = report.Results[:limit]
	}

	return &ScanResult{
		TaskType:             task.TypeTopPicks,
		Parameters:           params,
		ScanReport:           report,
		ExecutionTimeSeconds: report.Stats.Duration.Seconds(),
	}, nil
}

// sectorScan scans one sector's constituents.
func (h *Handlers) sectorScan(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
	sector, ok := stringParam(params, "sector")
	if !ok {
		return nil, fmt.Errorf("%w: sector", ErrMissingParameter)
	}

	symbols, err := h.catalog.Sector(sector)
	if err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("scanning sector %s (%d symbols)", sector, len(symbols)))
	return h.runCachedScan(ctx, task.TypeSectorScan, sector, symbols, params)
}

// categoryScan scans a named category, defaulting to the VN30 universe.
func (h *Handlers) categoryScan(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
	category, ok := stringParam(params, "category")
	if !ok {
		category = "vn30"
	}

	symbols, err := h.catalog.Resolve(category)
	if err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("scanning category %s (%d symbols)", category, len(symbols)))
	return h.runCachedScan(ctx, task.TypeCategoryScan, category, symbols, params)
}

// customScan scans a caller-supplied symbol list.
func (h *Handlers) customScan(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
	raw, ok := stringParam(params, "symbols")
	if !ok {
		return nil, fmt.Errorf("%w: symbols", ErrMissingParameter)
	}
	symbols := ParseSymbolList(raw)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols list is empty", ErrMissingParameter)
	}

	progress(fmt.Sprintf("scanning %d custom symbols", len(symbols)))

	th := thresholds(params)
	report := h.orchestrator.Scan(ctx, symbols, h.analyzer.WorkFunc(th), scan.Options{})

	return &ScanResult{
		TaskType:             task.TypeCustomScan,
		Parameters:           params,
		ScanReport:           report,
		ExecutionTimeSeconds: report.Stats.Duration.Seconds(),
	}, nil
}

// runCachedScan serves repeat category and sector scans from the result
// cache so identical requests inside the TTL reuse one orchestrated run.
func (h *Handlers) runCachedScan(
	ctx context.Context,
	taskType task.Type,
	category string,
	symbols []string,
	params map[string]any,
) (any, error) {
	th := thresholds(params)
	cacheParams := map[string]any{
		"category":  category,
		"min_score": th.MinScore,
	}

	if cached, ok := h.cache.Get(cacheOpMarketScan, cacheParams); ok {
		if report, ok := cached.(*scan.Report); ok {
			h.logger.Info("serving scan from cache", "category", category)
			return &ScanResult{
				TaskType:             taskType,
				Parameters:           params,
				ScanReport:           report,
				ExecutionTimeSeconds: 0,
			}, nil
		}
	}

	report := h.orchestrator.Scan(ctx, symbols, h.analyzer.WorkFunc(th), scan.Options{})
	if len(report.Results) > 0 {
		h.cache.Set(cacheOpMarketScan, report, 0, cacheParams)
	}

	return &ScanResult{
		TaskType:             taskType,
		Parameters:           params,
		ScanReport:           report,
		ExecutionTimeSeconds: report.Stats.Duration.Seconds(),
	}, nil
}

// thresholds extracts the qualification criteria from task parameters.
func thresholds(params map[string]any) Thresholds {
	th := DefaultThresholds()
	th.MinScore = intParam(params, "min_score", th.MinScore)
	return th
}

// intParam reads an integer parameter, tolerating the float64 that JSON
// decoding produces for numbers.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

// stringParam reads a non-empty string parameter.
func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
