package screener

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gtiscan/screener-api/internal/cache"
	"github.com/gtiscan/screener-api/internal/ratelimit"
	"github.com/gtiscan/screener-api/internal/scan"
)

const (
	// singleStockTTL caches individual analyses for a shorter window than
	// whole-market scans.
	singleStockTTL = 2 * time.Minute

	cacheOpSingleStock = "single_stock"
)

// Thresholds are the qualification criteria applied per symbol.
type Thresholds struct {
	// MinScore is the minimum indicator score (0-4) for a symbol to qualify.
	MinScore int
}

// DefaultThresholds returns the standard qualification bar.
func DefaultThresholds() Thresholds {
	return Thresholds{MinScore: 2}
}

// Config holds the analyzer settings.
type Config struct {
	// HistoryDays is how much daily history to request per symbol.
	HistoryDays int
}

// Analyzer evaluates one symbol at a time: cache-aside lookup, rate-limited
// history fetch, indicator scoring, threshold filter. It is the work
// function the scan orchestrator fans out.
type Analyzer struct {
	provider QuoteProvider
	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	cfg      Config
	logger   *slog.Logger
}

// NewAnalyzer wires the analyzer to the shared limiter and cache.
func NewAnalyzer(
	provider QuoteProvider,
	limiter *ratelimit.Limiter,
	resultCache *cache.Cache,
	cfg Config,
	logger *slog.Logger,
) *Analyzer {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 365
	}
	return &Analyzer{
		provider: provider,
		limiter:  limiter,
		cache:    resultCache,
		cfg:      cfg,
		logger:   logger,
	}
}

// AnalyzeSymbol evaluates one symbol against the thresholds. A nil result
// with a nil error means the symbol did not qualify. Results are cached per
// (symbol, thresholds); only qualifying analyses are cached, so borderline
// symbols are re-checked on the next scan.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, symbol string, th Thresholds) (*scan.Result, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	params := map[string]any{
		"symbol":    symbol,
		"min_score": th.MinScore,
	}

	if cached, ok := a.cache.Get(cacheOpSingleStock, params); ok {
		if result, ok := cached.(*scan.Result); ok {
			return result, nil
		}
	}

	candles, err := ratelimit.Do(ctx, a.limiter, func() ([]Candle, error) {
		return a.provider.History(ctx, symbol, a.cfg.HistoryDays)
	})
	if err != nil {
		return nil, err
	}

	analysis, err := Analyze(symbol, candles)
	if err != nil {
		return nil, err
	}

	if analysis.Score < th.MinScore {
		a.logger.Debug("symbol did not qualify",
			"symbol", symbol,
			"score", analysis.Score,
			"min_score", th.MinScore)
		return nil, nil
	}

	result := &scan.Result{
		Symbol:  symbol,
		Score:   float64(analysis.Score),
		Details: analysis,
	}
	a.cache.Set(cacheOpSingleStock, result, singleStockTTL, params)

	return result, nil
}

// WorkFunc adapts the analyzer to the orchestrator's work-function contract
// with the thresholds bound in.
func (a *Analyzer) WorkFunc(th Thresholds) scan.WorkFunc {
	return func(ctx context.Context, symbol string) (*scan.Result, error) {
		return a.AnalyzeSymbol(ctx, symbol, th)
	}
}
