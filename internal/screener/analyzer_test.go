package screener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtiscan/screener-api/internal/cache"
	"github.com/gtiscan/screener-api/internal/ratelimit"
	"github.com/gtiscan/screener-api/internal/scan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		BaseDelay:         time.Millisecond,
		MinDelay:          time.Millisecond,
		MaxDelay:          8 * time.Millisecond,
		MaxAttempts:       3,
		BackoffMultiplier: 2.0,
		DecayFactor:       0.8,
		RetryBase:         time.Millisecond,
	}, testLogger())
}

// fakeProvider serves canned candles and counts calls.
type fakeProvider struct {
	calls   atomic.Int32
	candles map[string][]Candle
	err     error
}

func (f *fakeProvider) History(ctx context.Context, symbol string, days int) ([]Candle, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	candles, ok := f.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return candles, nil
}

func newTestAnalyzer(provider QuoteProvider) (*Analyzer, *cache.Cache) {
	resultCache := cache.New(cache.DefaultConfig(), testLogger())
	analyzer := NewAnalyzer(provider, fastLimiter(), resultCache, Config{HistoryDays: 90}, testLogger())
	return analyzer, resultCache
}

func TestAnalyzeSymbolQualifiesAndCaches(t *testing.T) {
	provider := &fakeProvider{candles: map[string][]Candle{"FPT": uptrendCandles(60)}}
	analyzer, _ := newTestAnalyzer(provider)

	result, err := analyzer.AnalyzeSymbol(context.Background(), "fpt", DefaultThresholds())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "FPT", result.Symbol)
	assert.Equal(t, float64(3), result.Score)

	details, ok := result.Details.(*Analysis)
	require.True(t, ok)
	assert.Equal(t, "BUY", details.Signal)

	// Second call is served from the cache.
	again, err := analyzer.AnalyzeSymbol(context.Background(), "FPT", DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, int32(1), provider.calls.Load(), "cached analysis must not re-fetch")
}

func TestAnalyzeSymbolBelowThresholdIsNotCached(t *testing.T) {
	flat := makeCandles(60,
		func(i int) float64 { return 100 },
		func(i int) float64 { return 1_000_000 })
	provider := &fakeProvider{candles: map[string][]Candle{"VNM": flat}}
	analyzer, _ := newTestAnalyzer(provider)

	th := Thresholds{MinScore: 4}
	result, err := analyzer.AnalyzeSymbol(context.Background(), "VNM", th)
	require.NoError(t, err)
	assert.Nil(t, result, "a score below the threshold does not qualify")

	_, err = analyzer.AnalyzeSymbol(context.Background(), "VNM", th)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.calls.Load(),
		"non-qualifying symbols are re-checked, not cached")
}

func TestAnalyzeSymbolThresholdIsPartOfCacheKey(t *testing.T) {
	provider := &fakeProvider{candles: map[string][]Candle{"FPT": uptrendCandles(60)}}
	analyzer, _ := newTestAnalyzer(provider)

	_, err := analyzer.AnalyzeSymbol(context.Background(), "FPT", Thresholds{MinScore: 2})
	require.NoError(t, err)
	_, err = analyzer.AnalyzeSymbol(context.Background(), "FPT", Thresholds{MinScore: 3})
	require.NoError(t, err)

	assert.Equal(t, int32(2), provider.calls.Load(),
		"different thresholds must not share a cache entry")
}

func TestAnalyzeSymbolProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	analyzer, _ := newTestAnalyzer(provider)

	_, err := analyzer.AnalyzeSymbol(context.Background(), "FPT", DefaultThresholds())
	require.Error(t, err)
	assert.Equal(t, int32(1), provider.calls.Load(),
		"non-throttling errors must not be retried")
}

func TestAnalyzeSymbolRateLimitIsRetried(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("history: %w", ratelimit.ErrRateLimited)}
	analyzer, _ := newTestAnalyzer(provider)

	_, err := analyzer.AnalyzeSymbol(context.Background(), "FPT", DefaultThresholds())
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimit.ErrRateLimited)
	assert.Equal(t, int32(3), provider.calls.Load(),
		"throttling errors are retried up to the attempt limit")
}

func TestWorkFuncAdaptsAnalyzer(t *testing.T) {
	provider := &fakeProvider{candles: map[string][]Candle{"FPT": uptrendCandles(60)}}
	analyzer, _ := newTestAnalyzer(provider)

	fn := analyzer.WorkFunc(DefaultThresholds())
	result, err := fn(context.Background(), "FPT")
	require.NoError(t, err)
	require.NotNil(t, result)

	var _ scan.WorkFunc = fn
}
