package screener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtiscan/screener-api/internal/cache"
	"github.com/gtiscan/screener-api/internal/scan"
	"github.com/gtiscan/screener-api/internal/task"
)

func newTestHandlers(provider QuoteProvider) (*Handlers, *fakeProvider) {
	fake, _ := provider.(*fakeProvider)
	resultCache := cache.New(cache.DefaultConfig(), testLogger())
	analyzer := NewAnalyzer(provider, fastLimiter(), resultCache, Config{HistoryDays: 90}, testLogger())
	orchestrator := scan.New(scan.Config{
		Workers:         4,
		ItemTimeout:     2 * time.Second,
		MaxTotalTimeout: 30 * time.Second,
		ChunkSize:       50,
	}, testLogger())
	return NewHandlers(analyzer, orchestrator, NewCatalog(), resultCache, testLogger()), fake
}

// universeProvider returns uptrend data for every symbol.
func universeProvider(symbols []string) *fakeProvider {
	candles := make(map[string][]Candle, len(symbols))
	for _, s := range symbols {
		candles[s] = uptrendCandles(60)
	}
	return &fakeProvider{candles: candles}
}

func noProgress(string) {}

func TestRegistryCoversAllTaskTypes(t *testing.T) {
	h, _ := newTestHandlers(&fakeProvider{})
	registry := h.Registry()

	assert.Contains(t, registry, task.TypeTopPicks)
	assert.Contains(t, registry, task.TypeSectorScan)
	assert.Contains(t, registry, task.TypeCategoryScan)
	assert.Contains(t, registry, task.TypeCustomScan)
}

func TestCategoryScanDefaultsToVN30(t *testing.T) {
	h, _ := newTestHandlers(universeProvider(NewCatalog().All()))

	payload, err := h.categoryScan(context.Background(), map[string]any{}, noProgress)
	require.NoError(t, err)

	result, ok := payload.(*ScanResult)
	require.True(t, ok)
	assert.Equal(t, task.TypeCategoryScan, result.TaskType)
	assert.Equal(t, 30, result.ScanReport.Stats.TotalItems)
	assert.Equal(t, 30, result.ScanReport.Stats.ProcessedItems)
	assert.NotEmpty(t, result.ScanReport.Results)
}

func TestCategoryScanServedFromCacheOnRepeat(t *testing.T) {
	h, _ := newTestHandlers(universeProvider(NewCatalog().All()))
	params := map[string]any{"category": "popular"}

	first, err := h.categoryScan(context.Background(), params, noProgress)
	require.NoError(t, err)
	require.NotEmpty(t, first.(*ScanResult).ScanReport.Results)

	second, err := h.categoryScan(context.Background(), params, noProgress)
	require.NoError(t, err)
	assert.Zero(t, second.(*ScanResult).ExecutionTimeSeconds,
		"a repeat scan inside the TTL is served from the cache")
	assert.Equal(t, first.(*ScanResult).ScanReport, second.(*ScanResult).ScanReport)
}

func TestSectorScanRequiresSector(t *testing.T) {
	h, _ := newTestHandlers(&fakeProvider{})

	_, err := h.sectorScan(context.Background(), map[string]any{}, noProgress)
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = h.sectorScan(context.Background(), map[string]any{"sector": "crypto"}, noProgress)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSectorScan(t *testing.T) {
	h, _ := newTestHandlers(universeProvider(NewCatalog().All()))

	payload, err := h.sectorScan(context.Background(),
		map[string]any{"sector": "banking", "min_score": 2}, noProgress)
	require.NoError(t, err)

	result := payload.(*ScanResult)
	assert.Equal(t, 11, result.ScanReport.Stats.TotalItems)
	for _, r := range result.ScanReport.Results {
		assert.Contains(t, []string{"ACB", "BID", "CTG", "HDB", "MBB", "STB", "TCB", "TPB", "VCB", "VPB", "VIB"}, r.Symbol)
	}
}

func TestCustomScanParsesSymbolList(t *testing.T) {
	h, _ := newTestHandlers(universeProvider([]string{"FPT", "VIC", "HPG"}))

	payload, err := h.customScan(context.Background(),
		map[string]any{"symbols": "fpt, vic ,hpg"}, noProgress)
	require.NoError(t, err)

	result := payload.(*ScanResult)
	assert.Equal(t, 3, result.ScanReport.Stats.TotalItems)
	assert.Len(t, result.ScanReport.Results, 3)
}

func TestCustomScanRejectsEmptyList(t *testing.T) {
	h, _ := newTestHandlers(&fakeProvider{})

	_, err := h.customScan(context.Background(), map[string]any{}, noProgress)
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = h.customScan(context.Background(), map[string]any{"symbols": " , ,"}, noProgress)
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestTopPicksHonorsLimit(t *testing.T) {
	h, _ := newTestHandlers(universeProvider(NewCatalog().All()))

	payload, err := h.topPicks(context.Background(),
		map[string]any{"limit": float64(5)}, noProgress)
	require.NoError(t, err)

	result := payload.(*ScanResult)
	assert.Equal(t, task.TypeTopPicks, result.TaskType)
	assert.Len(t, result.ScanReport.Results, 5,
		"results are truncated to the requested limit after ranking")
	assert.Equal(t, 30, result.ScanReport.Stats.TotalItems,
		"top picks scans the whole known universe")
}
