package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// WorkFunc evaluates one symbol. A nil result with a nil error means the
// symbol did not qualify; an error isolates the symbol without aborting the
// scan. Implementations must be safe for concurrent calls.
type WorkFunc func(ctx context.Context, symbol string) (*Result, error)

// Options control one orchestrated run. Zero values fall back to the
// orchestrator's configured defaults.
type Options struct {
	// Workers bounds the number of concurrent work-function calls.
	Workers int

	// ItemTimeout bounds each individual work-function call.
	ItemTimeout time.Duration

	// TotalTimeout bounds the whole run. Zero means auto-computed from the
	// item count.
	TotalTimeout time.Duration

	// ChunkSize is the threshold above which the item list is split into
	// sequential chunks, each with its own sub-timeout.
	ChunkSize int
}

// Config holds the orchestrator defaults applied when Options leave a field
// unset.
type Config struct {
	Workers         int
	ItemTimeout     time.Duration
	MaxTotalTimeout time.Duration
	ChunkSize       int
}

// DefaultConfig returns the orchestration defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         10,
		ItemTimeout:     30 * time.Second,
		MaxTotalTimeout: 10 * time.Minute,
		ChunkSize:       20,
	}
}

const (
	// chunkTimeoutCap bounds a single chunk's budget so one slow chunk
	// cannot silently consume the whole run.
	chunkTimeoutCap = 5 * time.Minute

	// earlyStopFraction of the total budget after which no further chunks
	// are launched.
	earlyStopFraction = 0.8

	chunkTimeoutMessage = "chunk timed out"
	itemTimeoutMessage  = "item exceeded its own timeout"
)

// Orchestrator fans work out to a bounded pool and assembles ranked reports.
// It holds no mutable state between runs and is safe for concurrent use.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Orchestrator. Invalid config values fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}
	if cfg.MaxTotalTimeout <= 0 {
		cfg.MaxTotalTimeout = def.MaxTotalTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}

	return &Orchestrator{cfg: cfg, logger: logger}
}

// itemOutcome is one completed unit of work, in completion order.
type itemOutcome struct {
	symbol string
	result *Result
	err    error
}

// Scan runs fn over symbols and returns the aggregated, ranked report.
// Individual failures are recorded, never raised; the only way Scan returns
// before evaluating every symbol is the documented early stop.
func (o *Orchestrator) Scan(ctx context.Context, symbols []string, fn WorkFunc, opts Options) *Report {
	start := time.Now()

	workers := opts.Workers
	if workers <= 0 {
		workers = o.cfg.Workers
	}
	itemTimeout := opts.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = o.cfg.ItemTimeout
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = o.cfg.ChunkSize
	}
	totalTimeout := opts.TotalTimeout
	if totalTimeout <= 0 {
		totalTimeout = autoTimeout(len(symbols), o.cfg.MaxTotalTimeout)
	}

	chunks := splitChunks(symbols, chunkSize)
	chunkTimeout := totalTimeout
	if len(chunks) > 1 {
		chunkTimeout = min(totalTimeout/3, chunkTimeoutCap)
	}

	o.logger.Info("starting scan",
		"total_items", len(symbols),
		"workers", workers,
		"chunk_count", len(chunks),
		"total_timeout", totalTimeout,
		"chunk_timeout", chunkTimeout)

	report := &Report{
		Results: []Result{},
		Errors:  []ItemError{},
		Stats: Stats{
			TotalItems:   len(symbols),
			Workers:      workers,
			TotalTimeout: totalTimeout,
			ItemTimeout:  itemTimeout,
			ChunkCount:   len(chunks),
		},
	}

	budget := time.Duration(earlyStopFraction * float64(totalTimeout))
	for i, chunk := range chunks {
		if i > 0 && time.Since(start) >= budget {
			// Early stop: most of the budget is gone, report what we have.
			o.logger.Warn("scan stopping early, time budget nearly exhausted",
				"elapsed", time.Since(start),
				"total_timeout", totalTimeout,
				"chunks_completed", i,
				"chunk_count", len(chunks))
			report.Stats.EarlyStopped = true
			break
		}

		results, itemErrs := o.runChunk(ctx, chunk, fn, workers, itemTimeout, chunkTimeout)
		report.Results = append(report.Results, results...)
		report.Errors = append(report.Errors, itemErrs...)
		report.Stats.ProcessedItems += len(chunk)
		report.Stats.ChunksCompleted++
	}

	// Deterministic ordering regardless of completion order: score
	// descending, symbol as tie-break.
	sort.Slice(report.Results, func(i, j int) bool {
		if report.Results[i].Score != report.Results[j].Score {
			return report.Results[i].Score > report.Results[j].Score
		}
		return report.Results[i].Symbol < report.Results[j].Symbol
	})

	report.Stats.QualifyingCount = len(report.Results)
	report.Stats.ErrorCount = len(report.Errors)
	report.Stats.Duration = time.Since(start)

	o.logger.Info("scan completed",
		"processed", report.Stats.ProcessedItems,
		"qualifying", report.Stats.QualifyingCount,
		"errors", report.Stats.ErrorCount,
		"early_stopped", report.Stats.EarlyStopped,
		"duration", report.Stats.Duration)

	return report
}

// runChunk fans the chunk's symbols out to a bounded worker pool and
// collects outcomes in completion order. When the chunk deadline fires,
// outcomes collected so far are kept and every remaining symbol is recorded
// as a chunk-timeout error; nothing is rolled back.
func (o *Orchestrator) runChunk(
	ctx context.Context,
	symbols []string,
	fn WorkFunc,
	workers int,
	itemTimeout, chunkTimeout time.Duration,
) ([]Result, []ItemError) {
	chunkCtx, cancel := context.WithTimeout(ctx, chunkTimeout)
	defer cancel()

	jobs := make(chan string)
	outcomes := make(chan itemOutcome)

	var wg sync.WaitGroup
	for w := 0; w < min(workers, len(symbols)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				result, err := runItem(chunkCtx, symbol, fn, itemTimeout)
				select {
				case outcomes <- itemOutcome{symbol: symbol, result: result, err: err}:
				case <-chunkCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, symbol := range symbols {
			select {
			case jobs <- symbol:
			case <-chunkCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var results []Result
	var itemErrs []ItemError
	collected := make(map[string]bool, len(symbols))

collect:
	for range symbols {
		select {
		case out, ok := <-outcomes:
			if !ok {
				break collect
			}
			collected[out.symbol] = true
			switch {
			case out.err != nil:
				itemErrs = append(itemErrs, ItemError{Symbol: out.symbol, Message: out.err.Error()})
				o.logger.Debug("scan item failed", "symbol", out.symbol, "error", out.err)
			case out.result != nil:
				results = append(results, *out.result)
			default:
				// nil result, nil error: the symbol did not qualify.
			}
		case <-chunkCtx.Done():
			break collect
		}
	}

	if chunkCtx.Err() != nil && ctx.Err() == nil {
		// Pool-level timeout on the whole chunk. Keep what was collected
		// and record the remainder individually.
		for _, symbol := range symbols {
			if !collected[symbol] {
				itemErrs = append(itemErrs, ItemError{Symbol: symbol, Message: chunkTimeoutMessage})
			}
		}
		o.logger.Warn("chunk timed out",
			"chunk_size", len(symbols),
			"collected", len(collected),
			"chunk_timeout", chunkTimeout)
	}

	return results, itemErrs
}

// runItem executes fn with a per-item deadline, converting panics and
// timeouts into ordinary item errors.
func runItem(ctx context.Context, symbol string, fn WorkFunc, itemTimeout time.Duration) (*Result, error) {
	itemCtx, cancel := context.WithTimeout(ctx, itemTimeout)
	defer cancel()

	done := make(chan itemOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- itemOutcome{err: fmt.Errorf("work function panicked: %v", r)}
			}
		}()
		result, err := fn(itemCtx, symbol)
		done <- itemOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-itemCtx.Done():
		if errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
			if ctx.Err() != nil {
				// The chunk budget expired, not this item's own allowance.
				return nil, errors.New(chunkTimeoutMessage)
			}
			return nil, errors.New(itemTimeoutMessage)
		}
		return nil, itemCtx.Err()
	}
}

// autoTimeout derives the aggregate budget from the item count: a small
// fixed overhead plus a per-item allowance, bounded below by one minute and
// above by the configured ceiling.
func autoTimeout(items int, ceiling time.Duration) time.Duration {
	computed := 10*time.Second + 5*time.Second*time.Duration(items)
	return min(max(computed, time.Minute), ceiling)
}

// splitChunks divides symbols into chunks of at most size items. Lists at or
// below the threshold stay whole.
func splitChunks(symbols []string, size int) [][]string {
	if len(symbols) <= size {
		return [][]string{symbols}
	}

	var chunks [][]string
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}
