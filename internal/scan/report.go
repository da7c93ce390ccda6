package scan

import "time"

// Result is one qualifying outcome of the work function: the symbol passed
// the caller's filter thresholds and ranks by Score.
type Result struct {
	Symbol  string  `json:"symbol"`
	Score   float64 `json:"score"`
	Details any     `json:"details,omitempty"`
}

// ItemError records a single symbol's failure without aborting the scan.
type ItemError struct {
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

// Stats aggregates the run's accounting. ProcessedItems never exceeds
// TotalItems; they differ when the orchestrator stopped early.
type Stats struct {
	TotalItems      int           `json:"total_items"`
	ProcessedItems  int           `json:"processed_items"`
	QualifyingCount int           `json:"qualifying_count"`
	ErrorCount      int           `json:"error_count"`
	Duration        time.Duration `json:"duration"`
	Workers         int           `json:"workers"`
	TotalTimeout    time.Duration `json:"total_timeout"`
	ItemTimeout     time.Duration `json:"item_timeout"`
	EarlyStopped    bool          `json:"early_stopped"`
	ChunkCount      int           `json:"chunk_count"`
	ChunksCompleted int           `json:"chunks_completed"`
}

// Report is the immutable outcome of one orchestrated run: qualifying
// results sorted by score descending, per-item errors, and statistics.
type Report struct {
	Results []Result    `json:"results"`
	Errors  []ItemError `json:"errors"`
	Stats   Stats       `json:"stats"`
}
