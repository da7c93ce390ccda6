package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gtiscan/screener-api/internal/api/shared"
	"github.com/gtiscan/screener-api/internal/screener"
)

// AnalyzeResponse is the response body for a single-symbol analysis.
type AnalyzeResponse struct {
	Symbol    string  `json:"symbol"`
	Qualifies bool    `json:"qualifies"`
	Score     float64 `json:"score"`
	Analysis  any     `json:"analysis,omitempty"`
}

// AnalyzeHandler handles on-demand single-symbol analysis requests.
type AnalyzeHandler struct {
	analyzer *screener.Analyzer
	logger   *slog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(analyzer *screener.Analyzer, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AnalyzeHandler")
	}

	return &AnalyzeHandler{
		analyzer: analyzer,
		logger:   logger.With(slog.String("component", "analyze_handler")),
	}
}

// Analyze handles GET /api/analyze/{symbol} requests. It runs the scoring
// checks synchronously for one symbol. The optional min_score query parameter
// sets the qualification bar; the default of zero returns every analysis.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(chi.URLParam(r, "symbol"))
	if symbol == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Symbol is required")
		return
	}

	th := screener.Thresholds{MinScore: 0}
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid min_score")
			return
		}
		th.MinScore = n
	}

	result, err := h.analyzer.AnalyzeSymbol(r.Context(), symbol, th)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := AnalyzeResponse{Symbol: strings.ToUpper(symbol)}
	if result != nil {
		response.Qualifies = true
		response.Score = result.Score
		response.Analysis = result.Details
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}
