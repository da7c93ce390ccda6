// Package api provides HTTP handlers for the screener API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gtiscan/screener-api/internal/api/shared"
	"github.com/gtiscan/screener-api/internal/task"
)

// ScanHandler handles scan task HTTP requests.
type ScanHandler struct {
	manager *task.Manager
	logger  *slog.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(manager *task.Manager, logger *slog.Logger) *ScanHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ScanHandler")
	}

	return &ScanHandler{
		manager: manager,
		logger:  logger.With(slog.String("component", "scan_handler")),
	}
}

// Submit handles POST /api/scans requests. It validates the request, queues
// the scan on the background pool, and returns 202 with the task ID.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitScanRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.logger.Debug("invalid scan submission body", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	taskID, err := h.manager.Submit(task.Type(req.TaskType), req.Parameters)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("scan task accepted",
		slog.String("task_id", taskID),
		slog.String("task_type", req.TaskType))

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitScanResponse{
		TaskID:   taskID,
		TaskType: task.Type(req.TaskType),
		Status:   task.StatusPending,
	})
}

// GetStatus handles GET /api/scans/{id} requests.
func (h *ScanHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	snapshot, err := h.manager.GetStatus(taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// GetResult handles GET /api/scans/{id}/result requests. Only completed
// tasks have a result; pending and running tasks report a conflict so the
// client keeps polling the status endpoint instead.
func (h *ScanHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	result, err := h.manager.GetResult(taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ScanResultResponse{
		TaskID: taskID,
		Result: result,
	})
}

// GetStats handles GET /api/scans/stats requests.
func (h *ScanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.manager.GetStats())
}
