package api

import (
	"github.com/gtiscan/screener-api/internal/task"
)

// SubmitScanRequest is the request body for submitting a background scan.
type SubmitScanRequest struct {
	TaskType   string         `json:"task_type"   validate:"required,oneof=top_picks sector_scan category_scan custom_scan"`
	Parameters map[string]any `json:"parameters"`
}

// SubmitScanResponse acknowledges an accepted scan task.
type SubmitScanResponse struct {
	TaskID   string      `json:"task_id"`
	TaskType task.Type   `json:"task_type"`
	Status   task.Status `json:"status"`
}

// ScanResultResponse wraps a completed task's result payload.
type ScanResultResponse struct {
	TaskID string `json:"task_id"`
	Result any    `json:"result"`
}
