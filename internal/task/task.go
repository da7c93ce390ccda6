package task

import (
	"context"
	"time"
)

// Status represents the current state of a task.
type Status string

// Possible task status values. A task moves pending -> running -> one of
// completed/failed; any task older than the retention window reports expired
// regardless of its last real status.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Type identifies which scan a task runs.
type Type string

// Supported task types.
const (
	TypeTopPicks     Type = "top_picks"
	TypeSectorScan   Type = "sector_scan"
	TypeCategoryScan Type = "category_scan"
	TypeCustomScan   Type = "custom_scan"
)

// Handler executes one task type. It receives the submission parameters and
// a progress callback for updating the task's human-readable progress
// message, and returns the task's result payload.
type Handler func(ctx context.Context, params map[string]any, progress func(string)) (any, error)

// record is the manager's internal task state. After creation exactly one
// background worker mutates it; reads go through the manager's lock.
type record struct {
	id          string
	taskType    Type
	params      map[string]any
	status      Status
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	result      any
	errMsg      string
	progress    string
}

// StatusSnapshot is the read-only view returned by status queries.
type StatusSnapshot struct {
	TaskID          string     `json:"task_id"`
	TaskType        Type       `json:"task_type"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ProgressMessage string     `json:"progress_message"`
	Error           string     `json:"error,omitempty"`
	HasResult       bool       `json:"has_result"`
}

// Stats summarizes the manager's state for observability.
type Stats struct {
	TotalTasks      int            `json:"total_tasks"`
	StatusBreakdown map[Status]int `json:"status_breakdown"`
	Workers         int            `json:"workers"`
	QueueSize       int            `json:"queue_size"`
	QueueDepth      int            `json:"queue_depth"`
}
