package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors surfaced by the manager. Unknown task types fail at submission;
// not-found and lifecycle errors are distinct so callers can act on them.
var (
	ErrUnknownTaskType  = errors.New("unknown task type")
	ErrQueueFull        = errors.New("task queue is full")
	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskNotCompleted = errors.New("task is not completed")
	ErrTaskExpired      = errors.New("task has expired")
)

// Config holds the manager tuning knobs.
type Config struct {
	// Workers is the background pool size. Deliberately small: only a few
	// scans should run concurrently system-wide.
	Workers int

	// QueueSize bounds how many submitted tasks can wait for a worker.
	QueueSize int

	// Retention is how long a task remains queryable after creation.
	Retention time.Duration

	// SweepInterval is how often expired tasks are physically removed.
	SweepInterval time.Duration
}

// DefaultConfig returns the manager defaults: three workers, one-hour
// retention, sweeps every thirty minutes.
func DefaultConfig() Config {
	return Config{
		Workers:       3,
		QueueSize:     32,
		Retention:     time.Hour,
		SweepInterval: 30 * time.Minute,
	}
}

// Manager owns all task records and the background worker pool. Tasks are
// created by Submit, mutated only by the single worker executing them, and
// removed by the periodic sweep once past the retention window.
type Manager struct {
	cfg      Config
	logger   *slog.Logger
	handlers map[Type]Handler

	mu    sync.Mutex
	tasks map[string]*record

	queue      chan string
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// now is injectable for tests.
	now func() time.Time
}

// NewManager creates a Manager with the given handler registry and starts
// its worker pool and sweep loop. Invalid config values fall back to
// defaults.
func NewManager(cfg Config, handlers map[Type]Handler, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:        cfg,
		logger:     logger,
		handlers:   handlers,
		tasks:      make(map[string]*record),
		queue:      make(chan string, cfg.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		now:        time.Now,
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	m.wg.Add(1)
	go m.sweeper()

	return m
}

// Stop shuts the manager down, waiting for in-flight tasks to finish.
// Running scans are not interrupted; they complete and record their outcome.
func (m *Manager) Stop() {
	m.cancelFunc()
	m.wg.Wait()
}

// Submit registers a new task and dispatches it to the background pool
// without blocking. The task type must be known at submission time; a full
// queue is reported as backpressure rather than spawning unbounded work.
func (m *Manager) Submit(taskType Type, params map[string]any) (string, error) {
	if _, ok := m.handlers[taskType]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}

	id := uuid.New().String()
	rec := &record{
		id:        id,
		taskType:  taskType,
		params:    params,
		status:    StatusPending,
		createdAt: m.now(),
		progress:  "task queued",
	}

	m.mu.Lock()
	m.tasks[id] = rec
	m.mu.Unlock()

	select {
	case m.queue <- id:
	default:
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
		return "", fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(m.queue))
	}

	m.logger.Info("task submitted",
		"task_id", id,
		"task_type", taskType,
		"queue_depth", len(m.queue))

	return id, nil
}

// GetStatus returns a read-only snapshot of the task. A task past the
// retention window reports expired even before the sweep removes it.
func (m *Manager) GetStatus(id string) (StatusSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tasks[id]
	if !ok {
		return StatusSnapshot{}, ErrTaskNotFound
	}

	snapshot := StatusSnapshot{
		TaskID:          rec.id,
		TaskType:        rec.taskType,
		Status:          rec.status,
		CreatedAt:       rec.createdAt,
		ProgressMessage: rec.progress,
		Error:           rec.errMsg,
		HasResult:       rec.result != nil,
	}
	if !rec.startedAt.IsZero() {
		t := rec.startedAt
		snapshot.StartedAt = &t
	}
	if !rec.completedAt.IsZero() {
		t := rec.completedAt
		snapshot.CompletedAt = &t
	}
	if m.expiredLocked(rec) {
		snapshot.Status = StatusExpired
	}

	return snapshot, nil
}

// GetResult returns the stored result, only for completed tasks. The
// distinct errors tell the caller whether to keep polling, give up, or
// resubmit.
func (m *Manager) GetResult(id string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if m.expiredLocked(rec) {
		return nil, ErrTaskExpired
	}
	if rec.status != StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrTaskNotCompleted, rec.status)
	}

	return rec.result, nil
}

// GetStats reports per-status counts and the pool configuration.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		TotalTasks: len(m.tasks),
		StatusBreakdown: map[Status]int{
			StatusPending:   0,
			StatusRunning:   0,
			StatusCompleted: 0,
			StatusFailed:    0,
			StatusExpired:   0,
		},
		Workers:    m.cfg.Workers,
		QueueSize:  m.cfg.QueueSize,
		QueueDepth: len(m.queue),
	}

	for _, rec := range m.tasks {
		if m.expiredLocked(rec) {
			stats.StatusBreakdown[StatusExpired]++
			continue
		}
		stats.StatusBreakdown[rec.status]++
	}

	return stats
}

// expiredLocked reports whether the record is past the retention window.
// Callers must hold m.mu.
func (m *Manager) expiredLocked(rec *record) bool {
	return m.now().Sub(rec.createdAt) > m.cfg.Retention
}

// worker pulls task ids off the queue and executes them one at a time.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	m.logger.Debug("starting task worker", "worker_id", id)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Debug("stopping task worker", "worker_id", id)
			return
		case taskID := <-m.queue:
			m.execute(taskID, id)
		}
	}
}

// execute runs a single task through its handler and records the outcome.
// Handler errors are captured as FAILED; they never crash the worker.
func (m *Manager) execute(taskID string, workerID int) {
	m.mu.Lock()
	rec, ok := m.tasks[taskID]
	if !ok {
		// Swept between submission and execution.
		m.mu.Unlock()
		return
	}
	rec.status = StatusRunning
	rec.startedAt = m.now()
	rec.progress = "running analysis"
	taskType := rec.taskType
	params := rec.params
	m.mu.Unlock()

	logger := m.logger.With(
		"task_id", taskID,
		"task_type", taskType,
		"worker_id", workerID,
	)
	logger.Info("executing task")

	progress := func(msg string) {
		m.mu.Lock()
		if rec, ok := m.tasks[taskID]; ok {
			rec.progress = msg
		}
		m.mu.Unlock()
	}

	result, err := m.runHandler(taskType, params, progress)

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok = m.tasks[taskID]
	if !ok {
		return
	}
	rec.completedAt = m.now()
	if err != nil {
		rec.status = StatusFailed
		rec.errMsg = err.Error()
		rec.progress = "analysis failed: " + err.Error()
		logger.Error("task execution failed", "error", err)
		return
	}
	rec.status = StatusCompleted
	rec.result = result
	rec.progress = "analysis completed"
	logger.Info("task completed", "duration", rec.completedAt.Sub(rec.startedAt))
}

// runHandler invokes the task handler, converting panics into ordinary
// failures so a bad handler cannot take a pool worker down.
func (m *Manager) runHandler(taskType Type, params map[string]any, progress func(string)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()

	return m.handlers[taskType](m.ctx, params, progress)
}

// sweeper periodically removes tasks older than the retention window,
// independent of queries.
func (m *Manager) sweeper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep removes all records past the retention window and reports how many
// were removed. The sweeper calls it on a timer; tests call it directly.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, rec := range m.tasks {
		if m.expiredLocked(rec) {
			delete(m.tasks, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("swept expired tasks", "removed", removed, "remaining", len(m.tasks))
	}
	return removed
}
