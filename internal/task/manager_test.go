package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitForStatus polls until the task reaches one of the wanted statuses or
// the deadline passes.
func waitForStatus(t *testing.T, m *Manager, id string, wanted ...Status) StatusSnapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := m.GetStatus(id)
		require.NoError(t, err)
		for _, s := range wanted {
			if snapshot.Status == s {
				return snapshot
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %v", id, wanted)
	return StatusSnapshot{}
}

func TestTaskLifecycleCompleted(t *testing.T) {
	release := make(chan struct{})
	handlers := map[Type]Handler{
		TypeCategoryScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			progress("scanning category")
			<-release
			return map[string]any{"qualifying": 3}, nil
		},
	}
	m := NewManager(DefaultConfig(), handlers, testLogger())
	defer m.Stop()

	id, err := m.Submit(TypeCategoryScan, map[string]any{"category": "vn30"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshot := waitForStatus(t, m, id, StatusRunning)
	assert.Equal(t, TypeCategoryScan, snapshot.TaskType)
	assert.NotNil(t, snapshot.StartedAt)
	assert.False(t, snapshot.HasResult)

	// Result is gated until completion.
	_, err = m.GetResult(id)
	assert.ErrorIs(t, err, ErrTaskNotCompleted)

	close(release)
	snapshot = waitForStatus(t, m, id, StatusCompleted)
	assert.NotNil(t, snapshot.CompletedAt)
	assert.True(t, snapshot.HasResult)
	assert.Empty(t, snapshot.Error)

	result, err := m.GetResult(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"qualifying": 3}, result)
}

func TestTaskLifecycleFailed(t *testing.T) {
	handlers := map[Type]Handler{
		TypeSectorScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			return nil, errors.New("sector data unavailable")
		},
	}
	m := NewManager(DefaultConfig(), handlers, testLogger())
	defer m.Stop()

	id, err := m.Submit(TypeSectorScan, map[string]any{"sector": "banking"})
	require.NoError(t, err)

	snapshot := waitForStatus(t, m, id, StatusFailed)
	assert.Equal(t, "sector data unavailable", snapshot.Error)
	assert.False(t, snapshot.HasResult)

	_, err = m.GetResult(id)
	assert.ErrorIs(t, err, ErrTaskNotCompleted)
}

func TestHandlerPanicBecomesFailure(t *testing.T) {
	handlers := map[Type]Handler{
		TypeTopPicks: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			panic("nil dataframe")
		},
	}
	m := NewManager(DefaultConfig(), handlers, testLogger())
	defer m.Stop()

	id, err := m.Submit(TypeTopPicks, nil)
	require.NoError(t, err)

	snapshot := waitForStatus(t, m, id, StatusFailed)
	assert.Contains(t, snapshot.Error, "panicked")

	// The pool survives: a subsequent task still executes.
	id2, err := m.Submit(TypeTopPicks, nil)
	require.NoError(t, err)
	waitForStatus(t, m, id2, StatusFailed)
}

func TestSubmitUnknownTypeFailsFast(t *testing.T) {
	m := NewManager(DefaultConfig(), map[Type]Handler{}, testLogger())
	defer m.Stop()

	_, err := m.Submit(Type("full_moon_scan"), nil)
	assert.ErrorIs(t, err, ErrUnknownTaskType)
}

func TestSubmitQueueFullBackpressure(t *testing.T) {
	block := make(chan struct{})
	handlers := map[Type]Handler{
		TypeCustomScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			<-block
			return nil, nil
		},
	}
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.QueueSize = 2
	m := NewManager(cfg, handlers, testLogger())
	defer m.Stop()
	defer close(block)

	// One task occupies the worker, two fill the queue; the queue may drain
	// by one as the worker picks up, so saturate with one extra.
	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = m.Submit(TypeCustomScan, nil)
		if lastErr != nil {
			break
		}
	}
	assert.ErrorIs(t, lastErr, ErrQueueFull)
}

func TestGetStatusNotFound(t *testing.T) {
	m := NewManager(DefaultConfig(), map[Type]Handler{}, testLogger())
	defer m.Stop()

	_, err := m.GetStatus("no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = m.GetResult("no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskExpiry(t *testing.T) {
	handlers := map[Type]Handler{
		TypeCategoryScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			return "done", nil
		},
	}
	cfg := DefaultConfig()
	cfg.Retention = time.Hour
	m := NewManager(cfg, handlers, testLogger())
	defer m.Stop()

	id, err := m.Submit(TypeCategoryScan, nil)
	require.NoError(t, err)
	waitForStatus(t, m, id, StatusCompleted)

	// Shift the manager's clock past the retention window.
	m.mu.Lock()
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	m.mu.Unlock()

	snapshot, err := m.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, snapshot.Status,
		"a task past retention reports expired even before the sweep")

	_, err = m.GetResult(id)
	assert.ErrorIs(t, err, ErrTaskExpired)

	removed := m.Sweep()
	assert.Equal(t, 1, removed)

	_, err = m.GetStatus(id)
	assert.ErrorIs(t, err, ErrTaskNotFound, "swept task is physically gone")
}

func TestGetStats(t *testing.T) {
	release := make(chan struct{})
	handlers := map[Type]Handler{
		TypeCategoryScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			<-release
			return "ok", nil
		},
	}
	cfg := DefaultConfig()
	cfg.Workers = 1
	m := NewManager(cfg, handlers, testLogger())
	defer m.Stop()

	id1, err := m.Submit(TypeCategoryScan, nil)
	require.NoError(t, err)
	waitForStatus(t, m, id1, StatusRunning)

	_, err = m.Submit(TypeCategoryScan, nil)
	require.NoError(t, err)

	stats := m.GetStats()
	assert.Equal(t, 2, stats.TotalTasks)
	assert.Equal(t, 1, stats.StatusBreakdown[StatusRunning])
	assert.Equal(t, 1, stats.StatusBreakdown[StatusPending])
	assert.Equal(t, 1, stats.Workers)

	close(release)
	waitForStatus(t, m, id1, StatusCompleted)
}

func TestProgressMessageUpdates(t *testing.T) {
	step := make(chan struct{})
	handlers := map[Type]Handler{
		TypeSectorScan: func(ctx context.Context, params map[string]any, progress func(string)) (any, error) {
			progress("scanning sector banking")
			step <- struct{}{}
			<-step
			return "ok", nil
		},
	}
	m := NewManager(DefaultConfig(), handlers, testLogger())
	defer m.Stop()

	id, err := m.Submit(TypeSectorScan, map[string]any{"sector": "banking"})
	require.NoError(t, err)

	<-step
	snapshot, err := m.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, "scanning sector banking", snapshot.ProgressMessage)

	step <- struct{}{}
	snapshot = waitForStatus(t, m, id, StatusCompleted)
	assert.Equal(t, "analysis completed", snapshot.ProgressMessage)
}
