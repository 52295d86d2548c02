// Package goroutine supervises the service's background loops, such as
// broker consumers and the in-process scheduler.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/notifyflow/internal/pkg/stacktrace"
)

// Task is a named background loop. It should return when ctx is done.
type Task func(ctx context.Context) error

// Manager bounds how many tasks run at once and gathers their failures.
// After Wait has been called no new task is accepted.
type Manager struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager allows up to limit concurrent tasks, or 100 per CPU when limit
// is not positive.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * 100
	}
	return &Manager{slots: make(chan struct{}, limit)}
}

// Go starts task unless the manager is closed, full, or ctx is already done.
// It reports whether the task was started.
func (m *Manager) Go(ctx context.Context, name string, task Task) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		slog.WarnContext(ctx, "background task rejected, shutting down", "task", name)
		return false
	case ctx.Err() != nil:
		slog.WarnContext(ctx, "background task not started", "task", name, "error", ctx.Err())
		return false
	}

	select {
	case m.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "background task rejected, limit reached", "task", name, "limit", cap(m.slots))
		return false
	}

	m.wg.Go(func() {
		defer func() { <-m.slots }()
		if err := m.run(ctx, name, task); err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, fmt.Errorf("%s: %w", name, err))
			m.mu.Unlock()
		}
	})
	return true
}

// run treats the task's own cancellation as a clean exit.
func (m *Manager) run(ctx context.Context, name string, task Task) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "background task panicked", "task", name, "panic", rvr, "stack", stacktrace.InternalPaths(debug.Stack()))
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()

	err = task(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// Wait closes the manager, waits for running tasks and returns their errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
