// Package task tracks pipeline runs for polling clients. The registry
// is an owned object injected into the orchestrator, not ambient state.
package task

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chiuchau-cyril/heario/internal/model"
)

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = errors.New("task not found")

// ErrTerminal is returned when mutating a task that already finished.
var ErrTerminal = errors.New("task is terminal")

// DefaultMaxTerminal bounds how many finished tasks stay readable.
const DefaultMaxTerminal = 100

// Registry is a mutex-guarded task table. Terminal tasks are evicted
// oldest-first once more than maxTerminal of them accumulate, so the
// table does not grow for the process lifetime.
type Registry struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*model.Task
	maxTerminal int
	now         func() time.Time
}

// NewRegistry creates a registry. A non-positive maxTerminal falls back
// to DefaultMaxTerminal.
func NewRegistry(maxTerminal int) *Registry {
	if maxTerminal <= 0 {
		maxTerminal = DefaultMaxTerminal
	}
	return &Registry{
		tasks:       make(map[uuid.UUID]*model.Task),
		maxTerminal: maxTerminal,
		now:         time.Now,
	}
}

// Create registers a new task in the started state.
func (r *Registry) Create(query string) model.Task {
	now := r.now().UTC()
	t := &model.Task{
		ID:        uuid.New(),
		Query:     query,
		Status:    model.StatusStarted,
		Progress:  0,
		Message:   "正在初始化搜尋...",
		Articles:  []model.NewsSummary{},
		StartedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	r.evictLocked()
	return *t
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id uuid.UUID) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return *t, nil
}

// List returns snapshots of all tasks, newest first.
func (r *Registry) List() []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Cancel marks a task cancelled. Cancellation is cooperative: the
// orchestrator observes it at the next stage boundary. Cancelling a
// terminal task is an error.
func (r *Registry) Cancel(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status.Terminal() {
		return ErrTerminal
	}
	t.Status = model.StatusCancelled
	t.Message = "任務已取消"
	t.UpdatedAt = r.now().UTC()
	return nil
}

// SetStage moves a task to a new status with a progress value and
// message. Terminal tasks are left untouched so a cancellation is never
// overwritten by a late stage transition.
func (r *Registry) SetStage(id uuid.UUID, status model.TaskStatus, progress int, message string) {
	r.update(id, func(t *model.Task) {
		t.Status = status
		t.Progress = progress
		t.Message = message
	})
}

// SetProgress updates only progress and message within the current stage.
func (r *Registry) SetProgress(id uuid.UUID, progress int, message string) {
	r.update(id, func(t *model.Task) {
		if progress > t.Progress {
			t.Progress = progress
		}
		t.Message = message
	})
}

// Complete finishes a task with its result set.
func (r *Registry) Complete(id uuid.UUID, articles []model.NewsSummary, found, processed int, message string) {
	if articles == nil {
		articles = []model.NewsSummary{}
	}
	r.update(id, func(t *model.Task) {
		t.Status = model.StatusCompleted
		t.Progress = 100
		t.Message = message
		t.Articles = articles
		t.TotalFound = found
		t.TotalProcessed = processed
	})
}

// Fail moves a task to the error state with the message captured
// verbatim.
func (r *Registry) Fail(id uuid.UUID, errMsg string) {
	r.update(id, func(t *model.Task) {
		t.Status = model.StatusError
		t.Progress = 100
		t.Message = "處理失敗: " + errMsg
		t.Error = errMsg
	})
}

// Cancelled reports whether a task has been cancelled. Unknown tasks
// count as cancelled so an orphaned run stops doing work.
func (r *Registry) Cancelled(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return true
	}
	return t.Status == model.StatusCancelled
}

func (r *Registry) update(id uuid.UUID, fn func(*model.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	fn(t)
	t.UpdatedAt = r.now().UTC()
	if t.Status.Terminal() {
		r.evictLocked()
	}
}

// evictLocked drops the oldest terminal tasks beyond the cap.
func (r *Registry) evictLocked() {
	var terminal []*model.Task
	for _, t := range r.tasks {
		if t.Status.Terminal() {
			terminal = append(terminal, t)
		}
	}
	if len(terminal) <= r.maxTerminal {
		return
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].UpdatedAt.Before(terminal[j].UpdatedAt)
	})
	for _, t := range terminal[:len(terminal)-r.maxTerminal] {
		delete(r.tasks, t.ID)
	}
}
