// Package board holds the client-side to-do list state and keeps it in step
// with the remote Task Service.
//
// Mutations reach the local list only after the service acknowledges them,
// with two exceptions: ToggleAll changes local completion flags without any
// request, and SetCompleted flips the local flag before sending the update.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/instrumentation"
	"taskboard/internal/logging"
	"taskboard/internal/notify"
	"taskboard/internal/service"
)

// Notification messages.
const (
	MsgMissingField   = "Task title or due date is missing"
	MsgAdded          = "Task added successfully!"
	MsgAddFailed      = "Error adding task"
	MsgUpdated        = "Task updated successfully!"
	MsgUpdateFailed   = "Error updating task"
	MsgDeleted        = "Task deleted successfully!"
	MsgDeleteFailed   = "Error deleting task"
	MsgAllUpdated     = "All tasks updated!"
	MsgCleared        = "Completed tasks cleared!"
	MsgLoadFailed     = "Error loading tasks"
	MsgAllSaved       = "All tasks saved!"
	msgSaveFailedTmpl = "Error saving %d of %d tasks"
)

// DefaultClearConcurrency bounds the parallel deletes issued by ClearCompleted
// and the parallel updates issued by SaveAll.
const DefaultClearConcurrency = 4

var (
	// ErrMissingField is returned by Add when the title or due date is empty.
	ErrMissingField = errors.New("task title or due date is missing")

	// ErrNoID is returned when a task that must be persisted carries no id.
	ErrNoID = errors.New("task has no id")

	// ErrTaskNotFound is returned when no local task has the given id.
	ErrTaskNotFound = errors.New("task not found")
)

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClearConcurrency bounds the number of in-flight requests issued by
// ClearCompleted and SaveAll. Values below 1 are ignored.
func WithClearConcurrency(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.clearLimit = n
		}
	}
}

// Board owns the ordered task list, the draft being composed and the
// mark-all flag. It is safe for concurrent use.
type Board struct {
	svc        service.Service
	sink       notify.Sink
	logger     *slog.Logger
	clearLimit int

	mu      sync.Mutex
	tasks   []service.Task
	draft   service.Task
	markAll bool

	inflight sync.WaitGroup
}

// New returns an empty Board backed by svc. Notifications go to sink;
// a nil sink discards them.
func New(svc service.Service, sink notify.Sink, opts ...Option) *Board {
	if sink == nil {
		sink = notify.Discard
	}
	b := &Board{
		svc:        svc,
		sink:       sink,
		logger:     logging.Discard(),
		clearLimit: DefaultClearConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load fetches the full list and replaces local state.
// On failure local state is left untouched.
func (b *Board) Load(ctx context.Context) error {
	logger := logging.WithOperation(b.logger, "board.load")
	start := time.Now()

	ctx, span := instrumentation.StartSpan(ctx, "board.load")
	defer span.End()

	tasks, err := b.svc.ListTasks(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		logger.Warn("load failed", logging.Err(err))
		b.sink.Notify(notify.NewError(MsgLoadFailed))
		return fmt.Errorf("load tasks: %w", err)
	}

	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()

	logger.Debug("loaded", slog.Int("count", len(tasks)), slog.Duration(logging.KeyDuration, time.Since(start)))
	return nil
}

// Tasks returns a copy of the local list in display order.
func (b *Board) Tasks() []service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Draft returns the task currently being composed.
func (b *Board) Draft() service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// SetDraft replaces the draft.
func (b *Board) SetDraft(title string, due service.Date) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = service.Task{Title: title, DueDate: due}
}

// MarkAll reports the state of the mark-all flag.
func (b *Board) MarkAll() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.markAll
}

// Add composes a draft from title and due and submits it.
// A blank title or zero due date fails validation without any request.
// On success the stored record is appended and the draft cleared;
// on failure the draft is kept so it can be resubmitted.
func (b *Board) Add(ctx context.Context, title string, due service.Date) (service.Task, error) {
	logger := logging.WithOperation(b.logger, "board.add")

	b.SetDraft(title, due)
	if strings.TrimSpace(title) == "" || due.IsZero() {
		b.sink.Notify(notify.NewError(MsgMissingField))
		return service.Task{}, ErrMissingField
	}

	created, err := b.svc.CreateTask(ctx, service.Task{Title: title, DueDate: due})
	if err == nil && !created.HasID() {
		err = ErrNoID
	}
	if err != nil {
		logger.Warn("create failed", logging.Err(err))
		b.sink.Notify(notify.NewError(MsgAddFailed))
		return service.Task{}, fmt.Errorf("add task: %w", err)
	}

	b.mu.Lock()
	b.tasks = append(b.tasks, created)
	b.draft = service.Task{}
	b.mu.Unlock()

	logger.Debug("created", logging.TaskID(created.ID))
	b.sink.Notify(notify.NewSuccess(MsgAdded))
	return created, nil
}

// Update sends task to the service. The local list is not changed.
func (b *Board) Update(ctx context.Context, task service.Task) error {
	logger := logging.WithOperation(b.logger, "board.update")

	if !task.HasID() {
		b.sink.Notify(notify.NewError(MsgUpdateFailed))
		return ErrNoID
	}
	if err := b.svc.UpdateTask(ctx, task); err != nil {
		logger.Warn("update failed", logging.TaskID(task.ID), logging.Err(err))
		b.sink.Notify(notify.NewError(MsgUpdateFailed))
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}

	logger.Debug("updated", logging.TaskID(task.ID))
	b.sink.Notify(notify.NewSuccess(MsgUpdated))
	return nil
}

// SetCompleted sets the completion flag of the local task with the given id
// and then sends it to the service. A failed update leaves the local change
// in place.
func (b *Board) SetCompleted(ctx context.Context, id int64, done bool) error {
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	b.tasks[idx].IsCompleted = done
	task := b.tasks[idx]
	b.mu.Unlock()

	return b.Update(ctx, task)
}

// Remove deletes task on the service and, on success, drops every local
// entry carrying its id. Other entries keep their order.
func (b *Board) Remove(ctx context.Context, task service.Task) error {
	logger := logging.WithOperation(b.logger, "board.remove")

	if !task.HasID() {
		b.sink.Notify(notify.NewError(MsgDeleteFailed))
		return ErrNoID
	}
	if err := b.svc.DeleteTask(ctx, task.ID); err != nil {
		logger.Warn("delete failed", logging.TaskID(task.ID), logging.Err(err))
		b.sink.Notify(notify.NewError(MsgDeleteFailed))
		return fmt.Errorf("delete task %d: %w", task.ID, err)
	}

	b.removeLocal(task.ID)
	logger.Debug("deleted", logging.TaskID(task.ID))
	b.sink.Notify(notify.NewSuccess(MsgDeleted))
	return nil
}

// ToggleAll sets every local task's completion flag to flag.
// No request is made; use SaveAll to persist the result.
func (b *Board) ToggleAll(flag bool) {
	b.mu.Lock()
	b.markAll = flag
	for i := range b.tasks {
		b.tasks[i].IsCompleted = flag
	}
	b.mu.Unlock()

	b.sink.Notify(notify.NewSuccess(MsgAllUpdated))
}

// SaveAll sends one update per local task and reports the aggregate outcome
// with a single notification.
func (b *Board) SaveAll(ctx context.Context) error {
	logger := logging.WithOperation(b.logger, "board.save_all")
	tasks := b.Tasks()

	ctx, span := instrumentation.StartSpan(ctx, "board.save_all", attribute.Int("tasks", len(tasks)))
	defer span.End()

	var (
		g      errgroup.Group
		failed atomic.Int32
		mu     sync.Mutex
		errs   []error
	)
	g.SetLimit(b.clearLimit)

	for _, t := range tasks {
		g.Go(func() error {
			if err := b.svc.UpdateTask(ctx, t); err != nil {
				failed.Add(1)
				logger.Warn("update failed", logging.TaskID(t.ID), logging.Err(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("update task %d: %w", t.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := int(failed.Load()); n > 0 {
		err := errors.Join(errs...)
		instrumentation.SetSpanError(span, err)
		b.sink.Notify(notify.NewError(fmt.Sprintf(msgSaveFailedTmpl, n, len(tasks))))
		return err
	}
	b.sink.Notify(notify.NewSuccess(MsgAllSaved))
	return nil
}

// ClearCompleted deletes every completed task in the background and returns
// the number of deletes dispatched. Each task leaves the local list when its
// own delete succeeds; failures are logged and the task stays.
//
// The cleared notification is sent immediately, before any delete completes.
// Call Wait to block until the deletes have finished.
func (b *Board) ClearCompleted(ctx context.Context) int {
	logger := logging.WithOperation(b.logger, "board.clear_completed")

	var completed []service.Task
	for _, t := range b.Tasks() {
		if t.IsCompleted {
			completed = append(completed, t)
		}
	}

	if len(completed) > 0 {
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()

			ctx, span := instrumentation.StartSpan(ctx, "board.clear_completed", attribute.Int("tasks", len(completed)))
			defer span.End()

			var g errgroup.Group
			g.SetLimit(b.clearLimit)
			for _, t := range completed {
				g.Go(func() error {
					if err := b.svc.DeleteTask(ctx, t.ID); err != nil {
						logger.Warn("delete failed", logging.TaskID(t.ID), logging.Err(err))
						return err
					}
					b.removeLocal(t.ID)
					logger.Debug("deleted", logging.TaskID(t.ID))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				instrumentation.SetSpanError(span, err)
				logger.Debug("clear finished with failures", logging.Err(err))
			}
		}()
	}

	b.sink.Notify(notify.NewSuccess(MsgCleared))
	return len(completed)
}

// Wait blocks until background work started by ClearCompleted has finished.
func (b *Board) Wait() {
	b.inflight.Wait()
}

// RemainingCount returns the number of local tasks not yet completed.
func (b *Board) RemainingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}

// indexOf returns the position of the first local task with id, or -1.
// Caller must hold b.mu.
func (b *Board) indexOf(id int64) int {
	for i, t := range b.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) removeLocal(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.tasks[:0]
	for _, t := range b.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
}
