// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"taskboard/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int64

	// Error injection for testing
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// UpdateErrs and DeleteErrs fail calls for specific ids.
	UpdateErrs map[int64]error
	DeleteErrs map[int64]error

	// CreateFailures fails that many upcoming CreateTask calls with
	// service.ErrUnavailable; later calls succeed.
	CreateFailures int

	// OmitCreatedID makes CreateTask return a record without an id.
	OmitCreatedID bool

	// Call counters
	ListCalls   int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int

	// Updated records every task passed to UpdateTask, in call order.
	Updated []service.Task
	// Deleted records every id passed to DeleteTask, in call order.
	Deleted []int64
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:     1,
		UpdateErrs: make(map[int64]error),
		DeleteErrs: make(map[int64]error),
	}
}

// AddTask seeds a task and returns it with its assigned id.
func (f *FakeService) AddTask(title string, due service.Date, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{ID: f.nextID, Title: title, DueDate: due, IsCompleted: completed}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// Seed stores tasks verbatim, ids included.
func (f *FakeService) Seed(tasks ...service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.tasks = append(f.tasks, t)
		if t.ID >= f.nextID {
			f.nextID = t.ID + 1
		}
	}
}

// Stored returns a copy of the server-side tasks.
func (f *FakeService) Stored() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// TotalCalls returns the number of calls across all methods.
func (f *FakeService) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ListCalls + f.CreateCalls + f.UpdateCalls + f.DeleteCalls
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.Task) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	if f.CreateFailures > 0 {
		f.CreateFailures--
		return service.Task{}, service.ErrUnavailable
	}
	task.ID = f.nextID
	f.nextID++
	f.tasks = append(f.tasks, task)
	if f.OmitCreatedID {
		task.ID = 0
	}
	return task, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, task service.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	f.Updated = append(f.Updated, task)
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	if err, ok := f.UpdateErrs[task.ID]; ok && err != nil {
		return err
	}
	for i, t := range f.tasks {
		if t.ID == task.ID {
			f.tasks[i] = task
			return nil
		}
	}
	return service.ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	f.Deleted = append(f.Deleted, id)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if err, ok := f.DeleteErrs[id]; ok && err != nil {
		return err
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}
