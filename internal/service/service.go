// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"
)

// Service defines the interface for Task Service operations.
// All HTTP calls go through this interface.
// The board never imports a transport directly.
type Service interface {
	// ListTasks returns every task in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask submits a task without an id.
	// Returns the stored record carrying the server-assigned id.
	CreateTask(ctx context.Context, task Task) (Task, error)

	// UpdateTask replaces the record keyed by task.ID.
	UpdateTask(ctx context.Context, task Task) error

	// DeleteTask deletes the record with the given id.
	DeleteTask(ctx context.Context, id int64) error
}

var (
	// ErrNotFound is returned when the server has no task with the given id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when the server rejects a payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned for transport failures and 5xx responses.
	ErrUnavailable = errors.New("service unavailable")
)
