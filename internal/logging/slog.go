// Package logging provides structured logging helpers built on log/slog.
//
// Attribute keys are centralized here so the board, the REST backend and the
// CLI log the same names for the same things:
//
//	logger := logging.WithOperation(slog.Default(), "board.remove")
//	logger.Warn("delete failed", logging.TaskID(id), logging.Err(err))
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyTaskID    = "task_id"
	KeyRequestID = "request_id"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyTraceID   = "trace_id"
	KeyError     = "error"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w at the given level.
// format is "text" (default) or "json".
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// TaskID returns a slog attribute for a task identifier.
func TaskID(id int64) slog.Attr {
	return slog.Int64(KeyTaskID, id)
}

// RequestID returns a slog attribute for an outgoing request id.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// TraceID returns a slog attribute for a trace id.
// An empty id yields an empty group, which slog omits.
func TraceID(id string) slog.Attr {
	if id == "" {
		return slog.Group("")
	}
	return slog.String(KeyTraceID, id)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
