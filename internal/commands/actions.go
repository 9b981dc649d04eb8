package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/notify"
	"taskboard/internal/service"
)

// usageError is a bad-argument error. Unlike board errors it has not been
// shown to the user yet.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// newBoard builds a board that prints notifications to out and errOut.
func newBoard(cfg *config.Config, svc service.Service, out, errOut io.Writer) *board.Board {
	return board.New(svc, notify.NewWriter(out, errOut, cfg.Quiet),
		board.WithLogger(cfg.Logger(errOut)),
		board.WithClearConcurrency(cfg.ClearConcurrency),
	)
}

// report prints err if the board has not already notified about it and
// returns the matching exit code.
func report(errOut io.Writer, err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(errOut, "error: %s\n", ue.msg)
	}
	return exitCodeFor(err)
}

// exitCodeFor maps an error to an exit code.
func exitCodeFor(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &ue),
		errors.Is(err, board.ErrMissingField),
		errors.Is(err, board.ErrTaskNotFound),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNotFound):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// parseAddArgs splits "add" arguments into a title and due date.
// A lone argument that is not a date is taken as a title with no due date,
// which the board then rejects as incomplete.
func parseAddArgs(args []string) (string, service.Date, error) {
	if len(args) == 0 {
		return "", service.Date{}, nil
	}
	due, err := service.ParseDate(args[0])
	if err != nil {
		if len(args) == 1 {
			return args[0], service.Date{}, nil
		}
		return "", service.Date{}, usagef("%v", err)
	}
	return strings.Join(args[1:], " "), due, nil
}

func addTask(ctx context.Context, b *board.Board, args []string) error {
	title, due, err := parseAddArgs(args)
	if err != nil {
		return err
	}
	_, err = b.Add(ctx, title, due)
	return err
}

// refTasks resolves task numbers against the board's current list.
func refTasks(b *board.Board, args []string) ([]service.Task, error) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return nil, usagef("%v", err)
	}
	tasks, err := ResolveTaskRefs(b.Tasks(), refs)
	if err != nil {
		return nil, usagef("%v", err)
	}
	return tasks, nil
}

func setCompleted(ctx context.Context, b *board.Board, args []string, done bool) error {
	tasks, err := refTasks(b, args)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range tasks {
		if err := b.SetCompleted(ctx, t.ID, done); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func removeTasks(ctx context.Context, b *board.Board, args []string) error {
	tasks, err := refTasks(b, args)
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range tasks {
		if err := b.Remove(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parseOnOff parses the markall argument.
func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, usagef("expected on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, usagef("expected on or off, got %q", args[0])
	}
}
