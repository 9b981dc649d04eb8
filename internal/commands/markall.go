package commands

import (
	"context"
	"flag"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&MarkAllCmd{})
	Register(&ClearCmd{})
}

// MarkAllCmd implements the markall command.
// A one-shot run has no session to keep local state in, so the toggle is
// saved straight away.
type MarkAllCmd struct{}

func (c *MarkAllCmd) Name() string       { return "markall" }
func (c *MarkAllCmd) Aliases() []string  { return nil }
func (c *MarkAllCmd) Synopsis() string   { return "Mark every task completed or not completed" }
func (c *MarkAllCmd) Usage() string      { return "taskboard markall on|off" }
func (c *MarkAllCmd) NeedsService() bool { return true }

func (c *MarkAllCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MarkAllCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	on, err := parseOnOff(args)
	if err != nil {
		return report(errOut, err)
	}

	b := newBoard(cfg, svc, out, errOut)
	if err := b.Load(ctx); err != nil {
		return report(errOut, err)
	}
	b.ToggleAll(on)
	if err := b.SaveAll(ctx); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}

// ClearCmd implements the clear command.
type ClearCmd struct{}

func (c *ClearCmd) Name() string       { return "clear" }
func (c *ClearCmd) Aliases() []string  { return nil }
func (c *ClearCmd) Synopsis() string   { return "Delete every completed task" }
func (c *ClearCmd) Usage() string      { return "taskboard clear" }
func (c *ClearCmd) NeedsService() bool { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	b := newBoard(cfg, svc, out, errOut)
	if err := b.Load(ctx); err != nil {
		return report(errOut, err)
	}

	dispatched := b.ClearCompleted(ctx)
	b.Wait()

	code := exitcode.Success
	remaining := b.Tasks()
	for _, t := range remaining {
		if t.IsCompleted {
			// A completed task survived: its delete failed.
			code = exitcode.BackendError
			break
		}
	}
	cfg.Logger(errOut).Debug("clear finished", "dispatched", dispatched, "remaining", len(remaining))

	output.FormatBoard(out, remaining, b.RemainingCount(), cfg.Quiet)
	return code
}
