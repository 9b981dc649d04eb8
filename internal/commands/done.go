package commands

import (
	"context"
	"flag"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/service"
)

func init() {
	Register(NewDoneCmd(true))
	Register(NewDoneCmd(false))
}

// DoneCmd implements the done and undo commands.
type DoneCmd struct {
	done bool
}

// NewDoneCmd returns the done command, or undo when done is false.
func NewDoneCmd(done bool) *DoneCmd {
	return &DoneCmd{done: done}
}

func (c *DoneCmd) Name() string {
	if c.done {
		return "done"
	}
	return "undo"
}

func (c *DoneCmd) Aliases() []string { return nil }

func (c *DoneCmd) Synopsis() string {
	if c.done {
		return "Mark tasks completed"
	}
	return "Mark tasks not completed"
}

func (c *DoneCmd) Usage() string      { return "taskboard " + c.Name() + " <n...>" }
func (c *DoneCmd) NeedsService() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	// Reject bad references before any request is made.
	if _, err := ParseTaskRefs(args); err != nil {
		return report(errOut, usagef("%v", err))
	}

	b := newBoard(cfg, svc, out, errOut)
	if err := b.Load(ctx); err != nil {
		return report(errOut, err)
	}
	if err := setCompleted(ctx, b, args, c.done); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}
