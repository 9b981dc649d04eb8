package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&ListCmd{})
	Register(&LeftCmd{})
}

// ListCmd implements the list command.
// Handles both `taskboard` (no args) and `taskboard list`.
type ListCmd struct {
	open bool
}

// SetOpenOnly hides completed tasks (for testing).
func (c *ListCmd) SetOpenOnly(open bool) {
	c.open = open
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List tasks" }
func (c *ListCmd) Usage() string      { return "taskboard list [--open]" }
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.open, "open", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	b := newBoard(cfg, svc, out, errOut)
	if err := b.Load(ctx); err != nil {
		return report(errOut, err)
	}

	tasks := b.Tasks()
	if !c.open || len(tasks) == 0 {
		output.FormatBoard(out, tasks, b.RemainingCount(), cfg.Quiet)
		return exitcode.Success
	}

	// Keep the full-list numbers so they still work as task references.
	for i, t := range tasks {
		if !t.IsCompleted {
			output.FormatTask(out, i+1, t)
		}
	}
	output.FormatRemaining(out, b.RemainingCount())
	return exitcode.Success
}

// LeftCmd prints the number of incomplete tasks.
type LeftCmd struct{}

func (c *LeftCmd) Name() string       { return "left" }
func (c *LeftCmd) Aliases() []string  { return nil }
func (c *LeftCmd) Synopsis() string   { return "Print the number of incomplete tasks" }
func (c *LeftCmd) Usage() string      { return "taskboard left" }
func (c *LeftCmd) NeedsService() bool { return true }

func (c *LeftCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LeftCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	b := newBoard(cfg, svc, out, errOut)
	if err := b.Load(ctx); err != nil {
		return report(errOut, err)
	}
	output.FormatRemaining(out, b.RemainingCount())
	return exitcode.Success
}
