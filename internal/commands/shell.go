package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

const shellPrompt = "taskboard> "

func init() {
	Register(&ShellCmd{})
}

// ShellCmd runs an interactive session. One board lives for the whole
// session, so markall stays local until save.
type ShellCmd struct {
	in io.Reader
}

// SetInput sets the command source (for testing). Defaults to stdin.
func (c *ShellCmd) SetInput(r io.Reader) {
	c.in = r
}

func (c *ShellCmd) Name() string       { return "shell" }
func (c *ShellCmd) Aliases() []string  { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string   { return "Start an interactive session" }
func (c *ShellCmd) Usage() string      { return "taskboard shell" }
func (c *ShellCmd) NeedsService() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	in := c.in
	if in == nil {
		in = os.Stdin
	}

	b := newBoard(cfg, svc, out, errOut)
	defer b.Wait()

	// A failed load has already been reported; the session goes on empty.
	_ = b.Load(ctx)

	prompt := func() {
		if !cfg.Quiet {
			fmt.Fprint(out, shellPrompt)
		}
	}

	sc := bufio.NewScanner(in)
	prompt()
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && execShell(ctx, cfg, b, fields, out, errOut) {
			break
		}
		prompt()
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(errOut, "error: read input: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// execShell runs one session line. It returns true when the session ends.
func execShell(ctx context.Context, cfg *config.Config, b *board.Board, fields []string, out, errOut io.Writer) bool {
	name, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprint(out, shellHelp)
	case "list", "ls":
		output.FormatBoard(out, b.Tasks(), b.RemainingCount(), cfg.Quiet)
	case "left":
		output.FormatRemaining(out, b.RemainingCount())
	case "reload":
		err = b.Load(ctx)
	case "add":
		err = addTask(ctx, b, args)
	case "retry":
		d := b.Draft()
		_, err = b.Add(ctx, d.Title, d.DueDate)
	case "draft":
		d := b.Draft()
		if d.Title == "" && d.DueDate.IsZero() {
			fmt.Fprintln(out, "no draft")
		} else {
			fmt.Fprintf(out, "%s %s\n", d.DueDate, d.Title)
		}
	case "done", "undo":
		err = setCompleted(ctx, b, args, name == "done")
	case "rm":
		err = removeTasks(ctx, b, args)
	case "markall":
		var on bool
		if on, err = parseOnOff(args); err == nil {
			b.ToggleAll(on)
		}
	case "save":
		err = b.SaveAll(ctx)
	case "clear":
		b.ClearCompleted(ctx)
	default:
		err = usagef("unknown command: %s (try help)", name)
	}

	if err != nil {
		report(errOut, err)
	}
	return false
}

const shellHelp = `Commands:
  list                     Show tasks
  left                     Show the number of incomplete tasks
  add <due> <title...>     Create a task (due as YYYY-MM-DD)
  draft                    Show the task being composed
  retry                    Resubmit the task being composed
  done <n...>              Mark tasks completed
  undo <n...>              Mark tasks not completed
  rm <n...>                Delete tasks
  markall on|off           Mark every task locally (run save to persist)
  save                     Send every task to the server
  clear                    Delete completed tasks in the background
  reload                   Fetch the list again
  help                     Show this help
  quit                     End the session
`
