package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskboard help [command]" }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}

	cmd, ok := DefaultRegistry.Find(args[0])
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	fmt.Fprintf(out, "%s\n\n  %s\n", cmd.Usage(), cmd.Synopsis())
	if aliases := cmd.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(out, "\nAliases: %s\n", joinNames(aliases))
	}
	return exitcode.Success
}

const helpText = `Usage:
  taskboard                                   List all tasks
  taskboard list [common flags] [--open]      List tasks
  taskboard add [common flags] <due> <title...>
  taskboard done [common flags] <n...>
  taskboard undo [common flags] <n...>
  taskboard rm [common flags] <n...>
  taskboard markall [common flags] on|off
  taskboard clear [common flags]
  taskboard left [common flags]
  taskboard shell [common flags]
  taskboard init [common flags] [--force]
  taskboard reset [common flags]
  taskboard config [common flags]
  taskboard help [command]
  taskboard version

Due dates are written as YYYY-MM-DD. Tasks are referenced by the number
shown in the list.

Common flags:
  --config <dir>   Override config directory
  --url <url>      Override the Task Service base URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
