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
	Register(&ResetCmd{})
}

// ResetCmd implements the reset command.
type ResetCmd struct{}

func (c *ResetCmd) Name() string       { return "reset" }
func (c *ResetCmd) Aliases() []string  { return nil }
func (c *ResetCmd) Synopsis() string   { return "Remove config.yaml" }
func (c *ResetCmd) Usage() string      { return "taskboard reset [common flags]" }
func (c *ResetCmd) NeedsService() bool { return false }

func (c *ResetCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ResetCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasConfigFile() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no config file")
		}
		return exitcode.Success
	}

	if err := cfg.RemoveFile(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove config: %v\n", err)
		return exitcode.ConfigError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
