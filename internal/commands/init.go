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
	Register(&InitCmd{})
}

// InitCmd implements the init command.
// It writes the effective settings to config.yaml so later runs pick them up.
type InitCmd struct {
	force bool
}

func (c *InitCmd) Name() string       { return "init" }
func (c *InitCmd) Aliases() []string  { return nil }
func (c *InitCmd) Synopsis() string   { return "Write config.yaml with the current settings" }
func (c *InitCmd) Usage() string      { return "taskboard init [common flags] [--force]" }
func (c *InitCmd) NeedsService() bool { return false }

func (c *InitCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "overwrite an existing config file")
}

// SetForce sets the force flag (for testing).
func (c *InitCmd) SetForce(force bool) {
	c.force = force
}

func (c *InitCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if cfg.HasConfigFile() && !c.force {
		if !cfg.Quiet {
			fmt.Fprintf(out, "config file already exists: %s (use --force to overwrite)\n", cfg.ConfigPath())
		}
		return exitcode.Success
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.ConfigError
	}

	if err := cfg.WriteFile(); err != nil {
		fmt.Fprintf(errOut, "error: failed to write config: %v\n", err)
		return exitcode.ConfigError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "wrote %s\n", cfg.ConfigPath())
	}
	return exitcode.Success
}
