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
	Register(&ConfigCmd{})
}

// ConfigCmd implements the config command.
type ConfigCmd struct{}

func (c *ConfigCmd) Name() string       { return "config" }
func (c *ConfigCmd) Aliases() []string  { return nil }
func (c *ConfigCmd) Synopsis() string   { return "Print the effective settings" }
func (c *ConfigCmd) Usage() string      { return "taskboard config [common flags]" }
func (c *ConfigCmd) NeedsService() bool { return false }

func (c *ConfigCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ConfigCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	file := cfg.ConfigPath()
	if !cfg.HasConfigFile() {
		file += " (not present)"
	}

	settings := []struct{ key, value string }{
		{"config_dir", cfg.Dir},
		{"config_file", file},
		{"base_url", cfg.BaseURL},
		{"timeout", cfg.Timeout.String()},
		{"log_level", cfg.LogLevel},
		{"log_format", cfg.LogFormat},
		{"clear_concurrency", fmt.Sprint(cfg.ClearConcurrency)},
		{"metrics_exporter", cfg.Telemetry.Metrics},
		{"tracing_exporter", cfg.Telemetry.Tracing},
	}
	for _, s := range settings {
		fmt.Fprintf(out, "%-18s %s\n", s.key+":", s.value)
	}
	return exitcode.Success
}
