// Package cli parses the command line and dispatches to registered commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskboard/internal/backend/restapi"
	"taskboard/internal/commands"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/instrumentation"
	"taskboard/internal/service"
)

// telemetryShutdownTimeout bounds the final flush of telemetry exporters.
const telemetryShutdownTimeout = 5 * time.Second

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error)

// NewRESTFactory returns a factory that talks to the Task Service over HTTP.
// Client logs go to logOut.
func NewRESTFactory(logOut io.Writer) ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
		return restapi.New(cfg.BaseURL,
			restapi.WithTimeout(cfg.Timeout),
			restapi.WithLogger(cfg.Logger(logOut)),
			restapi.WithMetrics(tel.Metrics()),
		)
	}
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service
// factory. A nil factory selects the REST backend with logs on errOut.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// Flags require a command in front of them.
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	baseURL   string
	quiet     bool
	debug     bool
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // errors are reported below

	var common commonFlags
	fs.StringVar(&common.configDir, "config", "", "")
	fs.StringVar(&common.baseURL, "url", "", "")
	fs.BoolVar(&common.quiet, "quiet", false, "")
	fs.BoolVar(&common.debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagErrorMessage(err))
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := d.loadConfig(cmd, common, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: config error: %v\n", err)
		return exitcode.ConfigError
	}

	var svc service.Service
	if cmd.NeedsService() {
		tel, err := d.startTelemetry(ctx, cfg, errOut)
		if err != nil {
			fmt.Fprintf(errOut, "error: config error: %v\n", err)
			return exitcode.ConfigError
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				cfg.Logger(errOut).Warn("telemetry shutdown failed", "error", err)
			}
		}()

		factory := d.factory
		if factory == nil {
			factory = NewRESTFactory(errOut)
		}
		svc, err = factory(ctx, cfg, tel)
		if err != nil {
			if errors.Is(err, service.ErrUnavailable) {
				fmt.Fprintf(errOut, "error: backend error: %v\n", err)
				return exitcode.BackendError
			}
			fmt.Fprintf(errOut, "error: config error: %v\n", err)
			return exitcode.ConfigError
		}
	}

	return cmd.Run(ctx, cfg, svc, positionalArgs, out, errOut)
}

// loadConfig builds the settings for one run. Commands that never reach the
// Task Service still run on defaults when the stored settings are broken,
// so a bad file can be inspected or removed.
func (d *Dispatcher) loadConfig(cmd commands.Command, common commonFlags, errOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(common.configDir)
	if err != nil {
		if cmd.NeedsService() {
			return nil, err
		}
		fmt.Fprintf(errOut, "warning: ignoring stored settings: %v\n", err)
		if cfg, err = config.New(common.configDir); err != nil {
			return nil, err
		}
	}

	if common.baseURL != "" {
		cfg.BaseURL = common.baseURL
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	if cmd.NeedsService() {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (d *Dispatcher) startTelemetry(ctx context.Context, cfg *config.Config, errOut io.Writer) (*instrumentation.Provider, error) {
	ic := cfg.InstrumentationConfig()
	ic.ServiceVersion = commands.Version
	ic.Writer = errOut
	return instrumentation.NewProvider(ctx, ic)
}

// flagErrorMessage rewrites flag package errors into the CLI's wording.
func flagErrorMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "flag needs an argument:"):
		return "flag needs an argument: " + strings.TrimSpace(strings.TrimPrefix(msg, "flag needs an argument:"))
	case strings.HasPrefix(msg, "flag provided but not defined:"):
		return "unknown flag: " + strings.TrimSpace(strings.TrimPrefix(msg, "flag provided but not defined:"))
	default:
		return msg
	}
}
