package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"taskboard/internal/cli"
	"taskboard/internal/commands"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/instrumentation"
	"taskboard/internal/service"
	"taskboard/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
		return svc, nil
	}
}

// clearEnv blanks every setting variable so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvBaseURL, config.EnvTimeout, config.EnvLogLevel, config.EnvLogFormat,
		config.EnvClearConcurrency, config.EnvMetricsExporter, config.EnvTracingExporter,
	} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "unknowncmd")

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unknown command: unknowncmd\n", stderr)
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "--quiet")

	assert.Equal(t, exitcode.UserError, code)
	assert.Equal(t, "error: unknown command: --quiet\n", stderr)
}

func TestDispatcher_HelpCommand(t *testing.T) {
	clearEnv(t)
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(t, d, "help", "--config", t.TempDir())

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Usage:")
}

func TestDispatcher_VersionCommand(t *testing.T) {
	clearEnv(t)
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(t, d, "version", "--config", t.TempDir())

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "taskboard 0.1.0\n", stdout)
}

func TestDispatcher_FlagErrors(t *testing.T) {
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"help", "--unknown"}, "error: unknown flag: -unknown\n"},
		{"missing value", []string{"help", "--config"}, "error: flag needs an argument: -config\n"},
		{"lone dash after flags", []string{"list", "--", "-x"}, "error: unknown flag: -x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := run(t, d, tt.args...)
			assert.Equal(t, exitcode.UserError, code)
			assert.Equal(t, tt.want, stderr)
		})
	}
}

func TestDispatcher_NoArgsLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk", service.NewDate(2025, time.March, 1), false)
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	stdout, stderr, code := run(t, d)

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "   1  [ ] 2025-03-01  Buy milk\n1 item left\n", stdout)
}

func TestDispatcher_URLFlagOverridesSettings(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("base_url: http://from-file:1\n"), 0600))

	var got *config.Config
	factory := func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
		got = cfg
		return testutil.NewFakeService(), nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, _, code := run(t, d, "left", "--config", dir, "--url", "http://from-flag:2", "--quiet", "--debug")

	assert.Equal(t, exitcode.Success, code)
	require.NotNil(t, got)
	assert.Equal(t, "http://from-flag:2", got.BaseURL)
	assert.True(t, got.Quiet)
	assert.True(t, got.Debug)
	assert.Equal(t, dir, got.Dir)
}

func TestDispatcher_InvalidURL(t *testing.T) {
	clearEnv(t)
	called := false
	factory := func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
		called = true
		return nil, nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, stderr, code := run(t, d, "list", "--config", t.TempDir(), "--url", "ftp://tasks")

	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, stderr, "error: config error:")
	assert.False(t, called)
}

func TestDispatcher_BrokenSettingsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("timeout: soon\n"), 0600))
	d := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(t, d, "list", "--config", dir)
	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, stderr, "error: config error:")

	// reset still works so the file can be removed.
	stdout, stderr, code := run(t, d, "reset", "--config", dir)
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stderr, "warning: ignoring stored settings")
	assert.Equal(t, "ok\n", stdout)
	assert.NoFileExists(t, filepath.Join(dir, config.ConfigFile))
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"config", errors.New("bad base url"), exitcode.ConfigError, "error: config error: bad base url\n"},
		{"backend", fmt.Errorf("dial: %w", service.ErrUnavailable), exitcode.BackendError, "error: backend error: dial: service unavailable\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
				return nil, tt.err
			}
			d := cli.NewDispatcher(commands.DefaultRegistry, factory)

			_, stderr, code := run(t, d, "list", "--config", t.TempDir())

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, stderr)
		})
	}
}

func TestDispatcher_ServiceNotBuiltForLocalCommands(t *testing.T) {
	clearEnv(t)
	factory := func(ctx context.Context, cfg *config.Config, tel *instrumentation.Provider) (service.Service, error) {
		t.Fatal("factory must not be called")
		return nil, nil
	}
	d := cli.NewDispatcher(commands.DefaultRegistry, factory)

	for _, name := range []string{"help", "version", "config", "reset"} {
		_, _, code := run(t, d, name, "--config", t.TempDir(), "--quiet")
		assert.Equal(t, exitcode.Success, code, name)
	}
}

func TestDispatcher_RESTBackendWithTelemetry(t *testing.T) {
	clearEnv(t)
	mp, tp := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tasks" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":7,"title":"Buy milk","dueDate":"2025-03-01T00:00:00","isCompleted":true}]`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("telemetry:\n  metrics: stdout\n"), 0600))

	d := cli.NewDispatcher(commands.DefaultRegistry, nil)
	stdout, stderr, code := run(t, d, "list", "--config", dir, "--url", srv.URL)

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "   1  [x] 2025-03-01  Buy milk\n0 items left\n", stdout)
	assert.Contains(t, stderr, "task_api_operations_total")
}
