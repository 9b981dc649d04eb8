// Package config handles the XDG configuration directory, the config file,
// .env files and environment overrides.
//
// Precedence, lowest first: built-in defaults, config.yaml, .env files,
// real environment, command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"taskboard/internal/instrumentation"
	"taskboard/internal/logging"
)

const (
	// AppName is the application directory name.
	AppName = "taskboard"

	// ConfigFile is the YAML settings filename inside Dir.
	ConfigFile = "config.yaml"

	// EnvFile is the dotenv filename looked up in the working directory and Dir.
	EnvFile = ".env"

	// DefaultBaseURL is the Task Service address used when nothing else is set.
	DefaultBaseURL = "http://localhost:5098"

	// DefaultTimeout bounds each Task Service call.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel hides the warnings that duplicate user-facing
	// notifications.
	DefaultLogLevel = "error"

	// DefaultClearConcurrency bounds parallel deletes and updates.
	DefaultClearConcurrency = 4
)

// Environment variables.
const (
	EnvBaseURL          = "TASKBOARD_BASE_URL"
	EnvTimeout          = "TASKBOARD_TIMEOUT"
	EnvLogLevel         = "TASKBOARD_LOG_LEVEL"
	EnvLogFormat        = "TASKBOARD_LOG_FORMAT"
	EnvClearConcurrency = "TASKBOARD_CLEAR_CONCURRENCY"
	EnvMetricsExporter  = "TASKBOARD_METRICS_EXPORTER"
	EnvTracingExporter  = "TASKBOARD_TRACING_EXPORTER"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// BaseURL is the Task Service base URL.
	BaseURL string

	// Timeout bounds each Task Service call.
	Timeout time.Duration

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is text or json.
	LogFormat string

	// ClearConcurrency bounds parallel requests for bulk operations.
	ClearConcurrency int

	// Telemetry selects the OpenTelemetry exporters.
	Telemetry Telemetry
}

// Telemetry selects the OpenTelemetry exporters ("none" or "stdout").
type Telemetry struct {
	Metrics string `yaml:"metrics"`
	Tracing string `yaml:"tracing"`
}

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	BaseURL          string    `yaml:"base_url"`
	Timeout          string    `yaml:"timeout"`
	LogLevel         string    `yaml:"log_level"`
	LogFormat        string    `yaml:"log_format"`
	ClearConcurrency int       `yaml:"clear_concurrency"`
	Telemetry        Telemetry `yaml:"telemetry"`
}

// New creates a Config holding defaults for the given config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskboard or $HOME/.config/taskboard.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:              dir,
		BaseURL:          DefaultBaseURL,
		Timeout:          DefaultTimeout,
		LogLevel:         DefaultLogLevel,
		LogFormat:        logging.FormatText,
		ClearConcurrency: DefaultClearConcurrency,
		Telemetry: Telemetry{
			Metrics: instrumentation.ExporterNone,
			Tracing: instrumentation.ExporterNone,
		},
	}, nil
}

// Load builds a Config from defaults, config.yaml in the config directory,
// .env files and the environment. It does not validate the result.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	env, err := readEnvFiles(EnvFile, cfg.EnvPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookupWith(env)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// EnvPath returns the path to the .env file inside the config directory.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasConfigFile checks if config.yaml exists.
func (c *Config) HasConfigFile() bool {
	_, err := os.Stat(c.ConfigPath())
	return err == nil
}

// RemoveFile deletes config.yaml.
func (c *Config) RemoveFile() error {
	return os.Remove(c.ConfigPath())
}

// WriteFile writes the current settings to config.yaml, creating the
// directory if needed.
func (c *Config) WriteFile() error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(fileConfig{
		BaseURL:          c.BaseURL,
		Timeout:          c.Timeout.String(),
		LogLevel:         c.LogLevel,
		LogFormat:        c.LogFormat,
		ClearConcurrency: c.ClearConcurrency,
		Telemetry:        c.Telemetry,
	})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, 0600)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.ClearConcurrency < 1 {
		return fmt.Errorf("clear_concurrency must be at least 1, got %d", c.ClearConcurrency)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return c.InstrumentationConfig().Validate()
}

// Logger returns a logger writing to w. Debug forces the debug level;
// an unparsable LogLevel falls back to info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := logging.ParseLevel(c.LogLevel)
	if c.Debug {
		level = slog.LevelDebug
	}
	return logging.New(w, level, c.LogFormat)
}

// InstrumentationConfig returns the telemetry settings for the
// instrumentation package.
func (c *Config) InstrumentationConfig() instrumentation.Config {
	return instrumentation.Config{
		ServiceName:     AppName,
		MetricsExporter: c.Telemetry.Metrics,
		TracingExporter: c.Telemetry.Tracing,
	}
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", c.ConfigPath(), err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", c.ConfigPath(), err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse %s: invalid timeout %q: %w", c.ConfigPath(), fc.Timeout, err)
		}
		c.Timeout = d
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.ClearConcurrency != 0 {
		c.ClearConcurrency = fc.ClearConcurrency
	}
	if fc.Telemetry.Metrics != "" {
		c.Telemetry.Metrics = fc.Telemetry.Metrics
	}
	if fc.Telemetry.Tracing != "" {
		c.Telemetry.Tracing = fc.Telemetry.Tracing
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	if v := lookup(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := lookup(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", EnvTimeout, v)
		}
		c.Timeout = d
	}
	if v := lookup(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := lookup(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := lookup(EnvClearConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvClearConcurrency, v)
		}
		c.ClearConcurrency = n
	}
	if v := lookup(EnvMetricsExporter); v != "" {
		c.Telemetry.Metrics = v
	}
	if v := lookup(EnvTracingExporter); v != "" {
		c.Telemetry.Tracing = v
	}
	return nil
}

// readEnvFiles merges dotenv files; earlier files win. Missing files are skipped.
func readEnvFiles(paths ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		for k, v := range vals {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// lookupWith resolves a key from the real environment first, then dotenv.
func lookupWith(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return nil
}
