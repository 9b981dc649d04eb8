// Package instrumentation wires OpenTelemetry metrics and tracing for calls
// made to the Task Service.
//
// Telemetry is off unless an exporter is selected. The only exporter besides
// "none" is "stdout", which writes to the configured writer (stderr by
// default) and is meant for debugging:
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:     "taskboard",
//		MetricsExporter: instrumentation.ExporterStdout,
//	})
//	defer provider.Shutdown(ctx)
package instrumentation

import (
	"fmt"
	"io"
)

// Exporter types.
const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: taskboard)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// MetricsExporter is "stdout" or "none" (default: "none")
	MetricsExporter string

	// TracingExporter is "stdout" or "none" (default: "none")
	TracingExporter string

	// Writer receives stdout exporter output. Defaults to os.Stderr.
	Writer io.Writer
}

// Enabled reports whether any exporter is active.
func (c Config) Enabled() bool {
	return (c.MetricsExporter != "" && c.MetricsExporter != ExporterNone) ||
		(c.TracingExporter != "" && c.TracingExporter != ExporterNone)
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !validExporter(c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: stdout, none", c.MetricsExporter)
	}
	if !validExporter(c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: stdout, none", c.TracingExporter)
	}
	return nil
}

func validExporter(s string) bool {
	switch s {
	case "", ExporterNone, ExporterStdout:
		return true
	default:
		return false
	}
}
