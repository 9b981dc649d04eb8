// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, unknown task number).
	UserError = 1

	// ConfigError indicates an invalid or unreadable configuration.
	ConfigError = 2

	// BackendError indicates a Task Service or network error.
	BackendError = 3
)
