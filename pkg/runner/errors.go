package runner

import "fmt"

// CommandError reports an external command that exited non-zero when
// failure-checking was requested, or failed to start at all. It carries
// the reconstructed shell-safe command line so log readers can replay it.
type CommandError struct {
	Command  string
	ExitCode int
	Cause    error
}

func (e *CommandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("command failed (%v): %s", e.Cause, e.Command)
	}
	return fmt.Sprintf("command failed (%d): %s", e.ExitCode, e.Command)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}
