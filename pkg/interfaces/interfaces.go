// Package interfaces defines the seams between the engine's components
package interfaces

import (
	"context"

	"github.com/iisacc-Justmoong/WhatSon/pkg/runner"
)

// CommandRunner abstracts external command execution so the device,
// install and pipeline logic can be exercised without spawning processes.
type CommandRunner interface {
	// Run executes a command with its output appended to the task log.
	Run(ctx context.Context, cmd runner.Command) (int, error)

	// Capture executes a command and returns its exit code and output
	// without logging; it never fails the caller.
	Capture(ctx context.Context, args []string, dir string, env map[string]string) runner.Capture

	// StartDetached launches a background process that outlives this
	// invocation and returns its pid.
	StartDetached(args []string, dir string, logPath string) (int, error)
}
