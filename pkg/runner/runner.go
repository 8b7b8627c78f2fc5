// Package runner executes external toolchain commands with per-task logging
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
)

// Command describes one external command invocation.
type Command struct {
	// Args is the argv vector; Args[0] is the binary.
	Args []string
	// Dir is the working directory; the runner's root when empty.
	Dir string
	// Env holds overrides merged over the current process environment.
	Env map[string]string
	// LogPath is the append-only task log receiving the command line,
	// merged output and exit code.
	LogPath string
	// Check makes a non-zero exit an error.
	Check bool
}

// Capture holds the outcome of an output-capturing invocation.
// It is a plain value: callers inspect ExitCode and the streams and
// decide for themselves; a capture never fails its caller.
type Capture struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the command ran and exited zero.
func (c Capture) OK() bool {
	return c.ExitCode == 0
}

// Runner invokes external commands for the build pipelines.
type Runner struct {
	root string
	log  logger.Logger
}

// New creates a Runner whose commands default to running under root.
func New(root string, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{root: root, log: log}
}

// Run executes the command, streaming merged stdout/stderr into the task
// log. The log records the shell-quoted command line, the working directory
// and the exit code, and is preserved regardless of outcome. When
// cmd.Check is set a non-zero exit returns a *CommandError.
func (r *Runner) Run(ctx context.Context, cmd Command) (int, error) {
	if len(cmd.Args) == 0 {
		return -1, fmt.Errorf("empty command")
	}
	dir := cmd.Dir
	if dir == "" {
		dir = r.root
	}

	logFile, err := openLog(cmd.LogPath)
	if err != nil {
		return -1, err
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "$ %s\n", QuoteCommand(cmd.Args))
	fmt.Fprintf(logFile, "# cwd: %s\n", dir)

	proc := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	proc.Dir = dir
	proc.Env = mergeEnv(cmd.Env)
	proc.Stdout = logFile
	proc.Stderr = logFile

	runErr := proc.Run()
	code := exitCode(runErr)
	fmt.Fprintf(logFile, "[exit] %d\n\n", code)

	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			// The command never ran (binary missing, context cancelled).
			return code, &CommandError{Command: QuoteCommand(cmd.Args), ExitCode: code, Cause: runErr}
		}
	}
	if cmd.Check && code != 0 {
		return code, &CommandError{Command: QuoteCommand(cmd.Args), ExitCode: code}
	}
	return code, nil
}

// Capture executes the command and returns its exit code and separated
// output streams without touching any log file. Used for decisions that
// must inspect output ("is a device connected?"); it never raises.
func (r *Runner) Capture(ctx context.Context, args []string, dir string, env map[string]string) Capture {
	if len(args) == 0 {
		return Capture{ExitCode: -1}
	}
	if dir == "" {
		dir = r.root
	}

	proc := exec.CommandContext(ctx, args[0], args[1:]...)
	proc.Dir = dir
	proc.Env = mergeEnv(env)

	var stdout, stderr strings.Builder
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	return Capture{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
}

// StartDetached launches the command as a background process that outlives
// this invocation (its own session on unix, detached process group on
// Windows). Output is appended to logPath; the new pid is returned.
func (r *Runner) StartDetached(args []string, dir string, logPath string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("empty command")
	}
	if dir == "" {
		dir = r.root
	}

	logFile, err := openLog(logPath)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "$ %s\n", QuoteCommand(args))

	proc := exec.Command(args[0], args[1:]...)
	proc.Dir = dir
	proc.Stdout = logFile
	proc.Stderr = logFile
	proc.SysProcAttr = detachAttr()

	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	pid := proc.Process.Pid
	fmt.Fprintf(logFile, "# pid=%d\n", pid)
	r.log.Debug("Started detached process",
		logger.WithField("command", args[0]),
		logger.WithField("pid", pid))

	// Reap the child if it exits while we are still around.
	go proc.Wait() //nolint:errcheck

	return pid, nil
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("no log path configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func mergeEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil // inherit as-is
	}
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

var safeArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote returns the argument in POSIX shell-safe form.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if safeArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// QuoteCommand reconstructs a shell-safe command line from argv.
func QuoteCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}
