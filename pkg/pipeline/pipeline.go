// Package pipeline implements the per-platform build pipelines. Each
// pipeline owns one task log, drives external toolchains through the
// command runner, and always reduces to a single TaskResult.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// Pipeline is one platform's build-and-launch sequence.
type Pipeline interface {
	Name() types.TaskName
	Run(ctx context.Context) types.TaskResult
}

// Guarded wraps a pipeline so that a panic inside it becomes a failed
// TaskResult instead of taking down sibling pipelines.
type Guarded struct {
	inner Pipeline
	log   logger.Logger
}

// Guard wraps a pipeline with panic recovery.
func Guard(p Pipeline, log logger.Logger) *Guarded {
	return &Guarded{inner: p, log: log}
}

func (g *Guarded) Name() types.TaskName { return g.inner.Name() }

func (g *Guarded) Run(ctx context.Context) (result types.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("pipeline panicked",
				logger.WithField("task", string(g.inner.Name())),
				logger.WithField("panic", fmt.Sprint(r)))
			result = types.Failed(g.inner.Name(), fmt.Sprintf("internal error: %v", r), "")
		}
	}()
	return g.inner.Run(ctx)
}

// resetTaskLog truncates the task log so each run starts a fresh record,
// creating the logs directory on first use and stamping the run id.
func resetTaskLog(logPath, runID string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if runID != "" {
		fmt.Fprintf(f, "# run: %s\n", runID)
	}
	return f.Close()
}

// cleanPath removes a build tree and notes the removal in the task log.
func cleanPath(path, logPath string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return appendLogLine(logPath, fmt.Sprintf("# clean path: %s", path))
}

func appendLogLine(logPath, line string) error {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}
