// Package types defines the task and result model shared by the build engine
package types

import (
	"fmt"
	"strings"
)

// TaskName identifies one of the per-platform build pipelines
type TaskName string

const (
	TaskHost    TaskName = "host"
	TaskAndroid TaskName = "android"
	TaskIOS     TaskName = "ios"
)

// AllTasks lists every known task in canonical order
var AllTasks = []TaskName{TaskHost, TaskAndroid, TaskIOS}

// IsValid reports whether the task name is a known pipeline
func (t TaskName) IsValid() bool {
	switch t {
	case TaskHost, TaskAndroid, TaskIOS:
		return true
	}
	return false
}

func (t TaskName) String() string {
	return string(t)
}

// TaskStatus is the terminal outcome of one pipeline invocation
type TaskStatus string

const (
	StatusSuccess TaskStatus = "success"
	StatusFailed  TaskStatus = "failed"
	StatusSkipped TaskStatus = "skipped"
)

// TaskResult is created exactly once per pipeline invocation and is
// immutable after creation. Detail is a one-line human-readable summary;
// the full external-tool transcript lives at LogPath.
type TaskResult struct {
	Name    TaskName
	Status  TaskStatus
	Detail  string
	LogPath string
}

// Success creates a success result
func Success(name TaskName, detail, logPath string) TaskResult {
	return TaskResult{Name: name, Status: StatusSuccess, Detail: detail, LogPath: logPath}
}

// Failed creates a failed result
func Failed(name TaskName, detail, logPath string) TaskResult {
	return TaskResult{Name: name, Status: StatusFailed, Detail: detail, LogPath: logPath}
}

// Skipped creates a skipped result
func Skipped(name TaskName, detail, logPath string) TaskResult {
	return TaskResult{Name: name, Status: StatusSkipped, Detail: detail, LogPath: logPath}
}

// ParseTasks parses a comma-separated task selection, preserving the
// requested order. Unknown names are rejected rather than silently dropped.
func ParseTasks(spec string) ([]TaskName, error) {
	var tasks []TaskName
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := TaskName(part)
		if !name.IsValid() {
			return nil, fmt.Errorf("unknown task %q (valid: host, android, ios)", part)
		}
		tasks = append(tasks, name)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks were selected")
	}
	return tasks, nil
}
