package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/pipeline"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// fakePipeline returns a canned result after an optional delay; panicky
// ones blow up instead.
type fakePipeline struct {
	name   types.TaskName
	result types.TaskResult
	delay  time.Duration
	panics bool
}

func (p *fakePipeline) Name() types.TaskName { return p.name }

func (p *fakePipeline) Run(context.Context) types.TaskResult {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics {
		panic("pipeline exploded")
	}
	return p.result
}

func TestSchedulerEmptySelection(t *testing.T) {
	s := NewScheduler(logger.NopLogger{}, false)
	_, err := s.Run(context.Background(), nil)
	if !errors.Is(err, ErrNoPipelines) {
		t.Fatalf("err = %v, want ErrNoPipelines", err)
	}
}

func TestSchedulerPreservesOrder(t *testing.T) {
	// The slowest pipeline comes first so concurrent completion order
	// differs from request order.
	pipelines := []pipeline.Pipeline{
		&fakePipeline{name: types.TaskHost, delay: 30 * time.Millisecond, result: types.Success(types.TaskHost, "ok", "")},
		&fakePipeline{name: types.TaskAndroid, delay: 10 * time.Millisecond, result: types.Success(types.TaskAndroid, "ok", "")},
		&fakePipeline{name: types.TaskIOS, result: types.Skipped(types.TaskIOS, "macOS only", "")},
	}

	for _, sequential := range []bool{true, false} {
		s := NewScheduler(logger.NopLogger{}, sequential)
		results, err := s.Run(context.Background(), pipelines)
		if err != nil {
			t.Fatalf("sequential=%v: %v", sequential, err)
		}
		if len(results) != 3 {
			t.Fatalf("sequential=%v: got %d results, want 3", sequential, len(results))
		}
		want := []types.TaskName{types.TaskHost, types.TaskAndroid, types.TaskIOS}
		for i, result := range results {
			if result.Name != want[i] {
				t.Errorf("sequential=%v: results[%d] = %s, want %s", sequential, i, result.Name, want[i])
			}
		}
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	pipelines := []pipeline.Pipeline{
		&fakePipeline{name: types.TaskHost, result: types.Failed(types.TaskHost, "cmake exploded", "")},
		&fakePipeline{name: types.TaskAndroid, result: types.Success(types.TaskAndroid, "ok", "")},
	}

	s := NewScheduler(logger.NopLogger{}, false)
	results, err := s.Run(context.Background(), pipelines)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Status != types.StatusFailed {
		t.Errorf("host status = %s, want failed", results[0].Status)
	}
	if results[1].Status != types.StatusSuccess {
		t.Errorf("android status = %s, want success despite host failure", results[1].Status)
	}
}

func TestSchedulerRecoversPanics(t *testing.T) {
	pipelines := []pipeline.Pipeline{
		&fakePipeline{name: types.TaskHost, panics: true},
		&fakePipeline{name: types.TaskAndroid, result: types.Success(types.TaskAndroid, "ok", "")},
	}

	for _, sequential := range []bool{true, false} {
		s := NewScheduler(logger.NopLogger{}, sequential)
		results, err := s.Run(context.Background(), pipelines)
		if err != nil {
			t.Fatalf("sequential=%v: %v", sequential, err)
		}
		if results[0].Status != types.StatusFailed {
			t.Errorf("sequential=%v: panicking pipeline status = %s, want failed", sequential, results[0].Status)
		}
		if results[1].Status != types.StatusSuccess {
			t.Errorf("sequential=%v: sibling status = %s, want success", sequential, results[1].Status)
		}
	}
}

func TestSafeGroupRecoversPanic(t *testing.T) {
	group, _ := NewSafeGroup(context.Background())
	group.Go(func() error {
		panic("boom")
	})
	err := group.Wait()
	if err == nil {
		t.Fatal("expected an error from the panicking goroutine")
	}
}
