package engine

import (
	"context"
	"errors"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/pipeline"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// ErrNoPipelines is returned when the scheduler receives an empty
// selection; the caller treats it as a fatal configuration error.
var ErrNoPipelines = errors.New("no pipelines to run")

// Scheduler runs pipelines either sequentially or concurrently. In both
// modes results come back indexed by the requested order, and a failing
// pipeline never prevents its siblings from finishing.
type Scheduler struct {
	log        logger.Logger
	sequential bool
}

// NewScheduler builds a scheduler.
func NewScheduler(log logger.Logger, sequential bool) *Scheduler {
	return &Scheduler{log: log, sequential: sequential}
}

// Run executes every pipeline and returns one result per pipeline, in
// the order the pipelines were given.
func (s *Scheduler) Run(ctx context.Context, pipelines []pipeline.Pipeline) ([]types.TaskResult, error) {
	if len(pipelines) == 0 {
		return nil, ErrNoPipelines
	}

	results := make([]types.TaskResult, len(pipelines))
	if s.sequential {
		for i, p := range pipelines {
			s.log.Info("starting task", logger.WithField("task", string(p.Name())))
			results[i] = pipeline.Guard(p, s.log).Run(ctx)
		}
		return results, nil
	}

	group, groupCtx := NewSafeGroup(ctx)
	group.SetLimit(len(pipelines))
	for i, p := range pipelines {
		i, p := i, p
		group.Go(func() error {
			s.log.Info("starting task", logger.WithField("task", string(p.Name())))
			results[i] = pipeline.Guard(p, s.log).Run(groupCtx)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
