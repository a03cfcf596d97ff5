package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of work inside a bounded batch.
type Task func(ctx context.Context) error

// Pool runs batches of independent tasks with a fixed concurrency limit.
type Pool struct {
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool with the given worker limit.
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{workers: workers, logger: logger}
}

// Join executes every task with at most p.workers in flight and blocks until
// all have finished. Failures are isolated per task: each is logged and stored
// at the task's index in the returned slice, and never aborts the rest of the
// batch. A cancelled context is recorded as that task's error for tasks that
// have not started yet.
func (p *Pool) Join(ctx context.Context, name string, tasks []Task) []error {
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, t Task) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := t(ctx); err != nil {
				errs[idx] = err
				p.logger.Warn("batch task failed",
					zap.String("batch", name),
					zap.Int("task", idx),
					zap.Error(err),
				)
			}
		}(i, task)
	}

	wg.Wait()
	return errs
}
