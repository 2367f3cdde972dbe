// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner runs each registered Job on its own ticker until stopped.
type Runner struct {
	jobs    []Job
	log     *zap.Logger
	timeout time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewRunner creates a Runner. Each job run is bounded by timeout.
func NewRunner(logger *zap.Logger, timeout time.Duration, jobs ...Job) *Runner {
	return &Runner{
		jobs:    jobs,
		log:     logger,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start launches one goroutine per job. Calling Start twice is a no-op.
func (r *Runner) Start() {
	if r.started {
		return
	}
	r.started = true
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(j)
		r.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every job to stop and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if !r.started {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.started = false
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(j Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(j)
		}
	}
}

func (r *Runner) runOnce(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		r.log.Error("background job failed", zap.String("job", j.Name), zap.Error(err))
	}
}
