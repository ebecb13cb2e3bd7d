// Package scheduler provides the bounded worker pool that drains the FIFO
// intake queue. At most N jobs execute concurrently, N being the configured
// concurrency ceiling; the rendering engine misbehaves under internal
// concurrency, so the ceiling is a hard limit, not advisory.
package scheduler

import (
	"context"
	"sync"
	"time"

	"deckconv/internal/pkg/logger"
)

// Task identifies one queued job.
type Task struct {
	TenantID string
	JobID    string
}

// Runner executes a single job end-to-end. Implementations record the
// outcome themselves; the returned error is for logging only.
type Runner interface {
	Run(ctx context.Context, task Task) error
}

// Scheduler owns the intake queue and the worker pool. The queue is
// unbounded: Enqueue is O(1) and never blocks the caller, and a job simply
// waits its turn. Submission order is preserved.
type Scheduler struct {
	runner  Runner
	log     *logger.Logger
	workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	stopped bool

	wg sync.WaitGroup
}

func New(workers int, runner Runner, log *logger.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewDefault()
	}
	s := &Scheduler{
		runner:  runner,
		log:     log.WithComponent("scheduler"),
		workers: workers,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker pool. Workers stop when ctx is canceled or
// Stop is called; queued jobs that never ran are lost with the process,
// which callers must tolerate.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting workers", "count", s.workers)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
}

// Enqueue appends a task to the intake queue and returns immediately.
func (s *Scheduler) Enqueue(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.log.Warn("enqueue after stop, dropping task", "job_id", task.JobID)
		return
	}

	s.queue = append(s.queue, task)
	s.cond.Signal()
}

// Stop wakes all workers and waits for in-flight jobs to finish.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("all workers stopped")
}

// QueueDepth reports how many tasks are waiting for a worker.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	log := s.log.With("worker", id)

	for {
		task, ok := s.next()
		if !ok {
			log.Debug("worker stopping")
			return
		}

		jobCtx := logger.ContextWithJobID(ctx, task.JobID)
		jobLog := log.With("job_id", task.JobID, "tenant_id", task.TenantID)

		jobLog.Info("processing job")
		start := time.Now()

		if err := s.runner.Run(jobCtx, task); err != nil {
			jobLog.Error("job failed",
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}

// next blocks until a task is available or the scheduler stops.
func (s *Scheduler) next() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.stopped {
		s.cond.Wait()
	}
	if s.stopped {
		return Task{}, false
	}

	task := s.queue[0]
	s.queue = s.queue[1:]
	return task, true
}
