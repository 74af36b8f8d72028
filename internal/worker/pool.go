// Package worker runs blocking jobs off the event dispatcher.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrShutdownTimeout is returned when workers don't stop within timeout.
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
	// ErrPoolStopped is returned by Submit once Stop has been called.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Job is a unit of work. The context is cancelled only if the pool fails to
// drain within its shutdown timeout.
type Job func(ctx context.Context)

// Config holds worker pool configuration.
type Config struct {
	Workers   int
	QueueSize int
}

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool struct {
	workers int
	jobs    chan Job
	logger  zerolog.Logger

	wg sync.WaitGroup

	// mu orders Submit against Stop: no send starts after quit is closed.
	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}

	jobCtx    context.Context
	cancelJob context.CancelFunc
}

// NewPool creates a new worker pool. Call Start before submitting jobs.
func NewPool(cfg Config, logger zerolog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:   cfg.Workers,
		jobs:      make(chan Job, cfg.QueueSize),
		logger:    logger.With().Str("component", "worker").Logger(),
		quit:      make(chan struct{}),
		jobCtx:    ctx,
		cancelJob: cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info().Int("workers", p.workers).Msg("starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues job, blocking while the queue is full. A nil error means the
// job will run, even if Stop is called right after.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Stop stops accepting jobs and waits for running and queued jobs to finish.
// When timeout expires first, running jobs see their context cancelled.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		p.logger.Info().Msg("stopping worker pool")
		close(p.quit)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelJob()
		p.logger.Info().Msg("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		p.cancelJob()
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With().Int("worker_id", id).Logger()
	logger.Debug().Msg("worker started")

	for {
		// Drain queued jobs before honoring quit.
		select {
		case job := <-p.jobs:
			p.run(logger, job)
			continue
		default:
		}

		select {
		case job := <-p.jobs:
			p.run(logger, job)
		case <-p.quit:
			p.drain(logger)
			logger.Debug().Msg("worker stopping")
			return
		}
	}
}

// drain runs whatever is still queued once quit is closed.
func (p *Pool) drain(logger zerolog.Logger) {
	for {
		select {
		case job := <-p.jobs:
			p.run(logger, job)
		default:
			return
		}
	}
}

func (p *Pool) run(logger zerolog.Logger, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("job panicked")
		}
	}()
	job(p.jobCtx)
}
