package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"igfollowers/pkg/collector"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/ratelimit"
	"igfollowers/pkg/storage"
)

// ErrShuttingDown is returned by Submit once the pool is stopping
var ErrShuttingDown = errors.New("runner pool is shutting down")

// Job is one account whose followers should be collected
type Job struct {
	UserID string
}

// Result is the outcome of one job. Run is nil when the engine could not be built or started.
type Result struct {
	Job      Job
	Run      *collector.Result
	Error    error
	Duration time.Duration
}

// Success reports whether the run ended without an abort and was stored
func (r Result) Success() bool {
	return r.Error == nil && r.Run != nil && r.Run.Complete()
}

// Collector is the part of an engine the pool drives
type Collector interface {
	Run(ctx context.Context) (*collector.Result, error)
}

// CollectorFunc adapts a function to Collector
type CollectorFunc func(ctx context.Context) (*collector.Result, error)

func (f CollectorFunc) Run(ctx context.Context) (*collector.Result, error) {
	return f(ctx)
}

// Builder creates a fresh engine for a job. Engines are single-use.
type Builder func(job Job) (Collector, error)

// Pool runs several active collections concurrently, one engine per account.
// Each engine keeps its own backoff state; the shared limiter only spaces out
// engine starts.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	build       Builder
	sink        storage.Sink
	limiter     ratelimit.Limiter
	logger      logger.Logger

	mu     sync.Mutex
	active map[string]bool
}

// NewPool creates a pool. ctx bounds every run; cancelling it aborts runs in flight.
// sink and limiter may be nil.
func NewPool(
	ctx context.Context,
	numWorkers int,
	build Builder,
	sink storage.Sink,
	limiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		build:       build,
		sink:        sink,
		limiter:     limiter,
		logger:      log.WithField("component", "runner"),
		active:      make(map[string]bool),
	}
}

// Start spawns the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting runner pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for queued jobs to finish, then closes Results
func (p *Pool) Stop() {
	p.logger.Info("Stopping runner pool...")

	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Info("Runner pool stopped")
}

// Cancel aborts runs in flight. Their partial results are still delivered.
func (p *Pool) Cancel() {
	p.cancel()
}

// Submit queues a job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	if job.UserID == "" {
		return fmt.Errorf("job has no user id")
	}
	if p.ctx.Err() != nil {
		return ErrShuttingDown
	}
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"user_id": job.UserID,
		})
		return nil
	case <-p.ctx.Done():
		return ErrShuttingDown
	}
}

// Results delivers one Result per submitted job
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// GetActiveWorkers returns the number of workers
func (p *Pool) GetActiveWorkers() int {
	return p.numWorkers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	// results are always delivered so every Submit has a matching Result
	for job := range p.jobQueue {
		p.resultQueue <- p.process(job, id)
	}

	p.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// claim marks userID as running. Two engines on one account would share a
// checkpoint and double the request rate.
func (p *Pool) claim(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active[userID] {
		return false
	}
	p.active[userID] = true
	return true
}

func (p *Pool) release(userID string) {
	p.mu.Lock()
	delete(p.active, userID)
	p.mu.Unlock()
}

func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"user_id":   job.UserID,
	}

	if !p.claim(job.UserID) {
		result.Error = fmt.Errorf("collection for %s is already running", job.UserID)
		p.logger.WarnWithFields("Skipping duplicate job", fields)
		return result
	}
	defer p.release(job.UserID)

	if p.ctx.Err() == nil && !p.limiter.Allow() {
		p.logger.DebugWithFields("Worker waiting for rate limit", fields)
		if err := p.limiter.Wait(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
	}

	engine, err := p.build(job)
	if err != nil {
		result.Error = fmt.Errorf("build collector: %w", err)
		result.Duration = time.Since(start)
		p.logger.WithError(err).ErrorWithFields("Worker failed to build collector", fields)
		return result
	}

	p.logger.DebugWithFields("Worker processing job", fields)
	run, err := engine.Run(p.ctx)
	result.Run = run
	if err != nil {
		result.Error = fmt.Errorf("collect: %w", err)
		result.Duration = time.Since(start)
		p.logger.WithError(err).ErrorWithFields("Worker failed to collect followers", fields)
		return result
	}

	// a run aborted by cancellation still has records worth keeping
	if p.sink != nil && run != nil {
		if err := p.sink.Write(context.WithoutCancel(p.ctx), run); err != nil {
			result.Error = fmt.Errorf("save failed: %w", err)
			p.logger.WithError(err).ErrorWithFields("Worker failed to save followers", fields)
		}
	}

	result.Duration = time.Since(start)
	if run != nil {
		fields["state"] = run.State.String()
		fields["total"] = len(run.Records)
	}
	fields["duration"] = result.Duration
	p.logger.InfoWithFields("Worker completed job", fields)
	return result
}
