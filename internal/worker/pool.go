// Package worker runs per-article jobs on a bounded pool and throttles
// outbound model calls.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// ProgressFunc is called after each job with the number of finished and
// submitted jobs. Calls are serialized.
type ProgressFunc func(done, submitted int, r Result)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithProgress reports every finished job to fn.
func WithProgress(fn ProgressFunc) PoolOption {
	return func(p *Pool) { p.progress = fn }
}

type queued struct {
	seq int
	job Job
}

// Pool runs jobs on a fixed number of workers and keeps their results in
// submission order.
type Pool struct {
	workers  int
	queue    chan queued
	progress ProgressFunc
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	results []Result
	ran     []bool
	done    int
}

// NewPool creates a pool of workers bound to ctx. Canceling ctx stops the
// workers after their current job; queued jobs are skipped.
func NewPool(ctx context.Context, workers int, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		workers: workers,
		queue:   make(chan queued, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			p.record(q.seq, run(p.ctx, q.job))
		}
	}
}

// run executes job, turning a panic into a failed result.
func run(ctx context.Context, job Job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = panicResult{err: fmt.Errorf("job panicked: %v", r)}
		}
	}()
	return job.Execute(ctx)
}

type panicResult struct{ err error }

func (r panicResult) GetError() error { return r.err }

func (p *Pool) record(seq int, r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[seq] = r
	p.ran[seq] = true
	p.done++
	if p.progress != nil {
		p.progress(p.done, len(p.results), r)
	}
}

// Submit queues a job. It reports false when the pool was canceled before
// the job could be queued.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	seq := len(p.results)
	p.results = append(p.results, nil)
	p.ran = append(p.ran, false)
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- queued{seq: seq, job: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results of
// every job that ran, in submission order. After a cancel the slice is
// shorter than the number of submitted jobs.
func (p *Pool) Wait() []Result {
	close(p.queue)
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, 0, p.done)
	for i, r := range p.results {
		if p.ran[i] {
			out = append(out, r)
		}
	}
	return out
}
