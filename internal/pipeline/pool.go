package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
)

// ErrPoolClosed is returned for jobs submitted after Close.
var ErrPoolClosed = errors.New("pipeline: pool closed")

// Job is one ProcessImage request. Submitting a job moves ownership of Data
// to the pool; the caller must not touch it afterwards.
type Job struct {
	ID     string
	Data   []byte
	Config config.Config
}

// Outcome is the answer to one Job.
type Outcome struct {
	ID     string
	Result *Result
	Err    error
}

type poolJob struct {
	ctx context.Context
	job Job
	out chan<- Outcome
}

// Pool runs whole pipelines on a fixed number of workers. Executions share
// no mutable state.
type Pool struct {
	jobs    chan poolJob
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int
}

// NewPool starts workers goroutines (runtime.NumCPU when <= 0).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan poolJob), workers: workers}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// Submit queues j and returns a channel that receives exactly one Outcome.
// Submit blocks while every worker is busy. A job whose context is done
// before a worker picks it up is answered with the context error; jobs
// already running always complete.
func (p *Pool) Submit(ctx context.Context, j Job) <-chan Outcome {
	out := make(chan Outcome, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		out <- Outcome{ID: j.ID, Err: ErrPoolClosed}
		return out
	}
	select {
	case p.jobs <- poolJob{ctx: ctx, job: j, out: out}:
	case <-ctx.Done():
		out <- Outcome{ID: j.ID, Err: ctx.Err()}
	}
	return out
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for pj := range p.jobs {
		if err := pj.ctx.Err(); err != nil {
			pj.out <- Outcome{ID: pj.job.ID, Err: err}
			continue
		}
		pj.out <- run(pj.job)
	}
}

// run converts a panic inside one pipeline into that job's error so the
// worker survives.
func run(j Job) (o Outcome) {
	o.ID = j.ID
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Error("pipeline panicked", "job", j.ID, "panic", r)
			o.Result, o.Err = nil, fmt.Errorf("pipeline: %s: panic: %v", j.ID, r)
		}
	}()
	o.Result, o.Err = ProcessImage(j.Data, j.Config)
	return o
}
