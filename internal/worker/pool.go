package worker

import (
	"context"
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

type task struct {
	index int
	job   Job
}

type outcome struct {
	index  int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently. Results
// are returned in submission order.
type Pool struct {
	workers    int
	jobQueue   chan task
	results    chan outcome
	collected  []Result
	submitted  int
	wg         sync.WaitGroup
	drained    chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers.
// Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan task, workers*2),
		results:    make(chan outcome, workers*2),
		drained:    make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			p.results <- outcome{index: t.index, result: t.job.Execute(p.ctx)}
		}
	}
}

func (p *Pool) collect() {
	defer close(p.drained)
	for o := range p.results {
		for len(p.collected) <= o.index {
			p.collected = append(p.collected, nil)
		}
		p.collected[o.index] = o.result
	}
}

// Submit submits a job to the pool. It must not be called concurrently with
// itself or after Wait.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- task{index: p.submitted, job: job}:
		p.submitted++
	}
}

// Wait waits for all submitted jobs and returns their results in submission
// order. Jobs skipped because of cancellation have a nil result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.drained
	p.cancelFunc()

	for len(p.collected) < p.submitted {
		p.collected = append(p.collected, nil)
	}
	return p.collected
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Run executes jobs on a pool of workers and returns their results in job order
func Run(ctx context.Context, workers int, jobs []Job) []Result {
	pool := NewPool(ctx, workers)
	pool.Start()
	for _, job := range jobs {
		pool.Submit(job)
	}
	return pool.Wait()
}
