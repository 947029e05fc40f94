// Package worker runs delegated requests on a bounded set of goroutines.
package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
)

// Job is one request handler. ctx is the request's context.
type Job func(ctx context.Context)

type task struct {
	ctx context.Context
	run Job
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers  int
	Active   int64
	Dropped  int64
	Finished int64
}

// Pool hands tasks to a fixed number of goroutines through a single-slot
// queue, so a saturated pool refuses work instead of buffering it.
type Pool struct {
	queue    chan task
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once

	active   atomic.Int64
	dropped  atomic.Int64
	finished atomic.Int64
}

// New starts size workers, or one per CPU when size <= 0.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{queue: make(chan task, 1), workers: size}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.finished.Add(1)
		if r := recover(); r != nil {
			log.Printf("Worker: request handler panicked: %v", r)
		}
	}()
	if err := t.ctx.Err(); err != nil {
		log.Printf("Worker: request abandoned before start: %v", err)
		return
	}
	t.run(t.ctx)
}

// Submit queues job unless every worker is busy and the slot is taken.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	select {
	case p.queue <- task{ctx: ctx, run: job}:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Stats reports counters since the pool started.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		Active:   p.active.Load(),
		Dropped:  p.dropped.Load(),
		Finished: p.finished.Load(),
	}
}

// Close stops accepting work and waits for queued and running jobs.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
}
