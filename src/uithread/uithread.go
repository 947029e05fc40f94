// Package uithread serializes UI work onto a single goroutine. Workers never
// touch surfaces directly; they post closures and the UI thread runs them.
package uithread

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var ErrStopped = errors.New("ui thread stopped")

// Dispatcher accepts work for the UI thread.
type Dispatcher interface {
	Post(fn func()) error
}

// Loop is a Dispatcher backed by one OS-thread-locked goroutine.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

// New starts a loop with a task queue of the given size (minimum 1).
func New(queue int) *Loop {
	if queue < 1 {
		queue = 1
	}
	l := &Loop{
		tasks: make(chan func(), queue),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.quit:
			// drain what was accepted before Close
			for {
				select {
				case fn := <-l.tasks:
					l.exec(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("UI thread: task panic: %v", r)
		}
	}()
	fn()
}

// Post queues fn. It blocks only while the queue is full.
func (l *Loop) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return ErrStopped
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Close runs the already queued tasks and stops the loop.
func (l *Loop) Close() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.quit)
	})
	<-l.done
}

// Call posts fn and waits for it to finish or for ctx to end.
// It must not be called from the UI thread itself.
func Call(ctx context.Context, d Dispatcher, fn func()) error {
	done := make(chan struct{})
	if err := d.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timer is a cancellable deferred UI callback.
type Timer struct {
	t       *time.Timer
	stopped atomic.Bool
}

// AfterFunc runs fn on the UI thread after delay unless the timer is stopped first.
func AfterFunc(d Dispatcher, delay time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(delay, func() {
		if tm.stopped.Load() {
			return
		}
		if err := d.Post(func() {
			if tm.stopped.Load() {
				return
			}
			fn()
		}); err != nil {
			log.Printf("UI thread: deferred callback dropped: %v", err)
		}
	})
	return tm
}

// Stop prevents the callback from running if it has not started yet.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.stopped.Store(true)
	t.t.Stop()
}
