// Package loop provides the single execution context that owns all mutable
// selection state. Blocking work runs on worker goroutines and hands its
// result back to the loop, so state is only ever touched by one goroutine.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
)

var ErrClosed = errors.New("loop closed")

const defaultQueueSize = 64

type Loop struct {
	tasks chan func()
	stop  chan struct{}
	done  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// spawnMu orders Spawn against Close so no worker starts once closing begins
	spawnMu   sync.Mutex
	workers   conc.WaitGroup
	started   atomic.Bool
	closeOnce sync.Once
}

func New() *Loop {
	ctx, cancel := context.WithCancel(context.Background())

	return &Loop{
		tasks:  make(chan func(), defaultQueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start runs the loop on its own goroutine
func (l *Loop) Start() *Loop {
	if l.started.CompareAndSwap(false, true) {
		go l.run()
	}

	return l
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		select {
		case <-l.stop:
			return
		case task := <-l.tasks:
			select {
			case <-l.stop:
				return
			default:
			}
			task()
		}
	}
}

// Post queues task to run on the loop
func (l *Loop) Post(task func()) error {
	select {
	case <-l.stop:
		return ErrClosed
	default:
	}

	select {
	case l.tasks <- task:
		return nil
	case <-l.stop:
		return ErrClosed
	}
}

// Call runs task on the loop and waits for it to finish. It must not be
// called from the loop itself.
func (l *Loop) Call(ctx context.Context, task func()) error {
	finished := make(chan struct{})

	err := l.Post(func() {
		defer close(finished)
		task()
	})
	if err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has stopped
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Close stops the loop, cancels the context handed to in-flight fetches and
// waits for the worker goroutines. Results arriving after Close are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.spawnMu.Lock()
		close(l.stop)
		l.spawnMu.Unlock()

		l.cancel()

		if l.started.Load() {
			<-l.done
		} else {
			close(l.done)
		}

		l.workers.Wait()
	})
}

// Spawn runs fetch on a worker goroutine and applies its result on the loop.
// The fetch is never cut short when superseded, only on Close. Nothing is
// started once the loop is closed.
func Spawn[T any](l *Loop, fetch func(ctx context.Context) T, apply func(T)) {
	l.spawnMu.Lock()
	defer l.spawnMu.Unlock()

	select {
	case <-l.stop:
		return
	default:
	}

	l.workers.Go(func() {
		result := fetch(l.ctx)

		_ = l.Post(func() {
			apply(result)
		})
	})
}
