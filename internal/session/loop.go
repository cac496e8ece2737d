package session

import (
	"context"
	"sync"
)

// Dispatcher hands a completion back to the goroutine that owns session
// state. Implementations must run completions one at a time, in the order
// they were dispatched.
type Dispatcher interface {
	Dispatch(fn func())
}

// Loop is a channel-driven Dispatcher. Dispatch never blocks, so it is safe
// to call from inside a running completion.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Dispatch queues fn.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued completions until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}
