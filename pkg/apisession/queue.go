package apisession

import (
	"sync"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// Executor runs completion handlers.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Execute implements Executor.
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// Inline runs handlers on the goroutine that delivers the outcome.
//
//nolint:gochecknoglobals // Stateless executor
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// MainQueue is the process-wide serial queue used when no executor is given.
//
//nolint:gochecknoglobals // Process-wide default execution context
var MainQueue = NewSerialQueue()

// SerialQueue runs submitted functions one at a time, in submission order, on
// a single goroutine. The queue is unbounded so handlers may submit more work
// to the queue they run on.
type SerialQueue struct {
	mu      sync.Mutex
	items   []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
	start   sync.Once
}

// NewSerialQueue creates a serial queue. Its goroutine starts on first use.
func NewSerialQueue() *SerialQueue {
	return &SerialQueue{
		items:   make([]func(), 0, constants.SerialQueueBuffer),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Execute implements Executor. Functions submitted after Close are dropped.
func (q *SerialQueue) Execute(fn func()) {
	q.start.Do(func() {
		go q.loop()
	})

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close stops the queue after the already submitted functions ran.
func (q *SerialQueue) Close() {
	q.start.Do(func() {
		go q.loop()
	})

	q.mu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.mu.Unlock()

	if !alreadyClosed {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}

	<-q.stopped
}

func (q *SerialQueue) loop() {
	defer close(q.stopped)

	for {
		q.mu.Lock()
		items := q.items
		q.items = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range items {
			fn()
		}

		if len(items) > 0 {
			continue
		}

		if closed {
			return
		}

		<-q.wake
	}
}
