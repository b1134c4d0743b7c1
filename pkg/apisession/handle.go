package apisession

import (
	"sync"

	corehttp "github.com/fivetwenty-io/paycore/internal/http"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// completionQueue holds work until release, then runs everything queued
// before and after it in FIFO order. Each item runs exactly once.
type completionQueue struct {
	mu       sync.Mutex
	released bool
	draining bool
	pending  []func()
	observed bool
}

func (q *completionQueue) enqueue(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.observed = true
	q.mu.Unlock()

	q.drain()
}

// release opens the gate. Later calls are no-ops.
func (q *completionQueue) release() {
	q.mu.Lock()
	q.released = true
	q.mu.Unlock()

	q.drain()
}

// drain runs pending items on a single goroutine at a time, so concurrent
// enqueues cannot reorder them.
func (q *completionQueue) drain() {
	for {
		q.mu.Lock()
		if !q.released || q.draining || len(q.pending) == 0 {
			q.mu.Unlock()

			return
		}

		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.draining = true
		q.mu.Unlock()

		fn()

		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}
}

// observe marks the queue as watched without queueing work.
func (q *completionQueue) observe() {
	q.mu.Lock()
	q.observed = true
	q.mu.Unlock()
}

func (q *completionQueue) hasObservers() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.observed
}

// requestHandle owns one outgoing request and its transport operation. The
// outcome is written once by the transport callback before the queue is
// released and is read-only afterwards.
type requestHandle struct {
	request *coreapi.Request
	queue   completionQueue
	done    chan struct{}
	outcome coreapi.Outcome

	mu        sync.Mutex
	op        *corehttp.Operation
	canceled  bool
	suspended bool
}

func newRequestHandle(req *coreapi.Request) *requestHandle {
	return &requestHandle{
		request: req,
		done:    make(chan struct{}),
	}
}

// attach binds the started operation and replays control calls made before
// it existed.
func (h *requestHandle) attach(op *corehttp.Operation) {
	h.mu.Lock()
	h.op = op
	canceled, suspended := h.canceled, h.suspended
	h.mu.Unlock()

	if suspended {
		op.Suspend()
	}

	if canceled {
		op.Cancel()
	}
}

func (h *requestHandle) cancel() {
	h.mu.Lock()
	h.canceled = true
	op := h.op
	h.mu.Unlock()

	if op != nil {
		op.Cancel()
	}
}

func (h *requestHandle) suspend() {
	h.mu.Lock()
	h.suspended = true
	op := h.op
	h.mu.Unlock()

	if op != nil {
		op.Suspend()
	}
}

func (h *requestHandle) resume() {
	h.mu.Lock()
	h.suspended = false
	op := h.op
	h.mu.Unlock()

	if op != nil {
		op.Resume()
	}
}

// complete stores the outcome and opens the gate. It is called once, by the
// transport callback.
func (h *requestHandle) complete(outcome coreapi.Outcome) {
	h.outcome = outcome
	close(h.done)
	h.queue.release()
}

// onComplete queues handler to receive the outcome on executor.
func (h *requestHandle) onComplete(executor Executor, handler func(coreapi.Outcome)) {
	h.queue.enqueue(func() {
		outcome := h.outcome
		executor.Execute(func() {
			handler(outcome)
		})
	})
}

// cancelUnobserved aborts the operation of a dropped task that nobody can
// observe. Registered handlers and callers of Done both count as observers.
func cancelUnobserved(h *requestHandle) {
	if !h.queue.hasObservers() {
		h.cancel()
	}
}
