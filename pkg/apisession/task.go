package apisession

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

//nolint:gochecknoglobals // Shared closed channel for tasks born failed
var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}()

// Task is the caller's handle on one performed method.
//
// A task is either running a request or born failed with the error that
// prevented the request from being built. Completion handlers may be
// registered any number of times, before or after completion; each receives
// the terminal outcome exactly once, in registration order.
//
// Dropping a task without registering a handler cancels its request.
type Task[R any] struct {
	handle *requestHandle
	err    error
	decode func(coreapi.Outcome) (*R, error)
}

// Err returns the error a task was born failed with, or nil.
func (t *Task[R]) Err() error {
	return t.err
}

// Request returns the outgoing request, or nil if the task was born failed.
func (t *Task[R]) Request() *coreapi.Request {
	if t.handle == nil {
		return nil
	}

	return t.handle.request
}

// Cancel asks the transport to abort. A response that already arrived is
// still delivered as a normal completion.
func (t *Task[R]) Cancel() {
	if t.handle != nil {
		t.handle.cancel()
	}
}

// Suspend pauses the transport operation. Completion delivery is unaffected.
func (t *Task[R]) Suspend() {
	if t.handle != nil {
		t.handle.suspend()
	}
}

// Resume continues a suspended transport operation.
func (t *Task[R]) Resume() {
	if t.handle != nil {
		t.handle.resume()
	}
}

// Done is closed once the outcome is available. A caller holding only the
// channel keeps the request alive after the Task is dropped.
func (t *Task[R]) Done() <-chan struct{} {
	if t.handle == nil {
		return closedDone
	}

	t.handle.queue.observe()

	return t.handle.done
}

// Response registers a raw completion handler on MainQueue.
func (t *Task[R]) Response(handler func(coreapi.Outcome)) *Task[R] {
	return t.ResponseOn(MainQueue, handler)
}

// ResponseOn registers a raw completion handler on executor.
func (t *Task[R]) ResponseOn(executor Executor, handler func(coreapi.Outcome)) *Task[R] {
	if t.handle == nil {
		outcome := coreapi.Outcome{Err: t.err}
		executor.Execute(func() {
			handler(outcome)
		})

		return t
	}

	t.handle.onComplete(executor, handler)

	return t
}

// ResponseDecoded registers a handler for the processed result on MainQueue.
func (t *Task[R]) ResponseDecoded(handler func(*R, error)) *Task[R] {
	return t.ResponseDecodedOn(MainQueue, handler)
}

// ResponseDecodedOn registers a handler for the processed result on executor.
// Exactly one of the handler's arguments is non-nil.
func (t *Task[R]) ResponseDecodedOn(executor Executor, handler func(*R, error)) *Task[R] {
	decode := t.decode

	return t.ResponseOn(executor, func(outcome coreapi.Outcome) {
		handler(decode(outcome))
	})
}

// Await blocks until the outcome is available or ctx is done, then returns
// the processed result.
func (t *Task[R]) Await(ctx context.Context) (*R, error) {
	select {
	case <-t.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for response: %w", ctx.Err())
	}

	if t.handle == nil {
		return t.decode(coreapi.Outcome{Err: t.err})
	}

	return t.decode(t.handle.outcome)
}
