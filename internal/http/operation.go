package http

import (
	"context"
	"io"
	"sync"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Operation is one in-flight transport request.
//
// Cancel is advisory: if the response already arrived, the result is still
// delivered as a normal completion.
type Operation struct {
	cancel context.CancelCauseFunc
	done   chan struct{}

	mu     sync.Mutex
	resume chan struct{}
}

func newOperation(cancel context.CancelCauseFunc) *Operation {
	return &Operation{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel aborts the request.
func (o *Operation) Cancel() {
	o.cancel(coreapi.ErrCanceled)
}

// Suspend pauses the operation before the request is sent or between reads
// of the response body. It has no effect once the operation is done.
func (o *Operation) Suspend() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.resume == nil {
		o.resume = make(chan struct{})
	}
}

// Resume continues a suspended operation.
func (o *Operation) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.resume != nil {
		close(o.resume)
		o.resume = nil
	}
}

// Suspended reports whether the operation is paused.
func (o *Operation) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.resume != nil
}

// Done is closed after the completion callback returned.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// wait blocks while the operation is suspended.
func (o *Operation) wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		resume := o.resume
		o.mu.Unlock()

		if resume == nil {
			return context.Cause(ctx)
		}

		select {
		case <-resume:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}

// pausingReader honours Suspend between body reads.
type pausingReader struct {
	ctx    context.Context //nolint:containedctx // Bound to the operation lifetime
	op     *Operation
	reader io.Reader
}

func (r *pausingReader) Read(p []byte) (int, error) {
	err := r.op.wait(r.ctx)
	if err != nil {
		return 0, err
	}

	return r.reader.Read(p)
}
