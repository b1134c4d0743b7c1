package http

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

func TestPausingReader_BlocksWhileSuspended(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	op := newOperation(cancel)
	reader := &pausingReader{ctx: ctx, op: op, reader: strings.NewReader("payload")}

	op.Suspend()
	op.Suspend()

	read := make(chan []byte)

	go func() {
		data, _ := io.ReadAll(reader)
		read <- data
	}()

	select {
	case <-read:
		t.Fatal("read completed while suspended")
	case <-time.After(50 * time.Millisecond):
	}

	op.Resume()

	select {
	case data := <-read:
		assert.Equal(t, "payload", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("read did not resume")
	}
}

func TestOperation_CancelUnblocksSuspended(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	op := newOperation(cancel)

	op.Suspend()

	waited := make(chan error)

	go func() {
		waited <- op.wait(ctx)
	}()

	op.Cancel()

	select {
	case err := <-waited:
		require.ErrorIs(t, err, coreapi.ErrCanceled)
		assert.True(t, coreapi.IsCanceled(transportError(ctx, err)))
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestOperation_ResumeWithoutSuspend(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	op := newOperation(cancel)
	op.Resume()

	assert.False(t, op.Suspended())
	require.NoError(t, op.wait(ctx))
}
