package logsink_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
	"github.com/fivetwenty-io/paycore/pkg/logsink"
)

var errPublish = errors.New("connection closed")

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages []string
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.subjects = append(p.subjects, subject)
	p.messages = append(p.messages, string(data))

	return nil
}

func TestConsoleLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := logsink.NewConsoleLogger(&buf, "[CoreAPI]")
	logger.Log("first")
	logger.Log("second\nline")

	assert.Equal(t, "[CoreAPI] first\n[CoreAPI] second\nline\n", buf.String())
}

func TestLogrLogger(t *testing.T) {
	t.Parallel()

	var lines []string

	sink := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	logsink.NewLogrLogger(sink).Log("dump")

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg"="Request trace"`)
	assert.Contains(t, lines[0], `"dump"="dump"`)

	lines = nil

	quiet := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	logsink.NewLogrLogger(quiet).Log("dump")
	assert.Empty(t, lines)
}

func TestNATSLogger(t *testing.T) {
	t.Parallel()

	t.Run("publishes to subject", func(t *testing.T) {
		t.Parallel()

		publisher := &recordingPublisher{}

		logger := logsink.NewNATSLogger(publisher, "payments.trace", nil)
		logger.Log("dump-1")
		logger.Log("dump-2")

		assert.Equal(t, []string{"payments.trace", "payments.trace"}, publisher.subjects)
		assert.Equal(t, []string{"dump-1", "dump-2"}, publisher.messages)
		require.NoError(t, logger.Close())
	})

	t.Run("default subject", func(t *testing.T) {
		t.Parallel()

		logger := logsink.NewNATSLogger(&recordingPublisher{}, "", nil)
		assert.Equal(t, "coreapi.trace", logger.Subject())
	})

	t.Run("reports publish failures", func(t *testing.T) {
		t.Parallel()

		var reported []error

		logger := logsink.NewNATSLogger(&recordingPublisher{err: errPublish}, "", func(err error) {
			reported = append(reported, err)
		})
		logger.Log("dump")

		require.Len(t, reported, 1)
		require.ErrorIs(t, reported[0], errPublish)
		assert.Contains(t, reported[0].Error(), "coreapi.trace")
	})

	t.Run("ignores failures without handler", func(t *testing.T) {
		t.Parallel()

		logger := logsink.NewNATSLogger(&recordingPublisher{err: errPublish}, "", nil)
		assert.NotPanics(t, func() { logger.Log("dump") })
	})
}

func TestMultiLogger(t *testing.T) {
	t.Parallel()

	var (
		first  []string
		second []string
	)

	logger := logsink.NewMultiLogger(
		coreapi.LoggerFunc(func(message string) { first = append(first, message) }),
		nil,
		coreapi.LoggerFunc(func(message string) { second = append(second, message) }),
	)

	logger.Log("dump")

	assert.Equal(t, []string{"dump"}, first)
	assert.Equal(t, []string{"dump"}, second)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("nil config is console", func(t *testing.T) {
		t.Parallel()

		logger, closeFn, err := logsink.NewFromConfig(nil)
		require.NoError(t, err)
		assert.IsType(t, &logsink.ConsoleLogger{}, logger)
		require.NoError(t, closeFn())
	})

	t.Run("logr", func(t *testing.T) {
		t.Parallel()

		var lines []string

		logger, _, err := logsink.NewFromConfig(&logsink.Config{
			Type: logsink.SinkTypeLogr,
			Log: funcr.New(func(prefix, args string) {
				lines = append(lines, args)
			}, funcr.Options{Verbosity: 1}),
		})
		require.NoError(t, err)

		logger.Log("dump")
		assert.Len(t, lines, 1)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		logger, _, err := logsink.NewFromConfig(&logsink.Config{Type: logsink.SinkTypeNone})
		require.NoError(t, err)
		assert.NotPanics(t, func() { logger.Log("dump") })
	})

	t.Run("nats without config", func(t *testing.T) {
		t.Parallel()

		logger, _, err := logsink.NewFromConfig(&logsink.Config{Type: logsink.SinkTypeNATS})
		require.ErrorIs(t, err, logsink.ErrNATSConfigRequired)
		assert.Nil(t, logger)
	})

	t.Run("nats unreachable", func(t *testing.T) {
		t.Parallel()

		logger, _, err := logsink.NewFromConfig(&logsink.Config{
			Type: logsink.SinkTypeNATS,
			NATS: &logsink.NATSConfig{URL: "nats://127.0.0.1:1", Name: "coreapi-test"},
		})
		require.Error(t, err)
		assert.Nil(t, logger)
		assert.True(t, strings.HasPrefix(err.Error(), "failed to connect to NATS"))
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()

		logger, _, err := logsink.NewFromConfig(&logsink.Config{Type: logsink.SinkType("syslog")})
		require.ErrorIs(t, err, logsink.ErrUnsupportedSinkType)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "syslog")
	})
}
