package logsink

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// Publisher is the subset of *nats.Conn used by NATSLogger.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	// URL is the server URL, e.g. nats://127.0.0.1:4222
	URL string

	// Subject receives the dumps. Defaults to coreapi.trace
	Subject string

	// Name identifies the connection on the server
	Name string

	// Timeout bounds the initial dial
	Timeout time.Duration
}

// NATSLogger publishes each dump as one message.
type NATSLogger struct {
	publisher Publisher
	subject   string
	onError   func(error)
	conn      *nats.Conn
}

// NewNATSLogger creates a logger that publishes through publisher. Publish
// failures are passed to onError, which may be nil.
func NewNATSLogger(publisher Publisher, subject string, onError func(error)) *NATSLogger {
	if subject == "" {
		subject = constants.DefaultTraceSubject
	}

	return &NATSLogger{publisher: publisher, subject: subject, onError: onError}
}

// DialNATSLogger connects to the configured server and returns a logger that
// owns the connection.
func DialNATSLogger(config *NATSConfig) (*NATSLogger, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultNATSConnectTimeout
	}

	url := config.URL
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{nats.Timeout(timeout)}
	if config.Name != "" {
		opts = append(opts, nats.Name(config.Name))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	logger := NewNATSLogger(conn, config.Subject, nil)
	logger.conn = conn

	return logger, nil
}

// Subject returns the subject dumps are published to.
func (n *NATSLogger) Subject() string {
	return n.subject
}

// Log implements coreapi.Logger.
func (n *NATSLogger) Log(message string) {
	err := n.publisher.Publish(n.subject, []byte(message))
	if err != nil && n.onError != nil {
		n.onError(fmt.Errorf("failed to publish trace to %s: %w", n.subject, err))
	}
}

// Close flushes pending messages and closes a connection opened by
// DialNATSLogger.
func (n *NATSLogger) Close() error {
	if n.conn == nil {
		return nil
	}

	err := n.conn.Drain()
	if err != nil {
		n.conn.Close()

		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	return nil
}
