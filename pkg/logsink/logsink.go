// Package logsink provides trace loggers that receive one request/response
// dump per completed task.
package logsink

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// SinkType selects a trace logger backend.
type SinkType string

const (
	// SinkTypeConsole writes dumps to standard error.
	SinkTypeConsole SinkType = "console"

	// SinkTypeLogr forwards dumps to a logr.Logger.
	SinkTypeLogr SinkType = "logr"

	// SinkTypeNATS publishes dumps to a NATS subject.
	SinkTypeNATS SinkType = "nats"

	// SinkTypeNone discards dumps.
	SinkTypeNone SinkType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired  = errors.New("NATS configuration required for NATS sink")
	ErrUnsupportedSinkType = errors.New("unsupported sink type")
)

// Config configures a trace logger backend.
type Config struct {
	// Type is the sink backend type
	Type SinkType

	// Prefix overrides the console prefix
	Prefix string

	// Log is the destination of the logr sink
	Log logr.Logger

	// NATS sink configuration
	NATS *NATSConfig
}

// DefaultConfig returns a console sink configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:   SinkTypeConsole,
		Prefix: constants.ConsoleLogPrefix,
	}
}

// NewFromConfig creates a trace logger from configuration. The returned close
// function releases backend resources; it is a no-op for sinks that hold none.
func NewFromConfig(config *Config) (coreapi.Logger, func() error, error) {
	if config == nil {
		config = DefaultConfig()
	}

	noClose := func() error { return nil }

	switch config.Type {
	case SinkTypeConsole:
		prefix := config.Prefix
		if prefix == "" {
			prefix = constants.ConsoleLogPrefix
		}

		return NewConsoleLogger(os.Stderr, prefix), noClose, nil

	case SinkTypeLogr:
		return NewLogrLogger(config.Log), noClose, nil

	case SinkTypeNATS:
		if config.NATS == nil {
			return nil, nil, ErrNATSConfigRequired
		}

		logger, err := DialNATSLogger(config.NATS)
		if err != nil {
			return nil, nil, err
		}

		return logger, logger.Close, nil

	case SinkTypeNone:
		return Discard, noClose, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedSinkType, config.Type)
	}
}

// Discard drops every dump.
//
//nolint:gochecknoglobals // Stateless logger
var Discard coreapi.Logger = coreapi.LoggerFunc(func(string) {})

// MultiLogger fans every dump out to several loggers in order.
type MultiLogger struct {
	loggers []coreapi.Logger
}

// NewMultiLogger creates a fan-out logger. Nil loggers are skipped.
func NewMultiLogger(loggers ...coreapi.Logger) *MultiLogger {
	kept := make([]coreapi.Logger, 0, len(loggers))

	for _, logger := range loggers {
		if logger != nil {
			kept = append(kept, logger)
		}
	}

	return &MultiLogger{loggers: kept}
}

// Log implements coreapi.Logger.
func (m *MultiLogger) Log(message string) {
	for _, logger := range m.loggers {
		logger.Log(message)
	}
}
