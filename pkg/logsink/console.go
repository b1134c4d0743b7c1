package logsink

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// ConsoleLogger writes each dump to a writer, prefixed and followed by a
// newline. Concurrent dumps are not interleaved.
type ConsoleLogger struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// NewConsoleLogger creates a console logger.
func NewConsoleLogger(out io.Writer, prefix string) *ConsoleLogger {
	return &ConsoleLogger{out: out, prefix: prefix}
}

// Log implements coreapi.Logger.
func (c *ConsoleLogger) Log(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.out, "%s %s\n", c.prefix, message)
}

// LogrLogger forwards dumps to a structured logger at debug verbosity.
type LogrLogger struct {
	logger logr.Logger
}

// NewLogrLogger creates a logr-backed trace logger.
func NewLogrLogger(logger logr.Logger) *LogrLogger {
	return &LogrLogger{logger: logger}
}

// Log implements coreapi.Logger.
func (l *LogrLogger) Log(message string) {
	l.logger.V(constants.DebugLevel).Info("Request trace", "dump", message)
}
