package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/paycore/internal/auth"
	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/apisession"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
	"github.com/fivetwenty-io/paycore/pkg/logsink"
)

// ErrorInfo is the printable form of a classified error.
type ErrorInfo struct {
	Type         string `json:"type"                     yaml:"type"`
	Kind         string `json:"kind,omitempty"           yaml:"kind,omitempty"`
	Code         string `json:"code,omitempty"           yaml:"code,omitempty"`
	Message      string `json:"message"                  yaml:"message"`
	Parameter    string `json:"parameter,omitempty"      yaml:"parameter,omitempty"`
	Status       string `json:"status,omitempty"         yaml:"status,omitempty"`
	URI          string `json:"uri,omitempty"            yaml:"uri,omitempty"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty" yaml:"retry_after_ms,omitempty"`
}

// writeOutput renders value as json or yaml, or calls addRows on a
// Property/Value table.
func writeOutput(out io.Writer, value any, addRows func(*tablewriter.Table) error) error {
	return writeTable(out, value, []string{"Property", "Value"}, addRows)
}

// writeTable is writeOutput with custom table headers.
func writeTable(out io.Writer, value any, headers []string, addRows func(*tablewriter.Table) error) error {
	switch viper.GetString("output") {
	case constants.OutputFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", constants.JSONIndent)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode output as JSON: %w", err)
		}

		return nil
	case constants.OutputFormatYAML:
		encoder := yaml.NewEncoder(out)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode output as YAML: %w", err)
		}

		return nil
	default:
		cells := make([]any, len(headers))
		for i, header := range headers {
			cells[i] = header
		}

		table := tablewriter.NewWriter(out)
		table.Header(cells...)

		err := addRows(table)
		if err != nil {
			return err
		}

		err = table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

func appendRows(table *tablewriter.Table, rows [][]string) error {
	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append row %s: %w", row[0], err)
		}
	}

	return nil
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// parseKeyValues parses repeated Key=Value flags.
func parseKeyValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidKeyValue, pair)
		}

		values[key] = value
	}

	return values, nil
}

// payloadFromFlags returns the JSON document in data, or params as a flat
// object. Nil means no parameters.
func payloadFromFlags(data string, params []string) (any, error) {
	if data != "" {
		var payload any

		err := json.Unmarshal([]byte(data), &payload)
		if err != nil {
			return nil, fmt.Errorf("failed to parse --data as JSON: %w", err)
		}

		return payload, nil
	}

	if len(params) == 0 {
		return nil, nil //nolint:nilnil // No parameters is not an error
	}

	return parseKeyValues(params)
}

// newLogger returns a stdr logger on stderr. Verbose output enables debug
// events.
func newLogger() logr.Logger {
	if viper.GetBool("verbose") {
		stdr.SetVerbosity(constants.DebugLevel)
	}

	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// newTraceLogger builds the trace sink selected by --trace or trace_sink.
func newTraceLogger(config *Config, logger logr.Logger) (coreapi.Logger, func() error, error) {
	sinkType := logsink.SinkType(config.TraceSink)

	if sinkType == "" {
		if !viper.GetBool("trace") {
			return nil, func() error { return nil }, nil
		}

		sinkType = logsink.SinkTypeConsole
	}

	sinkConfig := &logsink.Config{
		Type:   sinkType,
		Prefix: constants.ConsoleLogPrefix,
		Log:    logger,
	}

	if sinkType == logsink.SinkTypeNATS {
		sinkConfig.NATS = &logsink.NATSConfig{
			URL:     config.NATSURL,
			Subject: config.TraceSubject,
			Name:    "coreapi-cli",
		}
	}

	return logsink.NewFromConfig(sinkConfig)
}

// newSession creates a session from the CLI configuration. A stored access
// token is sent as a bearer Authorization header and dropped on 401. The
// returned function closes the session and its trace sink.
func newSession(config *Config, logger logr.Logger) (*apisession.Session, func(), error) {
	if len(config.Hosts) == 0 {
		return nil, nil, constants.ErrNoHostsConfigured
	}

	coreConfig, err := config.CoreConfig(logger)
	if err != nil {
		return nil, nil, err
	}

	traceLogger, closeTrace, err := newTraceLogger(config, logger)
	if err != nil {
		return nil, nil, err
	}

	coreConfig.TraceLogger = traceLogger

	var opts []apisession.Option

	if token := accessToken(config); token != nil {
		manager := auth.NewTokenManager(token, NewConfigPersister(), logger)
		opts = append(opts,
			apisession.WithRequestInterceptor(manager.RequestInterceptor()),
			apisession.WithResponseInterceptor(manager.ResponseInterceptor()),
		)
	}

	session, err := apisession.NewFromConfig(coreConfig, opts...)
	if err != nil {
		_ = closeTrace()

		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	cleanup := func() {
		session.Close()

		err := closeTrace()
		if err != nil {
			logger.Error(err, "Failed to close trace sink")
		}
	}

	return session, cleanup, nil
}

// describeError classifies err for printing.
func describeError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	info := &ErrorInfo{Message: err.Error()}

	if apiErr, ok := coreapi.AsAPIError(err); ok {
		info.Type = "api"
		info.Kind = apiErr.Kind.String()
		info.Code = apiErr.Code
		info.Parameter = apiErr.ParameterName
		info.Status = apiErr.Status
		info.URI = apiErr.URI

		if retry, ok := coreapi.RetryAfter(err); ok {
			info.RetryAfterMs = retry.Milliseconds()
		}

		return info
	}

	switch {
	case coreapi.IsBuildError(err), errors.Is(err, coreapi.ErrSessionClosed):
		info.Type = "build"
	case coreapi.IsCanceled(err):
		info.Type = "canceled"
	case coreapi.IsTransportError(err):
		info.Type = "transport"
	case coreapi.IsSerializationError(err):
		info.Type = "serialization"
	default:
		info.Type = "other"
	}

	return info
}

func errorRows(info *ErrorInfo) [][]string {
	rows := [][]string{{"Error Type", info.Type}}

	optional := [][]string{
		{"Error Kind", info.Kind},
		{"Error Code", info.Code},
		{"Parameter", info.Parameter},
		{"Order Status", info.Status},
		{"URI", info.URI},
	}

	for _, row := range optional {
		if row[1] != "" {
			rows = append(rows, row)
		}
	}

	if info.RetryAfterMs > 0 {
		rows = append(rows, []string{"Retry After", fmt.Sprintf("%d ms", info.RetryAfterMs)})
	}

	return append(rows, []string{"Message", info.Message})
}
