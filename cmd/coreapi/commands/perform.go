package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/internal/telemetry"
	"github.com/fivetwenty-io/paycore/pkg/apisession"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// PerformResult is the printable outcome of one performed method.
type PerformResult struct {
	Method     string     `json:"method"                yaml:"method"`
	URL        string     `json:"url,omitempty"         yaml:"url,omitempty"`
	StatusCode int        `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Status     string     `json:"status,omitempty"      yaml:"status,omitempty"`
	Body       string     `json:"body,omitempty"        yaml:"body,omitempty"`
	Error      *ErrorInfo `json:"error,omitempty"       yaml:"error,omitempty"`
}

type performOptions struct {
	hostKey  string
	rawURL   string
	method   string
	encoding string
	data     string
	params   []string
	headers  []string
	metrics  bool
}

// NewPerformCommand creates the perform command.
func NewPerformCommand(version string) *cobra.Command {
	opts := &performOptions{}

	cmd := &cobra.Command{
		Use:   "perform [PATH]",
		Short: "Perform an API method",
		Long: `Perform one API method through a session built from the configuration.

The target is either a host key plus path or a full URL. Parameters are
encoded as query, json or jws (signed with the configured key and issuer).`,
		Example: `  coreapi perform --host-key money /api/account-info
  coreapi perform --host-key money /api/request-payment --encoding jws -p amount=10.00
  coreapi perform --url https://example.com/api/ping --method GET`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			method, err := opts.descriptor(path)
			if err != nil {
				return err
			}

			callHeaders, err := parseKeyValues(opts.headers)
			if err != nil {
				return err
			}

			logger := newLogger()

			shutdown, err := telemetry.InitTraceProvider(cmd.Context(), viper.GetString("otlp_endpoint"), version)
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}

			defer func() {
				err := shutdown(context.Background())
				if err != nil {
					logger.Error(err, "Failed to shut down trace provider")
				}
			}()

			session, cleanup, err := newSession(loadConfig(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			result := Perform(cmd.Context(), session, method, coreapi.HeadersOf(flattenPairs(callHeaders)...))

			err = writePerformResult(cmd.OutOrStdout(), result)
			if err != nil {
				return err
			}

			if opts.metrics {
				err = writeMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer)
				if err != nil {
					return err
				}
			}

			if result.Error != nil {
				return fmt.Errorf("%s error: %s", result.Error.Type, result.Error.Message) //nolint:err113 // Message carries the classified error
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.hostKey, "host-key", "", "host key the path is resolved against")
	cmd.Flags().StringVar(&opts.rawURL, "url", "", "full URL to send the method to")
	cmd.Flags().StringVarP(&opts.method, "method", "X", "POST", "HTTP method")
	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "query", "parameter encoding (query, json, jws)")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON object sent as parameters")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "header as Key=Value (repeatable)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print request metrics after the result")

	return cmd
}

func (o *performOptions) descriptor(path string) (*coreapi.Descriptor, error) {
	if o.rawURL == "" && o.hostKey == "" {
		return nil, constants.ErrTargetRequired
	}

	encoding, err := coreapi.ParseParametersEncoding(o.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidEncoding, o.encoding)
	}

	params, err := payloadFromFlags(o.data, o.params)
	if err != nil {
		return nil, err
	}

	method := &coreapi.Descriptor{
		Verb:          strings.ToUpper(o.method),
		HostKey:       o.hostKey,
		Path:          path,
		ParamEncoding: encoding,
		Params:        params,
	}

	if o.rawURL != "" {
		parsed, err := url.Parse(o.rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid --url: %w", err)
		}

		method.URL = parsed
	}

	return method, nil
}

// Perform runs method on session and waits for its outcome. The wait is
// bounded by DefaultAwaitTimeout; on timeout the task is canceled.
func Perform(ctx context.Context, session *apisession.Session, method coreapi.Method, headers coreapi.Headers) *PerformResult {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultAwaitTimeout)
	defer cancel()

	outcomes := make(chan coreapi.Outcome, 1)

	task := apisession.Perform[coreapi.TextResponse](ctx, session, method, apisession.WithHeaders(headers))
	task.ResponseOn(apisession.Inline, func(outcome coreapi.Outcome) {
		outcomes <- outcome
	})

	result := &PerformResult{Method: method.HTTPMethod()}

	var outcome coreapi.Outcome

	select {
	case outcome = <-outcomes:
	case <-ctx.Done():
		task.Cancel()

		outcome = <-outcomes
	}

	if outcome.Request != nil && outcome.Request.URL != nil {
		result.URL = outcome.Request.URL.String()
	}

	if outcome.Response != nil {
		result.StatusCode = outcome.Response.StatusCode
		result.Status = outcome.Response.Status
	}

	text, err := coreapi.Process[coreapi.TextResponse](outcome)
	if err != nil {
		result.Error = describeError(err)
		if len(outcome.Body) > 0 {
			result.Body = string(outcome.Body)
		}

		return result
	}

	result.Body = text.Text

	return result
}

func writePerformResult(out io.Writer, result *PerformResult) error {
	return writeOutput(out, result, func(table *tablewriter.Table) error {
		rows := [][]string{{"Method", result.Method}}

		if result.URL != "" {
			rows = append(rows, []string{"URL", result.URL})
		}

		if result.Status != "" {
			rows = append(rows, []string{"Status", result.Status})
		}

		if result.Body != "" {
			rows = append(rows, []string{"Body", result.Body})
		}

		if result.Error != nil {
			rows = append(rows, errorRows(result.Error)...)
		}

		return appendRows(table, rows)
	})
}

// writeMetrics prints the coreapi_ metric samples gathered from gatherer.
func writeMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "coreapi_") {
			continue
		}

		for _, metric := range family.GetMetric() {
			_, err = fmt.Fprintf(out, "%s%s %s\n", family.GetName(), formatLabels(metric.GetLabel()), formatSample(family.GetType(), metric))
			if err != nil {
				return fmt.Errorf("failed to write metric %s: %w", family.GetName(), err)
			}
		}
	}

	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func formatSample(kind dto.MetricType, metric *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", metric.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", metric.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		histogram := metric.GetHistogram()

		return fmt.Sprintf("count=%d sum=%g", histogram.GetSampleCount(), histogram.GetSampleSum())
	default:
		return "-"
	}
}

func flattenPairs(values map[string]string) []string {
	pairs := make([]string, 0, len(values)*2)
	for _, key := range sortedKeys(values) {
		pairs = append(pairs, key, values[key])
	}

	return pairs
}
