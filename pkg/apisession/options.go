package apisession

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/paycore/internal/encoding"
	corehttp "github.com/fivetwenty-io/paycore/internal/http"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	logger         logr.Logger
	traceLogger    coreapi.Logger
	signingKey     []byte
	issuer         coreapi.IssuerClaim
	headersFactory coreapi.HeadersFactory
	headers        coreapi.Headers
	tracer         trace.Tracer
	jsonOptions    []encoding.JSONOption
	transport      []corehttp.Option
	interceptors   *coreapi.InterceptorChain
}

// WithLogger sets the structured logger for session and transport events.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTraceLogger receives one request/response dump per completed task.
func WithTraceLogger(logger coreapi.Logger) Option {
	return func(o *options) {
		o.traceLogger = logger
	}
}

// WithSigningKey sets the raw 32-byte ES256 key used by jws methods. An
// invalid key is reported when a jws method is performed.
func WithSigningKey(key []byte) Option {
	return func(o *options) {
		o.signingKey = append([]byte(nil), key...)
	}
}

// WithIssuerClaim sets the iss claim of signed envelopes.
func WithIssuerClaim(claim coreapi.IssuerClaim) Option {
	return func(o *options) {
		o.issuer = claim
	}
}

// WithHeadersFactory replaces the default header factory.
func WithHeadersFactory(factory coreapi.HeadersFactory) Option {
	return func(o *options) {
		o.headersFactory = factory
	}
}

// WithDefaultHeaders adds session-wide headers. They override the factory's.
func WithDefaultHeaders(headers coreapi.Headers) Option {
	return func(o *options) {
		o.headers = o.headers.Merge(headers)
	}
}

// WithTracer sets the OpenTelemetry tracer for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithJSONOptions configures the json parameters encoder.
func WithJSONOptions(opts ...encoding.JSONOption) Option {
	return func(o *options) {
		o.jsonOptions = append(o.jsonOptions, opts...)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.transport = append(o.transport, corehttp.WithHTTPClient(client))
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.transport = append(o.transport, corehttp.WithTimeout(timeout))
	}
}

// WithRetryConfig enables transport retries on connection failures. It is
// transport configuration: the request pipeline itself never retries, HTTP
// responses are never resent, and a Session without this option makes exactly
// one attempt per Perform.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *options) {
		o.transport = append(o.transport, corehttp.WithRetryConfig(maxRetries, waitMin, waitMax))
	}
}

// WithDebug logs transport events at V(1).
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.transport = append(o.transport, corehttp.WithDebug(debug))
	}
}

// WithRequestInterceptor runs interceptor on every built request before it is
// sent. A failing interceptor fails the task before any I/O.
func WithRequestInterceptor(interceptor coreapi.RequestInterceptor) Option {
	return func(o *options) {
		o.interceptors.AddRequestInterceptor(interceptor)
	}
}

// WithResponseInterceptor runs interceptor on every outcome before handlers
// see it.
func WithResponseInterceptor(interceptor coreapi.ResponseInterceptor) Option {
	return func(o *options) {
		o.interceptors.AddResponseInterceptor(interceptor)
	}
}

// CallOption configures a single Perform call.
type CallOption func(*callOptions)

type callOptions struct {
	headers coreapi.Headers
}

// WithHeaders sets call-site headers. They override method and session
// headers.
func WithHeaders(headers coreapi.Headers) CallOption {
	return func(o *callOptions) {
		o.headers = o.headers.Merge(headers)
	}
}
