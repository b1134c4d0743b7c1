package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Client starts transport operations for built requests.
//
// Retries only cover connection failures and are disabled by default. HTTP
// statuses are always returned to the caller, bodies included.
type Client struct {
	httpClient *retryablehttp.Client
	logger     logr.Logger
	debug      bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger logr.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug forwards retryablehttp request events to the logger at V(1).
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets retry limits for connection failures.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a transport client.
func NewClient(opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = cleanhttp.DefaultPooledClient()
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.CheckRetry = retryConnectionErrors
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		httpClient: retryClient,
		logger:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.debug {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	return client
}

// NewInsecureHTTPClient returns a pooled client that skips TLS verification.
// It refuses unless COREAPI_DEV_MODE is "true" or "1".
func NewInsecureHTTPClient() (*http.Client, error) {
	if !IsDevelopmentEnvironment() {
		return nil, constants.ErrSSLOnlyInDev
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- Protected by development environment check above

	return &http.Client{Transport: transport, Timeout: constants.DefaultHTTPTimeout}, nil
}

// IsDevelopmentEnvironment checks if we're in a development environment.
func IsDevelopmentEnvironment() bool {
	devMode := os.Getenv("COREAPI_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

// Result is the raw outcome of one operation. Err is a *coreapi.TransportError
// when set.
type Result struct {
	Response *coreapi.HTTPResponse
	Body     []byte
	Err      error
}

// Start sends req on a new goroutine and returns its operation. done is
// called exactly once with the result, before Operation.Done is closed.
func (c *Client) Start(ctx context.Context, req *coreapi.Request, done func(Result)) *Operation {
	opCtx, cancel := context.WithCancelCause(ctx)
	op := newOperation(cancel)

	go func() {
		defer close(op.done)
		defer cancel(nil)

		result := c.do(opCtx, op, req)

		done(result)
	}()

	return op
}

// Do sends req and waits for the result.
func (c *Client) Do(ctx context.Context, req *coreapi.Request) Result {
	var result Result

	op := c.Start(ctx, req, func(r Result) {
		result = r
	})

	<-op.Done()

	return result
}

func (c *Client) do(ctx context.Context, op *Operation, req *coreapi.Request) Result {
	err := op.wait(ctx)
	if err != nil {
		return Result{Err: transportError(ctx, err)}
	}

	var rawBody interface{}
	if len(req.Body) > 0 {
		rawBody = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL.String(), rawBody)
	if err != nil {
		return Result{Err: transportError(ctx, fmt.Errorf("creating request: %w", err))}
	}

	for key, values := range req.Header {
		httpReq.Header[key] = append([]string(nil), values...)
	}

	c.logger.V(constants.DebugLevel).Info("HTTP Request", "method", req.Method, "url", req.URL.Redacted())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}

		return Result{Err: transportError(ctx, err)}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	header := resp.Header.Clone()

	var body io.Reader = &pausingReader{ctx: ctx, op: op, reader: resp.Body}

	if strings.EqualFold(header.Get("Content-Encoding"), "gzip") {
		header.Del("Content-Encoding")
		header.Del("Content-Length")

		gz, err := gzip.NewReader(body)

		switch {
		case errors.Is(err, io.EOF):
			body = http.NoBody
		case err != nil:
			return Result{Err: transportError(ctx, fmt.Errorf("reading gzip body: %w", err))}
		default:
			defer func() {
				_ = gz.Close()
			}()

			body = gz
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return Result{Err: transportError(ctx, fmt.Errorf("reading response body: %w", err))}
	}

	c.logger.V(constants.DebugLevel).Info("HTTP Response", "status_code", resp.StatusCode, "bytes", len(data))

	return Result{
		Response: &coreapi.HTTPResponse{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     header,
		},
		Body: data,
	}
}

// retryConnectionErrors retries only when no response was received.
func retryConnectionErrors(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, context.Cause(ctx)
	}

	return err != nil, nil
}

func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, coreapi.ErrCanceled):
	case errors.Is(context.Cause(ctx), coreapi.ErrCanceled), errors.Is(err, context.Canceled):
		err = fmt.Errorf("%w: %w", coreapi.ErrCanceled, err)
	default:
	}

	return &coreapi.TransportError{Err: err}
}

// leveledLogger adapts logr to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logr.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	var err error

	rest := make([]interface{}, 0, len(keysAndValues))

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if keysAndValues[i] == "error" {
			if e, ok := keysAndValues[i+1].(error); ok {
				err = e

				continue
			}
		}

		rest = append(rest, keysAndValues[i], keysAndValues[i+1])
	}

	l.logger.Error(err, msg, rest...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.V(constants.DebugLevel).Info(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, append(keysAndValues, "level", "warn")...)
}
