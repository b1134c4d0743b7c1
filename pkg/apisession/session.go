package apisession

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/internal/encoding"
	corehttp "github.com/fivetwenty-io/paycore/internal/http"
	"github.com/fivetwenty-io/paycore/internal/metrics"
	"github.com/fivetwenty-io/paycore/internal/telemetry"
	"github.com/fivetwenty-io/paycore/internal/tracelog"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Session performs methods against hosts resolved through a HostProvider.
// It is safe for concurrent use; every Perform produces an independent task.
type Session struct {
	hosts          coreapi.HostProvider
	transport      *corehttp.Client
	encoders       *encoding.Set
	defaultHeaders coreapi.Headers
	interceptors   *coreapi.InterceptorChain
	tracer         trace.Tracer
	logger         logr.Logger
	traceLogger    coreapi.Logger
	formatter      *tracelog.Formatter

	mu     sync.Mutex
	active map[*requestHandle]struct{}
	closed bool
}

// New creates a session.
func New(hosts coreapi.HostProvider, opts ...Option) *Session {
	o := &options{
		logger:         logr.Discard(),
		headersFactory: coreapi.DefaultHeadersFactory{},
		interceptors:   coreapi.NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.tracer == nil {
		o.tracer = telemetry.Tracer()
	}

	transportOpts := append([]corehttp.Option{corehttp.WithLogger(o.logger)}, o.transport...)

	signer := encoding.NewSigner(o.signingKey, o.issuer)

	encoders := encoding.NewSet(signer)
	encoders.JSON = encoding.NewJSONEncoder(o.jsonOptions...)

	return &Session{
		hosts:          hosts,
		transport:      corehttp.NewClient(transportOpts...),
		encoders:       encoders,
		defaultHeaders: o.headersFactory.MakeHeaders().Merge(o.headers),
		interceptors:   o.interceptors,
		tracer:         o.tracer,
		logger:         o.logger,
		traceLogger:    o.traceLogger,
		formatter:      tracelog.NewFormatter(),
		active:         make(map[*requestHandle]struct{}),
	}
}

// Hosts returns the session's host provider.
func (s *Session) Hosts() coreapi.HostProvider {
	return s.hosts
}

// DefaultHeaders returns the headers sent with every request.
func (s *Session) DefaultHeaders() coreapi.Headers {
	return s.defaultHeaders
}

// Perform builds and starts the request for method. It never fails directly:
// URL resolution and encoding errors produce a task that is born failed.
//
// R is the success type; its pointer implements coreapi.Decodable.
func Perform[R any, P coreapi.Decodable[R]](ctx context.Context, s *Session, method coreapi.Method, opts ...CallOption) *Task[R] {
	call := &callOptions{}
	for _, opt := range opts {
		opt(call)
	}

	decode := coreapi.Process[R, P]

	req, err := s.build(ctx, method, call.headers)
	if err != nil {
		s.fail(ctx, method, err)

		return &Task[R]{err: err, decode: decode}
	}

	handle := s.start(ctx, method, req)
	task := &Task[R]{handle: handle, decode: decode}

	runtime.AddCleanup(task, cancelUnobserved, handle)

	return task
}

// build resolves the URL, merges headers and encodes the payload.
func (s *Session) build(ctx context.Context, method coreapi.Method, callHeaders coreapi.Headers) (*coreapi.Request, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, coreapi.ErrSessionClosed
	}

	target, err := method.Target(s.hosts)
	if err != nil {
		var buildErr coreapi.BuildError
		if errors.As(err, &buildErr) {
			return nil, err
		}

		return nil, &coreapi.HostError{Err: err}
	}

	u, err := coreapi.ResolveURL(target)
	if err != nil {
		return nil, err
	}

	headers := s.defaultHeaders.Merge(method.Headers()).Merge(callHeaders)

	req := &coreapi.Request{
		Method: method.HTTPMethod(),
		URL:    u,
		Header: headers.HTTPHeader(),
	}

	body, err := s.encode(method)
	if err != nil {
		return nil, err
	}

	body.Apply(req)

	err = s.interceptors.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, &coreapi.InterceptorError{Err: err}
	}

	return req, nil
}

func (s *Session) encode(method coreapi.Method) (encoding.Body, error) {
	encoder, err := s.encoders.For(method.Encoding())
	if err == nil {
		var body encoding.Body

		body, err = encoder.Encode(method.Payload())
		if err == nil {
			return body, nil
		}
	}

	var buildErr coreapi.BuildError
	if errors.As(err, &buildErr) {
		return nil, err
	}

	return nil, &coreapi.EncodingError{Encoding: method.Encoding(), Err: err}
}

func (s *Session) start(ctx context.Context, method coreapi.Method, req *coreapi.Request) *requestHandle {
	handle := newRequestHandle(req)
	s.track(handle)

	s.logger.V(constants.DebugLevel).Info("Performing request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"encoding", method.Encoding().String(),
	)

	spanCtx, span := telemetry.StartRequestSpan(ctx, s.tracer, req, method.Encoding())
	started := time.Now()

	metrics.RecordRequestStart()

	op := s.transport.Start(spanCtx, req, func(result corehttp.Result) {
		outcome := coreapi.Outcome{
			Request:  req,
			Response: result.Response,
			Body:     result.Body,
			Err:      result.Err,
		}

		err := s.interceptors.ExecuteResponseInterceptors(ctx, req, &outcome)
		if err != nil {
			s.logger.Error(err, "Response interceptor failed", "url", req.URL.Redacted())
		}

		metrics.RecordRequestComplete(req.Method, outcome, time.Since(started))
		telemetry.EndRequestSpan(span, outcome)
		s.trace(outcome)
		s.untrack(handle)

		handle.complete(outcome)
	})

	handle.attach(op)

	return handle
}

func (s *Session) fail(ctx context.Context, method coreapi.Method, err error) {
	s.logger.V(constants.DebugLevel).Info("Request build failed", "method", method.HTTPMethod(), "error", err.Error())

	metrics.RecordBuildFailure(method.HTTPMethod())
	telemetry.RecordBuildFailure(ctx, s.tracer, err)
	s.trace(coreapi.Outcome{Err: err})
}

func (s *Session) trace(outcome coreapi.Outcome) {
	if s.traceLogger == nil {
		return
	}

	s.traceLogger.Log(s.formatter.Format(outcome))
}

func (s *Session) track(handle *requestHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[handle] = struct{}{}
}

func (s *Session) untrack(handle *requestHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, handle)
}

// InFlight returns the number of running requests.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// CancelAll cancels every running request. Their tasks complete with a
// canceled transport error unless the response already arrived.
func (s *Session) CancelAll() {
	s.mu.Lock()
	handles := make([]*requestHandle, 0, len(s.active))

	for handle := range s.active {
		handles = append(handles, handle)
	}
	s.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
	}
}

// Close cancels running requests. Tasks performed afterwards are born failed
// with coreapi.ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.CancelAll()
}
