package coreapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// RequestInterceptor is called after a request is built and before it is sent.
// An error fails the task before any network I/O.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor observes a completed task. It runs once per task on the
// transport goroutine, before any completion handler.
type ResponseInterceptor func(ctx context.Context, req *Request, outcome *Outcome) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, outcome *Outcome) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, outcome)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs requests at debug verbosity.
func LoggingInterceptor(logger logr.Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.V(constants.DebugLevel).Info("API Request", "method", req.Method, "url", req.URL.String())

		return nil
	}
}

// LoggingResponseInterceptor logs completed tasks. Transport failures are
// logged as errors.
func LoggingResponseInterceptor(logger logr.Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, outcome *Outcome) error {
		if outcome.Err != nil {
			logger.Error(outcome.Err, "API Response Error", "method", req.Method, "url", req.URL.String())

			return nil
		}

		logger.V(constants.DebugLevel).Info("API Response",
			"method", req.Method,
			"url", req.URL.String(),
			"status_code", outcome.Response.StatusCode,
		)

		return nil
	}
}

// AuthenticationInterceptor adds a bearer Authorization header.
func AuthenticationInterceptor(tokenProvider func(context.Context) (string, error)) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		token, err := tokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("failed to get authentication token: %w", err)
		}

		setHeader(req, constants.HeaderAuthorization, "Bearer "+token)

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests, replacing existing values.
func HeaderInterceptor(headers Headers) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		for _, key := range headers.Keys() {
			value, _ := headers.Get(key)
			setHeader(req, key, value)
		}

		return nil
	}
}

func setHeader(req *Request, key, value string) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	req.Header.Set(key, value)
}
