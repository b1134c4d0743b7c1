package coreapi

import (
	"errors"
	"fmt"
)

// Static errors for err113 compliance.
var (
	// ErrCanceled matches a transport error caused by cancellation.
	ErrCanceled = errors.New("canceled")

	// ErrSessionClosed is returned by tasks performed on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidKey is returned when the signing key is missing or is not a
	// 32-byte P-256 scalar.
	ErrInvalidKey = errors.New("private key not set or does not conform ES256")

	// ErrIssuerClaimNotSet is returned when signing without an issuer claim.
	ErrIssuerClaimNotSet = errors.New("issuer claim (ISS) not set")

	// ErrUnsupportedPayload is returned by encoders for payloads they cannot
	// serialize.
	ErrUnsupportedPayload = errors.New("unsupported payload")

	// ErrNoResponse is returned when an outcome carries neither a response
	// nor an error.
	ErrNoResponse = errors.New("no response")

	// ErrNotJSONObject is returned when a body is valid JSON but not an object.
	ErrNotJSONObject = errors.New("response is not a JSON object")
)

// BuildError marks failures detected before any network I/O: URL resolution
// and parameter encoding. Tasks carrying one never reach the transport.
type BuildError interface {
	error
	buildError()
}

// UnknownKeyError is returned by a HostProvider for an unregistered key.
type UnknownKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("Unknown host key '%s'", e.Key)
}

func (*UnknownKeyError) buildError() {}

// HostError wraps a HostProvider failure.
type HostError struct {
	Err error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the provider error.
func (e *HostError) Unwrap() error {
	return e.Err
}

func (*HostError) buildError() {}

// IllegalURLError is returned when a host string cannot be parsed as a URL
// authority.
type IllegalURLError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *IllegalURLError) Error() string {
	return fmt.Sprintf("Illegal URL '%s'", e.URL)
}

// Unwrap returns the parse error, if any.
func (e *IllegalURLError) Unwrap() error {
	return e.Err
}

func (*IllegalURLError) buildError() {}

// EncodingError wraps a parameter encoder failure.
type EncodingError struct {
	Encoding ParametersEncoding
	Err      error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s encoding failed: %v", e.Encoding, e.Err)
}

// Unwrap returns the encoder error.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (*EncodingError) buildError() {}

// IllegalParametersError is returned when a payload cannot be serialized to a
// JSON object.
type IllegalParametersError struct {
	Err error
}

// Error implements the error interface.
func (e *IllegalParametersError) Error() string {
	if e.Err == nil {
		return "illegal parameters"
	}

	return "illegal parameters: " + e.Err.Error()
}

// Unwrap returns the serializer error.
func (e *IllegalParametersError) Unwrap() error {
	return e.Err
}

// UnknownEncodingError is returned for an unrecognised encoding name.
type UnknownEncodingError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownEncodingError) Error() string {
	return fmt.Sprintf("unknown parameters encoding '%s'", e.Name)
}

func (*UnknownEncodingError) buildError() {}

// InterceptorError wraps a request interceptor failure.
type InterceptorError struct {
	Err error
}

// Error implements the error interface.
func (e *InterceptorError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the interceptor error.
func (e *InterceptorError) Unwrap() error {
	return e.Err
}

func (*InterceptorError) buildError() {}

// TransportError is an I/O failure where no HTTP response was received.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

// Unwrap returns the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// SerializationError is returned when a response was received but neither an
// API error nor the expected success shape could be decoded.
type SerializationError struct {
	StatusCode int
	Text       string
	Err        error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return "Can't parse response data: " + e.Text
}

// Unwrap returns the decoder error, if any.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsBuildError reports whether err was raised before any network I/O.
func IsBuildError(err error) bool {
	var buildErr BuildError

	return errors.As(err, &buildErr)
}

// IsTransportError reports whether err is an I/O failure.
func IsTransportError(err error) bool {
	transportErr := &TransportError{}

	return errors.As(err, &transportErr)
}

// IsSerializationError reports whether err is an undecodable response.
func IsSerializationError(err error) bool {
	serializationErr := &SerializationError{}

	return errors.As(err, &serializationErr)
}

// IsCanceled reports whether err was caused by cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
