// Package coreapi provides the types shared by the payment API request
// pipeline: method descriptors, headers, URL targets, the error taxonomy and
// the response processor.
//
// # Overview
//
// A Method describes one call: verb, target, parameters encoding, headers and
// payload. The apisession package performs methods and hands back tasks; this
// package defines what those tasks resolve to. Most consumers build a
// Descriptor and a success type, then call apisession.Perform.
//
//	type Balance struct {
//	  Amount string `json:"amount"`
//	}
//
//	func (b *Balance) DecodeResponse(_ *coreapi.HTTPResponse, body []byte) error {
//	  return json.Unmarshal(body, b)
//	}
//
//	method := &coreapi.Descriptor{
//	  Verb:          http.MethodPost,
//	  HostKey:       "wallet",
//	  Path:          "/api/v1/balance",
//	  ParamEncoding: coreapi.EncodingJSON,
//	}
//
// # Errors
//
// Every failure is delivered through the task's completion, never panicked:
//
//   - BuildError: URL resolution or parameter encoding failed before any I/O.
//   - TransportError: no HTTP response was received.
//   - SerializationError: a response arrived but could not be decoded.
//   - APIError: a business rejection decoded from the body.
//
// APIError sentinels such as ErrInsufficientFunds work with errors.Is.
// IsRetryable and RetryAfter expose the server's retry hint for
// requestStateUnknown and technicalError; retry scheduling is left to the
// caller.
//
// # Response processing
//
// Process classifies status first: 500 is technicalError, 401 is
// invalidToken. Other statuses try the shared error shape, then a
// SpecificErrorDecoder hook on the success type, then the success decode.
package coreapi
