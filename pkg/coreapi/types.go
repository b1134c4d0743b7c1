package coreapi

import (
	"net/http"
	"net/url"
)

// Request is the outgoing HTTP request built for a method.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	clone := &Request{
		Method: r.Method,
		Header: r.Header.Clone(),
	}

	if r.URL != nil {
		u := *r.URL
		clone.URL = &u
	}

	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}

	return clone
}

// HTTPResponse carries the response metadata received from the server.
type HTTPResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
}

// Outcome is the terminal state of one task as seen by raw completion handlers.
// Request is nil when the task failed before a request could be built.
type Outcome struct {
	Request  *Request
	Response *HTTPResponse
	Body     []byte
	Err      error
}

// ParametersEncoding selects how a method's payload is put on the wire.
type ParametersEncoding int

const (
	// EncodingQuery form-encodes the payload (query string for GET/HEAD/DELETE,
	// application/x-www-form-urlencoded body otherwise).
	EncodingQuery ParametersEncoding = iota
	// EncodingJSON sends the payload as an application/json body.
	EncodingJSON
	// EncodingJWS signs the payload and sends it as the form field "request".
	EncodingJWS
)

// String implements fmt.Stringer.
func (e ParametersEncoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingJSON:
		return "json"
	case EncodingJWS:
		return "jws"
	default:
		return "unknown"
	}
}

// ParseParametersEncoding parses the names produced by String.
func ParseParametersEncoding(name string) (ParametersEncoding, error) {
	switch name {
	case "query", "url":
		return EncodingQuery, nil
	case "json":
		return EncodingJSON, nil
	case "jws":
		return EncodingJWS, nil
	default:
		return EncodingQuery, &UnknownEncodingError{Name: name}
	}
}

// IssuerClaim identifies the signer of a JWS envelope.
type IssuerClaim struct {
	kind  string
	value string
}

// ClientID is the claim for an identifier issued to a registered app.
func ClientID(id string) IssuerClaim {
	return IssuerClaim{kind: "clientId", value: id}
}

// InstanceID is the claim for a unique identifier of one app instance.
func InstanceID(id string) IssuerClaim {
	return IssuerClaim{kind: "instanceId", value: id}
}

// IsZero reports whether the claim is unset.
func (c IssuerClaim) IsZero() bool {
	return c.kind == ""
}

// String returns the wire form "<kind>:<id>".
func (c IssuerClaim) String() string {
	if c.IsZero() {
		return ""
	}

	return c.kind + ":" + c.value
}
