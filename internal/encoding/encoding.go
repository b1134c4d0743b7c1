// Package encoding implements the parameter encoders: query string, JSON body
// and the ES256 signed envelope.
package encoding

import (
	"fmt"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Body is an encoded payload ready to be put on a request.
type Body interface {
	Apply(req *coreapi.Request)
}

// Encoder serializes a method payload. Implementations are stateless and
// safe for concurrent use.
type Encoder interface {
	Encode(payload any) (Body, error)
}

// Set holds one encoder per ParametersEncoding.
type Set struct {
	Query Encoder
	JSON  Encoder
	JWS   Encoder
}

// NewSet builds the default encoders. The JWS encoder signs with signer.
func NewSet(signer *Signer) *Set {
	return &Set{
		Query: NewQueryEncoder(),
		JSON:  NewJSONEncoder(),
		JWS:   NewJWSEncoder(signer),
	}
}

// For returns the encoder for encoding.
func (s *Set) For(encoding coreapi.ParametersEncoding) (Encoder, error) {
	var encoder Encoder

	switch encoding {
	case coreapi.EncodingQuery:
		encoder = s.Query
	case coreapi.EncodingJSON:
		encoder = s.JSON
	case coreapi.EncodingJWS:
		encoder = s.JWS
	default:
		return nil, &coreapi.UnknownEncodingError{Name: encoding.String()}
	}

	if encoder == nil {
		return nil, fmt.Errorf("%w: no %s encoder configured", coreapi.ErrUnsupportedPayload, encoding)
	}

	return encoder, nil
}

type emptyBody struct{}

func (emptyBody) Apply(*coreapi.Request) {}
