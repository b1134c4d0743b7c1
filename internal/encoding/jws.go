package encoding

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// canonical writes sorted keys without HTML escaping.
var canonical = jsoniter.Config{SortMapKeys: true, UseNumber: true}.Froze()

type jwsHeader struct {
	Alg string `json:"alg"`
	Iat int64  `json:"iat"`
	Iss string `json:"iss"`
}

// Signer builds compact ES256 JWS tokens.
//
// A signer without a usable key or issuer claim is valid to construct; Sign
// reports the problem instead.
type Signer struct {
	key    *ecdsa.PrivateKey
	issuer coreapi.IssuerClaim
	now    func() time.Time
}

// NewSigner creates a signer for a raw 32-byte P-256 private key.
func NewSigner(key []byte, issuer coreapi.IssuerClaim) *Signer {
	signer := &Signer{issuer: issuer, now: time.Now}

	if len(key) == constants.JWSKeySize {
		if parsed, err := ecdsa.ParseRawPrivateKey(elliptic.P256(), key); err == nil {
			signer.key = parsed
		}
	}

	return signer
}

// DecodeSigningKey decodes a base64url key, padded or not, and checks its size.
func DecodeSigningKey(encoded string) ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidSigningKey, err)
	}

	if len(key) != constants.JWSKeySize {
		return nil, coreapi.ErrInvalidKey
	}

	return key, nil
}

// WithClock returns a copy of the signer that reads iat from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	clone := *s
	clone.now = now

	return &clone
}

// HasKey reports whether the signer holds a valid key.
func (s *Signer) HasKey() bool {
	return s != nil && s.key != nil
}

// Issuer returns the issuer claim.
func (s *Signer) Issuer() coreapi.IssuerClaim {
	return s.issuer
}

// Sign returns header.payload.signature for payload, each part base64url
// encoded without padding. The payload must serialize to a JSON object; nil
// signs an empty object.
func (s *Signer) Sign(payload any) (string, error) {
	payloadJSON, err := canonicalObject(payload)
	if err != nil {
		return "", err
	}

	if s == nil || s.issuer.IsZero() {
		return "", coreapi.ErrIssuerClaimNotSet
	}

	if s.key == nil {
		return "", coreapi.ErrInvalidKey
	}

	headerJSON, err := canonical.Marshal(jwsHeader{
		Alg: constants.JWSAlgorithm,
		Iat: s.now().UnixMilli(),
		Iss: s.issuer.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal JWS header: %w", err)
	}

	message := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)

	digest := sha256.Sum256([]byte(message))

	r, sig, err := ecdsa.Sign(rand.Reader, s.key, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign JWS: %w", err)
	}

	// ES256 signatures are the fixed-width concatenation r||s.
	signature := make([]byte, 2*constants.JWSKeySize)
	r.FillBytes(signature[:constants.JWSKeySize])
	sig.FillBytes(signature[constants.JWSKeySize:])

	return message + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

func canonicalObject(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}

	data, err := canonical.Marshal(payload)
	if err != nil {
		return nil, &coreapi.IllegalParametersError{Err: err}
	}

	var object map[string]any

	err = canonical.Unmarshal(data, &object)
	if err != nil || object == nil {
		return nil, &coreapi.IllegalParametersError{
			Err: fmt.Errorf("%w: %T is not an object", coreapi.ErrUnsupportedPayload, payload),
		}
	}

	data, err = canonical.Marshal(object)
	if err != nil {
		return nil, &coreapi.IllegalParametersError{Err: err}
	}

	return data, nil
}

// JWSEncoder signs the payload and sends the token as the form field
// "request".
type JWSEncoder struct {
	signer *Signer
}

// NewJWSEncoder creates a JWS encoder. A nil signer fails every Encode.
func NewJWSEncoder(signer *Signer) *JWSEncoder {
	return &JWSEncoder{signer: signer}
}

// Encode implements Encoder.
func (e *JWSEncoder) Encode(payload any) (Body, error) {
	token, err := e.signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	return &QueryBody{Values: url.Values{constants.JWSFormField: []string{token}}}, nil
}
