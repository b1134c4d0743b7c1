package coreapi

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// json decodes response bodies; it honours encoding/json tags and Unmarshaler.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decodable is the contract of a success response type R: its pointer decodes
// itself from the response metadata and body.
type Decodable[R any] interface {
	*R
	DecodeResponse(resp *HTTPResponse, body []byte) error
}

// SpecificErrorDecoder is implemented by response types that map bespoke error
// shapes. It is consulted after the shared API error shape and before the
// success decode; a nil return falls through.
type SpecificErrorDecoder interface {
	SpecificError(resp *HTTPResponse, body []byte) error
}

// Process turns a task outcome into a decoded R or a classified error.
//
// Order: outcome error, status 500, status 401, API error body, SpecificError
// hook, success decode (2xx only), SerializationError.
func Process[R any, P Decodable[R]](outcome Outcome) (*R, error) {
	if outcome.Err != nil {
		return nil, transportFailure(outcome.Err)
	}

	if outcome.Response == nil {
		return nil, &TransportError{Err: ErrNoResponse}
	}

	err := ClassifyStatus(outcome.Response.StatusCode, outcome.Body)
	if err != nil {
		return nil, err
	}

	value := new(R)

	if hook, ok := any(P(value)).(SpecificErrorDecoder); ok {
		if specific := hook.SpecificError(outcome.Response, outcome.Body); specific != nil {
			return nil, specific
		}
	}

	if !isSuccess(outcome.Response.StatusCode) {
		return nil, &SerializationError{StatusCode: outcome.Response.StatusCode, Text: string(outcome.Body)}
	}

	decodeErr := P(value).DecodeResponse(outcome.Response, outcome.Body)
	if decodeErr != nil {
		return nil, &SerializationError{
			StatusCode: outcome.Response.StatusCode,
			Text:       string(outcome.Body),
			Err:        decodeErr,
		}
	}

	return value, nil
}

// ClassifyStatus applies the status-driven rules and the shared API error
// shape. It returns nil when the body should be decoded as a success value.
//
//   - 500 is technicalError with the body's next_retry (default 5000 ms),
//     except a body whose status is "Refused", which is unknown(body).
//   - 401 is invalidToken whatever the body holds.
//   - any other status with an "error" field decodes to an APIError.
func ClassifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusInternalServerError:
		return classifyInternalError(body)
	case http.StatusUnauthorized:
		return &APIError{Kind: KindInvalidToken, Code: "invalid_token"}
	default:
	}

	if apiErr, ok := DecodeAPIError(body); ok {
		return apiErr
	}

	return nil
}

// classifyInternalError keeps a legacy compatibility shim: a 500 carrying
// status "Refused" is reported as unknown with the raw body.
func classifyInternalError(body []byte) error {
	var wire errorBody
	if json.Unmarshal(body, &wire) != nil {
		wire = nil
	}

	if wire.str(constants.WireKeyStatus) == constants.RefusedStatus {
		return &APIError{Kind: KindUnknown, Code: string(body)}
	}

	return &APIError{Kind: KindTechnicalError, Code: wire.str(constants.WireKeyError), NextRetry: wire.nextRetry()}
}

func transportFailure(err error) error {
	var buildErr BuildError
	if errors.As(err, &buildErr) || errors.Is(err, ErrSessionClosed) || IsTransportError(err) {
		return err
	}

	return &TransportError{Err: err}
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// TextResponse is the body decoded as text using the response charset.
type TextResponse struct {
	Text string
}

// DecodeResponse implements Decodable. A missing charset is read as UTF-8.
func (t *TextResponse) DecodeResponse(resp *HTTPResponse, body []byte) error {
	charset := ""

	if resp != nil {
		if _, params, err := mime.ParseMediaType(resp.Header.Get(constants.HeaderContentType)); err == nil {
			charset = params["charset"]
		}
	}

	if charset == "" || strings.EqualFold(charset, "utf-8") {
		t.Text = string(body)

		return nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return fmt.Errorf("failed to decode %s body: %w", charset, err)
	}

	t.Text = string(decoded)

	return nil
}

// JSONObject is a response decoded into a generic JSON object.
type JSONObject map[string]any

// DecodeResponse implements Decodable.
func (o *JSONObject) DecodeResponse(_ *HTTPResponse, body []byte) error {
	var object map[string]any

	err := json.Unmarshal(body, &object)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON object: %w", err)
	}

	if object == nil {
		return ErrNotJSONObject
	}

	*o = object

	return nil
}

// JSON decodes the body into T.
type JSON[T any] struct {
	Value T
}

// DecodeResponse implements Decodable.
func (j *JSON[T]) DecodeResponse(_ *HTTPResponse, body []byte) error {
	err := json.Unmarshal(body, &j.Value)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// LossyList decodes a JSON array, skipping elements that fail to decode.
type LossyList[T any] struct {
	Elements []T
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LossyList[T]) UnmarshalJSON(data []byte) error {
	var raw []jsoniter.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("failed to unmarshal array: %w", err)
	}

	elements := make([]T, 0, len(raw))

	for _, item := range raw {
		var element T
		if json.Unmarshal(item, &element) == nil {
			elements = append(elements, element)
		}
	}

	l.Elements = elements

	return nil
}

// DecodeResponse implements Decodable.
func (l *LossyList[T]) DecodeResponse(_ *HTTPResponse, body []byte) error {
	return l.UnmarshalJSON(body)
}
