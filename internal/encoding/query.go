package encoding

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// QueryEncoder form-encodes a payload. GET, HEAD and DELETE requests carry it
// in the query string; other verbs get an application/x-www-form-urlencoded
// body.
//
// Accepted payloads are url.Values, map[string]string, or anything that
// serializes to a JSON object. Nested objects are flattened as key[sub],
// arrays as key[], booleans as 1 or 0.
type QueryEncoder struct {
	api jsoniter.API
}

// NewQueryEncoder creates a query encoder.
func NewQueryEncoder() *QueryEncoder {
	return &QueryEncoder{api: jsoniter.Config{UseNumber: true, SortMapKeys: true}.Froze()}
}

// Encode implements Encoder.
func (e *QueryEncoder) Encode(payload any) (Body, error) {
	values, err := e.values(payload)
	if err != nil {
		return nil, err
	}

	return &QueryBody{Values: values}, nil
}

func (e *QueryEncoder) values(payload any) (url.Values, error) {
	switch p := payload.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return p, nil
	case map[string]string:
		values := make(url.Values, len(p))
		for key, value := range p {
			values.Set(key, value)
		}

		return values, nil
	default:
	}

	data, err := e.api.Marshal(payload)
	if err != nil {
		return nil, &coreapi.IllegalParametersError{Err: err}
	}

	var object map[string]any

	err = e.api.Unmarshal(data, &object)
	if err != nil {
		return nil, &coreapi.IllegalParametersError{
			Err: fmt.Errorf("%w: %T is not an object", coreapi.ErrUnsupportedPayload, payload),
		}
	}

	values := url.Values{}
	flatten(values, "", object)

	return values, nil
}

func flatten(values url.Values, key string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}

		slices.Sort(keys)

		for _, k := range keys {
			nested := k
			if key != "" {
				nested = key + "[" + k + "]"
			}

			flatten(values, nested, v[k])
		}
	case []any:
		for _, item := range v {
			flatten(values, key+"[]", item)
		}
	case bool:
		if v {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	case nil:
		values.Add(key, "")
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

// QueryBody is a form-encoded payload.
type QueryBody struct {
	Values url.Values
}

// Apply implements Body.
func (b *QueryBody) Apply(req *coreapi.Request) {
	if len(b.Values) == 0 {
		return
	}

	encoded := b.Values.Encode()

	if inQuery(req.Method) {
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = encoded
		} else {
			req.URL.RawQuery += "&" + encoded
		}

		return
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}

	if req.Header.Get(constants.HeaderContentType) == "" {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeFormURLEncoded+"; charset=utf-8")
	}

	req.Body = []byte(encoded)
}

func inQuery(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	default:
		return false
	}
}
