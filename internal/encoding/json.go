package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"reflect"
	"time"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// DateStrategy selects how time.Time values are written.
type DateStrategy int

const (
	// DateRFC3339 writes RFC 3339 strings with nanoseconds when present.
	DateRFC3339 DateStrategy = iota
	// DateUnixMillis writes integer milliseconds since the epoch.
	DateUnixMillis
	// DateUnixSeconds writes integer seconds since the epoch.
	DateUnixSeconds
)

// BinaryStrategy selects how []byte values are written.
type BinaryStrategy int

const (
	// BinaryBase64 writes standard padded base64.
	BinaryBase64 BinaryStrategy = iota
	// BinaryHex writes lowercase hex.
	BinaryHex
)

// JSONOption configures a JSONEncoder.
type JSONOption func(*jsonOptions)

type jsonOptions struct {
	dates  DateStrategy
	binary BinaryStrategy
	pretty bool
}

// WithDateStrategy sets the time.Time strategy.
func WithDateStrategy(strategy DateStrategy) JSONOption {
	return func(o *jsonOptions) {
		o.dates = strategy
	}
}

// WithBinaryStrategy sets the []byte strategy.
func WithBinaryStrategy(strategy BinaryStrategy) JSONOption {
	return func(o *jsonOptions) {
		o.binary = strategy
	}
}

// WithPrettyPrint indents the output.
func WithPrettyPrint() JSONOption {
	return func(o *jsonOptions) {
		o.pretty = true
	}
}

// JSONEncoder writes the payload as an application/json body.
type JSONEncoder struct {
	api jsoniter.API
}

// NewJSONEncoder creates a JSON encoder. Map keys are sorted so equal
// payloads produce equal bytes.
func NewJSONEncoder(opts ...JSONOption) *JSONEncoder {
	options := &jsonOptions{}
	for _, opt := range opts {
		opt(options)
	}

	config := jsoniter.Config{SortMapKeys: true, ValidateJsonRawMessage: true}
	if options.pretty {
		config.IndentionStep = len(constants.JSONIndent)
	}

	api := config.Froze()
	api.RegisterExtension(&strategyExtension{dates: options.dates, binary: options.binary})

	return &JSONEncoder{api: api}
}

// Marshal serializes v with the encoder's strategies.
func (e *JSONEncoder) Marshal(v any) ([]byte, error) {
	data, err := e.api.Marshal(v)
	if err != nil {
		return nil, &coreapi.IllegalParametersError{Err: err}
	}

	return data, nil
}

// Encode implements Encoder. A nil payload sends no body.
func (e *JSONEncoder) Encode(payload any) (Body, error) {
	if payload == nil {
		return emptyBody{}, nil
	}

	data, err := e.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &JSONBody{Data: data}, nil
}

// JSONBody is an encoded JSON payload.
type JSONBody struct {
	Data []byte
}

// Apply implements Body. Content-Type is only set when the request has none.
func (b *JSONBody) Apply(req *coreapi.Request) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	if req.Header.Get(constants.HeaderContentType) == "" {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	req.Body = b.Data
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

type strategyExtension struct {
	jsoniter.DummyExtension

	dates  DateStrategy
	binary BinaryStrategy
}

func (x *strategyExtension) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	switch typ.Type1() {
	case timeType:
		return &timeEncoder{strategy: x.dates}
	case bytesType:
		return &bytesEncoder{strategy: x.binary}
	default:
		return nil
	}
}

type timeEncoder struct {
	strategy DateStrategy
}

func (e *timeEncoder) IsEmpty(ptr unsafe.Pointer) bool {
	return (*time.Time)(ptr).IsZero()
}

func (e *timeEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	t := *(*time.Time)(ptr)

	switch e.strategy {
	case DateUnixMillis:
		stream.WriteInt64(t.UnixMilli())
	case DateUnixSeconds:
		stream.WriteInt64(t.Unix())
	default:
		stream.WriteString(t.Format(time.RFC3339Nano))
	}
}

type bytesEncoder struct {
	strategy BinaryStrategy
}

func (e *bytesEncoder) IsEmpty(ptr unsafe.Pointer) bool {
	return len(*(*[]byte)(ptr)) == 0
}

func (e *bytesEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	data := *(*[]byte)(ptr)
	if data == nil {
		stream.WriteNil()

		return
	}

	switch e.strategy {
	case BinaryHex:
		stream.WriteString(hex.EncodeToString(data))
	default:
		stream.WriteString(base64.StdEncoding.EncodeToString(data))
	}
}
