package tracelog_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/paycore/internal/tracelog"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

var errConnectionReset = errors.New("connection reset by peer")

func fixedFormatter() *tracelog.Formatter {
	return tracelog.NewFormatter().WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	})
}

func formRequest(t *testing.T) *coreapi.Request {
	t.Helper()

	u, err := url.Parse("https://ya.ru/api")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	return &coreapi.Request{Method: http.MethodPost, URL: u, Header: header, Body: []byte("a=1&b=x%20y")}
}

func TestFormatter_RequestAndResponse(t *testing.T) {
	t.Parallel()

	outcome := coreapi.Outcome{
		Request: formRequest(t),
		Response: &coreapi.HTTPResponse{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
		},
		Body: []byte(`{"ok":true}`),
	}

	expected := `2024-01-02 03:04:05 +0000: {
  request: {
    url: "https://ya.ru/api",
    method: "POST",
    headers: {
      Authorization: "<10 bytes>",
      Content-Type: "application/x-www-form-urlencoded; charset=utf-8"
    },
    body: {
      a: "1",
      b: "x y"
    }
  },
  response: {
    status: "200 (OK)",
    headers: {
      Content-Type: "application/json"
    },
    body: "{"ok":true}"
  }
}`

	assert.Equal(t, expected, fixedFormatter().Format(outcome))
}

func TestFormatter_Error(t *testing.T) {
	t.Parallel()

	req := formRequest(t)
	req.Header = http.Header{"Content-Type": {"application/json"}}
	req.Body = []byte(`{"amount":"1.00"}`)

	outcome := coreapi.Outcome{
		Request: req,
		Err:     &coreapi.TransportError{Err: errConnectionReset},
	}

	expected := `2024-01-02 03:04:05 +0000: {
  request: {
    url: "https://ya.ru/api",
    method: "POST",
    headers: {
      Content-Type: "application/json"
    },
    body: "{"amount":"1.00"}"
  },
  error: "transport error: connection reset by peer"
}`

	assert.Equal(t, expected, fixedFormatter().Format(outcome))
}

func TestFormatter_BornFailed(t *testing.T) {
	t.Parallel()

	outcome := coreapi.Outcome{Err: &coreapi.HostError{Err: &coreapi.UnknownKeyError{Key: "wallet"}}}

	assert.Equal(t, []tracelog.Entry{{Key: "error", Value: "Unknown host key 'wallet'"}}, tracelog.Entries(outcome))
}

func TestFormatter_BinaryBody(t *testing.T) {
	t.Parallel()

	outcome := coreapi.Outcome{
		Response: &coreapi.HTTPResponse{StatusCode: http.StatusInternalServerError},
		Body:     []byte{0xff, 0xfe, 0x00},
	}

	assert.Equal(t, []tracelog.Entry{
		{Key: "response", Value: []tracelog.Entry{
			{Key: "status", Value: "500 (Internal Server Error)"},
			{Key: "body", Value: "<3 bytes>"},
		}},
	}, tracelog.Entries(outcome))
}

func TestRender(t *testing.T) {
	t.Parallel()

	rendered := tracelog.Render([]tracelog.Entry{
		{Key: "a", Value: "1"},
		{Key: "b", Value: []tracelog.Entry{{Key: "c", Value: 2}}},
	})

	assert.Equal(t, "a: \"1\",\nb: {\n  c: 2\n}", rendered)
}
