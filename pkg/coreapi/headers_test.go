package coreapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders_Immutable(t *testing.T) {
	t.Parallel()

	base := coreapi.HeadersOf("x-a", "1")
	next := base.With("X-B", "2")

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())

	_, ok := base.Get("X-B")
	assert.False(t, ok)
}

func TestHeaders_CaseInsensitive(t *testing.T) {
	t.Parallel()

	headers := coreapi.HeadersOf("content-type", "text/plain").With("CONTENT-TYPE", "application/json")

	assert.Equal(t, 1, headers.Len())

	value, ok := headers.Get("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "application/json", value)
}

func TestHeaders_MergePrecedence(t *testing.T) {
	t.Parallel()

	defaults := coreapi.HeadersOf("User-Agent", "default", "Accept-Language", "en;q=1.0")
	method := coreapi.HeadersOf("User-Agent", "method", "X-Method", "m")
	call := coreapi.HeadersOf("x-method", "call")

	merged := defaults.Merge(method).Merge(call)

	ua, _ := merged.Get("User-Agent")
	xm, _ := merged.Get("X-Method")
	lang, _ := merged.Get("Accept-Language")

	assert.Equal(t, "method", ua)
	assert.Equal(t, "call", xm)
	assert.Equal(t, "en;q=1.0", lang)
	assert.Equal(t, []string{"User-Agent", "Accept-Language", "X-Method"}, merged.Keys())
}

func TestHeaders_WithoutAndConversion(t *testing.T) {
	t.Parallel()

	headers := coreapi.NewHeaders(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"A", "B", "C"}, headers.Keys())

	headers = headers.Without("b")
	assert.Equal(t, []string{"A", "C"}, headers.Keys())
	assert.Equal(t, map[string]string{"A": "1", "C": "3"}, headers.Map())

	header := http.Header{"A": []string{"old"}}
	headers.Apply(header)
	assert.Equal(t, "1", header.Get("A"))
	assert.Equal(t, "3", headers.HTTPHeader().Get("C"))
}

func TestHeaders_ZeroValue(t *testing.T) {
	t.Parallel()

	var headers coreapi.Headers

	assert.Equal(t, 0, headers.Len())
	assert.Equal(t, 1, headers.With("X", "y").Len())
	assert.Equal(t, 0, headers.Without("X").Len())
	assert.Empty(t, headers.Merge(coreapi.Headers{}).Keys())
}

func TestAcceptLanguage(t *testing.T) {
	t.Parallel()

	value := coreapi.AcceptLanguage([]string{"ru_RU", "en-US", "de", "fr", "it", "es", "pt"})

	parts := strings.Split(value, ", ")
	require.Len(t, parts, 6)
	assert.Equal(t, "ru-RU;q=1.0", parts[0])
	assert.Equal(t, "en-US;q=0.9", parts[1])
	assert.Equal(t, "es;q=0.5", parts[5])

	assert.Equal(t, "en;q=1.0", coreapi.AcceptLanguage([]string{"%%", "en"}))
	assert.Empty(t, coreapi.AcceptLanguage(nil))
}

func TestDefaultHeadersFactory(t *testing.T) {
	t.Parallel()

	headers := coreapi.DefaultHeadersFactory{UserAgent: "com.example.app/Linux", Languages: []string{"ru", "en"}}.MakeHeaders()

	ua, _ := headers.Get("User-Agent")
	encoding, _ := headers.Get("Accept-Encoding")
	language, _ := headers.Get("Accept-Language")

	assert.Equal(t, "com.example.app/Linux", ua)
	assert.Equal(t, "gzip;q=1.0, compress;q=0.5", encoding)
	assert.Equal(t, "ru;q=1.0, en;q=0.9", language)

	defaults := coreapi.DefaultHeadersFactory{Languages: []string{}}.MakeHeaders()
	ua, _ = defaults.Get("User-Agent")
	assert.True(t, strings.HasPrefix(ua, "CoreAPI.SDK/"))

	_, ok := defaults.Get("Accept-Language")
	assert.False(t, ok)
}
