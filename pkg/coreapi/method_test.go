package coreapi_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		host     string
		path     string
		expected string
	}{
		{name: "missing scheme defaults to https", host: "//ya.ru", expected: "https://ya.ru"},
		{name: "missing scheme with path", host: "//ya.ru", path: "/api/v1", expected: "https://ya.ru/api/v1"},
		{name: "explicit http is preserved", host: "http://ya.ru", expected: "http://ya.ru"},
		{name: "explicit https with path", host: "https://ya.ru", path: "/api/v1", expected: "https://ya.ru/api/v1"},
		{name: "bare host", host: "ya.ru:8443", path: "/p", expected: "https://ya.ru:8443/p"},
		{name: "host path is replaced", host: "https://ya.ru/old", path: "/new", expected: "https://ya.ru/new"},
		{name: "encoded path kept verbatim", host: "//ya.ru", path: "/a%20b", expected: "https://ya.ru/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolved, err := coreapi.ResolveURL(coreapi.HostPath(tt.host, tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resolved.String())
		})
	}
}

func TestResolveURL_FullURLUnchanged(t *testing.T) {
	t.Parallel()

	full, err := url.Parse("https://ya.ru/api/v1?p1=123&p2=qwe")
	require.NoError(t, err)

	resolved, err := coreapi.ResolveURL(coreapi.FullURL(full))
	require.NoError(t, err)
	assert.Equal(t, "https://ya.ru/api/v1?p1=123&p2=qwe", resolved.String())
}

func TestResolveURL_IllegalHost(t *testing.T) {
	t.Parallel()

	for _, host := range []string{"//[::1", "//", "http://ya ru"} {
		_, err := coreapi.ResolveURL(coreapi.HostPath(host, "/p"))
		require.Error(t, err, "host %q", host)

		illegal := &coreapi.IllegalURLError{}
		require.ErrorAs(t, err, &illegal)
		assert.True(t, coreapi.IsBuildError(err))
	}
}

func TestStaticHostProvider(t *testing.T) {
	t.Parallel()

	hosts := map[string]string{"wallet": "//wallet.example"}
	provider := coreapi.NewStaticHostProvider(hosts)

	hosts["wallet"] = "mutated"

	host, err := provider.HostFor("wallet")
	require.NoError(t, err)
	assert.Equal(t, "//wallet.example", host)

	_, err = provider.HostFor("payments")

	unknown := &coreapi.UnknownKeyError{}
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "payments", unknown.Key)
	assert.Equal(t, "Unknown host key 'payments'", err.Error())
	assert.True(t, coreapi.IsBuildError(err))

	provider.Set("payments", "https://pay.example")
	assert.Len(t, provider.Hosts(), 2)
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	provider := coreapi.NewStaticHostProvider(map[string]string{"wallet": "//wallet.example"})

	method := &coreapi.Descriptor{HostKey: "wallet", Path: "/balance"}
	assert.Equal(t, http.MethodPost, method.HTTPMethod())
	assert.Equal(t, coreapi.EncodingQuery, method.Encoding())

	target, err := method.Target(provider)
	require.NoError(t, err)

	host, path, ok := target.HostPath()
	require.True(t, ok)
	assert.Equal(t, "//wallet.example", host)
	assert.Equal(t, "/balance", path)

	full, _ := url.Parse("https://other.example/x")
	method = &coreapi.Descriptor{Verb: http.MethodGet, HostKey: "missing", URL: full}

	target, err = method.Target(provider)
	require.NoError(t, err)

	u, ok := target.URL()
	require.True(t, ok)
	assert.Same(t, full, u)

	_, err = (&coreapi.Descriptor{HostKey: "missing"}).Target(provider)
	require.Error(t, err)
}

func TestParseParametersEncoding(t *testing.T) {
	t.Parallel()

	for _, encoding := range []coreapi.ParametersEncoding{
		coreapi.EncodingQuery, coreapi.EncodingJSON, coreapi.EncodingJWS,
	} {
		parsed, err := coreapi.ParseParametersEncoding(encoding.String())
		require.NoError(t, err)
		assert.Equal(t, encoding, parsed)
	}

	_, err := coreapi.ParseParametersEncoding("xml")

	unknown := &coreapi.UnknownEncodingError{}
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "xml", unknown.Name)
}

func TestIssuerClaim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "clientId:abc", coreapi.ClientID("abc").String())
	assert.Equal(t, "instanceId:xyz", coreapi.InstanceID("xyz").String())
	assert.True(t, coreapi.IssuerClaim{}.IsZero())
	assert.Empty(t, coreapi.IssuerClaim{}.String())

	cfg := &coreapi.Config{InstanceID: "i-1"}
	assert.Equal(t, "instanceId:i-1", cfg.IssuerClaim().String())

	cfg.ClientID = "c-1"
	assert.Equal(t, "clientId:c-1", cfg.IssuerClaim().String())
}

func TestRequestClone(t *testing.T) {
	t.Parallel()

	u, _ := url.Parse("https://ya.ru/a")
	req := &coreapi.Request{
		Method: http.MethodPost,
		URL:    u,
		Header: http.Header{"X-A": []string{"1"}},
		Body:   []byte("body"),
	}

	clone := req.Clone()
	clone.Header.Set("X-A", "2")
	clone.Body[0] = 'B'
	clone.URL.Path = "/b"

	assert.Equal(t, "1", req.Header.Get("X-A"))
	assert.Equal(t, "body", string(req.Body))
	assert.Equal(t, "/a", req.URL.Path)
}
