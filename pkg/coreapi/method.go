package coreapi

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// HostProvider resolves a logical host key to a host string such as
// "//host.example", "https://host.example" or "//host.example:8080".
// A host without a scheme is reached over https.
type HostProvider interface {
	HostFor(key string) (string, error)
}

// HostProviderFunc adapts a function to HostProvider.
type HostProviderFunc func(key string) (string, error)

// HostFor implements HostProvider.
func (f HostProviderFunc) HostFor(key string) (string, error) {
	return f(key)
}

// StaticHostProvider resolves keys from a fixed table.
type StaticHostProvider struct {
	mu    sync.RWMutex
	hosts map[string]string
}

// NewStaticHostProvider creates a provider over a copy of hosts.
func NewStaticHostProvider(hosts map[string]string) *StaticHostProvider {
	table := make(map[string]string, len(hosts))
	for key, host := range hosts {
		table[key] = host
	}

	return &StaticHostProvider{hosts: table}
}

// HostFor implements HostProvider.
func (p *StaticHostProvider) HostFor(key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	host, ok := p.hosts[key]
	if !ok {
		return "", &UnknownKeyError{Key: key}
	}

	return host, nil
}

// Set adds or replaces a host.
func (p *StaticHostProvider) Set(key, host string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hosts[key] = host
}

// Hosts returns a copy of the table.
func (p *StaticHostProvider) Hosts() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	hosts := make(map[string]string, len(p.hosts))
	for key, host := range p.hosts {
		hosts[key] = host
	}

	return hosts
}

// URLTarget is where a method is sent: either a full URL used verbatim or a
// host/path pair combined by the session.
type URLTarget struct {
	full *url.URL
	host string
	path string
}

// FullURL targets an absolute URL, passed through unchanged.
func FullURL(u *url.URL) URLTarget {
	return URLTarget{full: u}
}

// HostPath targets path on host. The path is appended verbatim; callers
// percent-encode it themselves.
func HostPath(host, path string) URLTarget {
	return URLTarget{host: host, path: path}
}

// URL returns the full URL, if the target is one.
func (t URLTarget) URL() (*url.URL, bool) {
	return t.full, t.full != nil
}

// HostPath returns the host/path pair, if the target is one.
func (t URLTarget) HostPath() (host, path string, ok bool) {
	return t.host, t.path, t.full == nil
}

// ResolveURL assembles the final URL for target. A full URL is returned
// unchanged. Otherwise the host's scheme defaults to https, any path on the
// host is replaced, and path is appended verbatim.
func ResolveURL(target URLTarget) (*url.URL, error) {
	if full, ok := target.URL(); ok {
		return full, nil
	}

	host, path, _ := target.HostPath()

	raw := host
	if !strings.Contains(raw, "//") {
		raw = "//" + raw
	}

	hostURL, err := url.Parse(raw)
	if err != nil {
		return nil, &IllegalURLError{URL: host, Err: err}
	}

	if hostURL.Host == "" {
		return nil, &IllegalURLError{URL: host}
	}

	if hostURL.Scheme == "" {
		hostURL.Scheme = constants.DefaultScheme
	}

	origin := &url.URL{Scheme: hostURL.Scheme, User: hostURL.User, Host: hostURL.Host}

	resolved, err := url.Parse(origin.String() + path)
	if err != nil {
		return nil, &IllegalURLError{URL: host + path, Err: err}
	}

	return resolved, nil
}

// Method describes one API call. Implementations are immutable and are only
// read by the session.
type Method interface {
	// HTTPMethod is the request verb, e.g. http.MethodPost.
	HTTPMethod() string

	// Encoding selects the parameter encoder.
	Encoding() ParametersEncoding

	// Headers are method-specific header fields.
	Headers() Headers

	// Target resolves where the method is sent.
	Target(hosts HostProvider) (URLTarget, error)

	// Payload is the value encoded into the request. Nil sends no parameters.
	Payload() any
}

// Descriptor is a data-only Method.
type Descriptor struct {
	Verb          string
	HostKey       string
	Path          string
	URL           *url.URL
	ParamEncoding ParametersEncoding
	Header        Headers
	Params        any
}

var _ Method = (*Descriptor)(nil)

// HTTPMethod implements Method. It defaults to POST.
func (d *Descriptor) HTTPMethod() string {
	if d.Verb == "" {
		return http.MethodPost
	}

	return d.Verb
}

// Encoding implements Method.
func (d *Descriptor) Encoding() ParametersEncoding {
	return d.ParamEncoding
}

// Headers implements Method.
func (d *Descriptor) Headers() Headers {
	return d.Header
}

// Target implements Method. URL takes precedence over HostKey.
func (d *Descriptor) Target(hosts HostProvider) (URLTarget, error) {
	if d.URL != nil {
		return FullURL(d.URL), nil
	}

	host, err := hosts.HostFor(d.HostKey)
	if err != nil {
		return URLTarget{}, err
	}

	return HostPath(host, d.Path), nil
}

// Payload implements Method.
func (d *Descriptor) Payload() any {
	return d.Params
}
