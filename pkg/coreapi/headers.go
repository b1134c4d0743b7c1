package coreapi

import (
	"net/http"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// Headers is an immutable, ordered set of HTTP header fields. Keys are
// case-insensitive. Every mutating operation returns a new value.
//
// Layers are merged with Merge, where the argument wins. The session applies
// them as: session defaults, then method headers, then call-site headers.
type Headers struct {
	keys   []string
	values map[string]string
}

// NewHeaders builds headers from a map. Iteration order of a Go map is not
// stable, so keys are inserted in sorted order.
func NewHeaders(fields map[string]string) Headers {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	var headers Headers
	for _, key := range keys {
		headers = headers.With(key, fields[key])
	}

	return headers
}

// HeadersOf builds headers from alternating key/value arguments. A trailing
// key without a value is ignored.
func HeadersOf(pairs ...string) Headers {
	var headers Headers
	for i := 0; i+1 < len(pairs); i += 2 {
		headers = headers.With(pairs[i], pairs[i+1])
	}

	return headers
}

// With returns a copy with key set to value. An existing key keeps its position.
func (h Headers) With(key, value string) Headers {
	canonical := http.CanonicalHeaderKey(key)

	next := Headers{
		keys:   make([]string, len(h.keys), len(h.keys)+1),
		values: make(map[string]string, len(h.values)+1),
	}
	copy(next.keys, h.keys)

	for k, v := range h.values {
		next.values[k] = v
	}

	if _, ok := next.values[canonical]; !ok {
		next.keys = append(next.keys, canonical)
	}

	next.values[canonical] = value

	return next
}

// Without returns a copy with key removed.
func (h Headers) Without(key string) Headers {
	canonical := http.CanonicalHeaderKey(key)
	if _, ok := h.values[canonical]; !ok {
		return h
	}

	var next Headers
	for _, k := range h.keys {
		if k != canonical {
			next = next.With(k, h.values[k])
		}
	}

	return next
}

// Merge returns h overlaid with other; fields in other win.
func (h Headers) Merge(other Headers) Headers {
	merged := h
	for _, key := range other.keys {
		merged = merged.With(key, other.values[key])
	}

	return merged
}

// Get returns the value for key.
func (h Headers) Get(key string) (string, bool) {
	value, ok := h.values[http.CanonicalHeaderKey(key)]

	return value, ok
}

// Len returns the number of fields.
func (h Headers) Len() int {
	return len(h.keys)
}

// Keys returns the canonical keys in insertion order.
func (h Headers) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Map returns the fields as a plain map.
func (h Headers) Map() map[string]string {
	fields := make(map[string]string, len(h.values))
	for k, v := range h.values {
		fields[k] = v
	}

	return fields
}

// Apply sets every field on header, replacing existing values.
func (h Headers) Apply(header http.Header) {
	for _, key := range h.keys {
		header.Set(key, h.values[key])
	}
}

// HTTPHeader converts the fields to an http.Header.
func (h Headers) HTTPHeader() http.Header {
	header := make(http.Header, len(h.keys))
	h.Apply(header)

	return header
}

// HeadersFactory produces the session-wide default headers.
type HeadersFactory interface {
	MakeHeaders() Headers
}

// DefaultHeadersFactory builds User-Agent, Accept-Encoding and
// Accept-Language headers.
type DefaultHeadersFactory struct {
	// UserAgent overrides the default "CoreAPI.SDK/<OS>".
	UserAgent string

	// Languages overrides the preferred languages read from the environment.
	Languages []string
}

// MakeHeaders implements HeadersFactory.
func (f DefaultHeadersFactory) MakeHeaders() Headers {
	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgentProduct + "/" + osName()
	}

	languages := f.Languages
	if languages == nil {
		languages = PreferredLanguages()
	}

	headers := HeadersOf(
		constants.HeaderUserAgent, userAgent,
		constants.HeaderAcceptEncoding, constants.DefaultAcceptEncoding,
	)

	if acceptLanguage := AcceptLanguage(languages); acceptLanguage != "" {
		headers = headers.With(constants.HeaderAcceptLanguage, acceptLanguage)
	}

	return headers
}

// AcceptLanguage renders up to six languages with descending quality
// weights 1.0, 0.9, 0.8, ... Entries that are not valid BCP 47 tags are skipped.
func AcceptLanguage(languages []string) string {
	parts := make([]string, 0, constants.MaxPreferredLanguages)

	for _, raw := range languages {
		if len(parts) == constants.MaxPreferredLanguages {
			break
		}

		tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
		if err != nil {
			continue
		}

		quality := 1.0 - float64(len(parts))*0.1
		parts = append(parts, tag.String()+";q="+strconv.FormatFloat(quality, 'f', 1, 64))
	}

	return strings.Join(parts, ", ")
}

// PreferredLanguages reads the user's languages from LANGUAGE, LC_ALL,
// LC_MESSAGES and LANG, in that order. It falls back to "en".
func PreferredLanguages() []string {
	if list := os.Getenv("LANGUAGE"); list != "" {
		return strings.Split(list, ":")
	}

	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(name)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}

		// en_US.UTF-8@euro -> en_US
		if i := strings.IndexAny(value, ".@"); i >= 0 {
			value = value[:i]
		}

		return []string{value}
	}

	return []string{"en"}
}

func osName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS"
	case "ios":
		return "iOS"
	case "linux":
		return "Linux"
	case "android":
		return "Android"
	case "windows":
		return "Windows"
	default:
		return runtime.GOOS
	}
}
