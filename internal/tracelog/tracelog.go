// Package tracelog renders human-readable dumps of completed requests.
package tracelog

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// TimeLayout formats the top-level key of every dump.
const TimeLayout = "2006-01-02 15:04:05 -0700"

// Entry is one key of a dump. Value is a string or a []Entry.
type Entry struct {
	Key   string
	Value any
}

// Formatter builds dumps for outcomes.
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a formatter stamped with the wall clock.
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// WithClock returns a copy of the formatter that stamps dumps with now.
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	clone := *f
	clone.now = now

	return &clone
}

// Format renders the outcome as nested `key: "value"` lines.
func (f *Formatter) Format(outcome coreapi.Outcome) string {
	return Render([]Entry{{Key: f.now().UTC().Format(TimeLayout), Value: Entries(outcome)}})
}

// Entries returns the dump of outcome without the timestamp.
func Entries(outcome coreapi.Outcome) []Entry {
	var log []Entry

	if outcome.Request != nil {
		log = append(log, Entry{Key: "request", Value: request(outcome.Request)})
	}

	if outcome.Response != nil {
		log = append(log, Entry{Key: "response", Value: response(outcome.Response, outcome.Body)})
	}

	if outcome.Err != nil {
		log = append(log, Entry{Key: "error", Value: outcome.Err.Error()})
	}

	return log
}

func request(req *coreapi.Request) []Entry {
	var log []Entry

	if req.URL != nil {
		log = append(log, Entry{Key: "url", Value: req.URL.String()})
	}

	log = append(log, Entry{Key: "method", Value: req.Method})

	headers := make(map[string]string, len(req.Header))
	for key, values := range req.Header {
		headers[key] = strings.Join(values, ", ")
	}

	log = append(log, Entry{Key: "headers", Value: headerEntries(headers)})

	if len(req.Body) > 0 {
		contentType := req.Header.Get(constants.HeaderContentType)
		if strings.HasPrefix(contentType, constants.ContentTypeFormURLEncoded) {
			log = append(log, Entry{Key: "body", Value: formEntries(string(req.Body))})
		} else {
			log = append(log, Entry{Key: "body", Value: text(req.Body)})
		}
	}

	return log
}

func response(resp *coreapi.HTTPResponse, body []byte) []Entry {
	log := []Entry{{Key: "status", Value: fmt.Sprintf("%d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))}}

	if resp.Header != nil {
		headers := make(map[string]string, len(resp.Header))
		for key, values := range resp.Header {
			headers[key] = strings.Join(values, ", ")
		}

		log = append(log, Entry{Key: "headers", Value: headerEntries(headers)})
	}

	if body != nil {
		log = append(log, Entry{Key: "body", Value: text(body)})
	}

	return log
}

// headerEntries sorts keys and hides the Authorization value behind its
// length.
func headerEntries(headers map[string]string) []Entry {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	entries := make([]Entry, 0, len(keys))

	for _, key := range keys {
		value := headers[key]
		if http.CanonicalHeaderKey(key) == constants.HeaderAuthorization {
			value = fmt.Sprintf("<%d bytes>", len(value))
		}

		entries = append(entries, Entry{Key: key, Value: value})
	}

	return entries
}

func formEntries(body string) []Entry {
	var entries []Entry

	for pair := range strings.SplitSeq(body, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")

		entries = append(entries, Entry{Key: unescape(key), Value: unescape(value)})
	}

	return entries
}

func unescape(s string) string {
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}

	return unescaped
}

func text(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}

	return fmt.Sprintf("<%d bytes>", len(body))
}

// Render joins entries as `key: "value"` separated by ",\n". Nested entries
// are wrapped in braces and indented by two spaces per level.
func Render(entries []Entry) string {
	return render(entries, 0)
}

func render(entries []Entry, level int) string {
	lines := make([]string, 0, len(entries))

	for _, entry := range entries {
		lines = append(lines, indent(level)+entry.Key+": "+renderValue(entry.Value, level))
	}

	return strings.Join(lines, ",\n")
}

func renderValue(value any, level int) string {
	switch v := value.(type) {
	case string:
		return `"` + v + `"`
	case []Entry:
		return "{\n" + render(v, level+1) + "\n" + indent(level) + "}"
	default:
		return fmt.Sprint(v)
	}
}

func indent(level int) string {
	return strings.Repeat(constants.JSONIndent, level)
}
