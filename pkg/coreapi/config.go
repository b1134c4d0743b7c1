package coreapi

import (
	"time"

	"github.com/go-logr/logr"
)

// Logger receives one human-readable dump per completed task.
type Logger interface {
	Log(message string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(message string)

// Log implements Logger.
func (f LoggerFunc) Log(message string) {
	f(message)
}

// Config holds configuration for a session.
type Config struct {
	// Hosts maps host keys to hosts such as "//api.example.com" or
	// "https://api.example.com". Hosts without a scheme use https.
	Hosts map[string]string

	// Header options
	// UserAgent: overrides the default "CoreAPI.SDK/<OS>".
	UserAgent string
	// Languages: preferred languages for Accept-Language. Read from the
	// environment when empty.
	Languages []string
	// Headers: additional headers sent with every request. They override the
	// generated defaults.
	Headers map[string]string

	// Signing options (required for jws encoded methods)
	// SigningKey: base64url encoded 32-byte ES256 private key.
	SigningKey string
	// ClientID: issuer claim for a registered application.
	ClientID string
	// InstanceID: issuer claim for an application instance. Used when
	// ClientID is empty.
	InstanceID string

	// Transport options
	// HTTPTimeout: per-request timeout. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax: transport-level retries on connection failures only. Zero (the
	// default) means one attempt per request. HTTP statuses are never retried;
	// the server's retry hints are reported to the caller instead.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// SkipTLSVerify: only honoured when COREAPI_DEV_MODE is set.
	SkipTLSVerify bool

	// Logging options
	// Debug: enables V(1) transport events on Log.
	Debug bool
	// TraceLogger: receives a request/response dump per completed task.
	TraceLogger Logger
	// Log: structured logger. Defaults to logr.Discard().
	Log logr.Logger
}

// IssuerClaim returns the configured claim, preferring ClientID.
func (c *Config) IssuerClaim() IssuerClaim {
	switch {
	case c.ClientID != "":
		return ClientID(c.ClientID)
	case c.InstanceID != "":
		return InstanceID(c.InstanceID)
	default:
		return IssuerClaim{}
	}
}
