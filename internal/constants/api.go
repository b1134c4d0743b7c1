package constants

import "time"

// URL resolution.
const (
	// DefaultScheme is applied to hosts that omit a scheme.
	DefaultScheme = "https"
)

// Retry hints attached to accepted-but-unknown and technical error responses.
const (
	// DefaultNextRetry is used when the server omits next_retry.
	DefaultNextRetry = 5000 * time.Millisecond

	// RefusedStatus marks a 500 body that is reported as an unknown error.
	RefusedStatus = "Refused"
)

// Header names.
const (
	HeaderAuthorization  = "Authorization"
	HeaderContentType    = "Content-Type"
	HeaderUserAgent      = "User-Agent"
	HeaderAcceptEncoding = "Accept-Encoding"
	HeaderAcceptLanguage = "Accept-Language"
)

// Header values.
const (
	ContentTypeJSON           = "application/json"
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"

	// DefaultAcceptEncoding is sent with every request.
	DefaultAcceptEncoding = "gzip;q=1.0, compress;q=0.5"

	// DefaultUserAgentProduct prefixes the OS name in the default User-Agent.
	DefaultUserAgentProduct = "CoreAPI.SDK"

	// MaxPreferredLanguages bounds the Accept-Language list.
	MaxPreferredLanguages = 6
)

// Signed envelope.
const (
	// JWSAlgorithm is the only supported signing algorithm.
	JWSAlgorithm = "ES256"

	// JWSKeySize is the length of a raw P-256 private scalar.
	JWSKeySize = 32

	// JWSFormField carries the token in a form-encoded body.
	JWSFormField = "request"
)

// Wire error body keys.
const (
	WireKeyError             = "error"
	WireKeyStatus            = "status"
	WireKeyNextRetry         = "next_retry"
	WireKeyNextRetryLegacy   = "nextRetry"
	WireKeyParameterName     = "parameter_name"
	WireKeyParameterNameOld  = "parameterName"
	WireKeyAccountUnblockURI = "account_unblock_uri"
	WireKeyExtActionURI      = "ext_action_uri"
)
