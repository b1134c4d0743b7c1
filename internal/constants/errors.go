package constants

import "errors"

// Configuration errors.
var (
	ErrSSLOnlyInDev       = errors.New("skipSSL is only allowed in development environments (set COREAPI_DEV_MODE=true)")
	ErrInvalidSigningKey  = errors.New("signing key must be base64url encoded")
	ErrNoHostsConfigured  = errors.New("no hosts configured, use 'coreapi config set hosts.<key> <host>'")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// CLI validation errors.
var (
	ErrInvalidKeyValue   = errors.New("invalid argument, expected Key=Value")
	ErrInvalidEncoding   = errors.New("invalid encoding, expected query, json or jws")
	ErrTargetRequired    = errors.New("either --url or --host-key is required")
	ErrIssuerRequired    = errors.New("either --client-id or --instance-id is required")
	ErrInvalidStatusCode = errors.New("invalid HTTP status code")
	ErrEmptySigningKey   = errors.New("signing key is empty")
)
