package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// CLI configuration.
const (
	// ConfigDirName is the directory under $HOME holding the CLI config.
	ConfigDirName = ".coreapi"

	// ConfigFileName is the CLI config file name without extension.
	ConfigFileName = "config"

	// ConfigFileType is the CLI config file format.
	ConfigFileType = "yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "COREAPI"

	// SetArgumentCount is the number of arguments of `config set`.
	SetArgumentCount = 2
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultAwaitTimeout bounds CLI waits on a single task.
	DefaultAwaitTimeout = 45 * time.Second

	// TokenExpiryBuffer treats access tokens this close to expiry as expired.
	TokenExpiryBuffer = 30 * time.Second

	// TokenExpiringSoon is the window in which token status reports "Expires soon".
	TokenExpiringSoon = 5 * time.Minute
)

// Transport retry limits. Retries only cover connection failures, never
// HTTP statuses.
const (
	// DefaultRetryMax disables transport retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Queue sizes.
const (
	// SerialQueueBuffer is the initial backlog capacity of a serial queue.
	SerialQueueBuffer = 100
)

// Output formats.
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"

	// JSONIndent is the indent used by pretty JSON output.
	JSONIndent = "  "
)

// Logging.
const (
	// ConsoleLogPrefix prefixes console trace dumps.
	ConsoleLogPrefix = "[CoreAPI]"

	// DebugLevel is the logr verbosity used for debug events.
	DebugLevel = 1

	// DefaultTraceSubject is the NATS subject trace dumps are published to.
	DefaultTraceSubject = "coreapi.trace"

	// DefaultNATSConnectTimeout bounds the initial NATS dial.
	DefaultNATSConnectTimeout = 5 * time.Second
)
