package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
	"github.com/fivetwenty-io/paycore/pkg/logsink"
)

const (
	hostsPrefix   = "hosts."
	headersPrefix = "headers."
)

// Config represents the CLI configuration.
type Config struct {
	Hosts   map[string]string `json:"hosts,omitempty"   yaml:"hosts,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	UserAgent string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Languages []string `json:"languages,omitempty"  yaml:"languages,omitempty"`

	// Signing
	SigningKey string `json:"signing_key,omitempty" yaml:"signing_key,omitempty"`
	ClientID   string `json:"client_id,omitempty"   yaml:"client_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`

	// Authorization
	AccessToken    string     `json:"access_token,omitempty"     yaml:"access_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`

	// Transport
	Timeout           string `json:"timeout,omitempty"   yaml:"timeout,omitempty"`
	RetryMax          int    `json:"retry_max,omitempty" yaml:"retry_max,omitempty"`
	SkipSSLValidation bool   `json:"skip_ssl_validation" yaml:"skip_ssl_validation"`

	// Tracing
	TraceSink    string `json:"trace_sink,omitempty"    yaml:"trace_sink,omitempty"`
	NATSURL      string `json:"nats_url,omitempty"      yaml:"nats_url,omitempty"`
	TraceSubject string `json:"trace_subject,omitempty" yaml:"trace_subject,omitempty"`
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`

	// Global settings
	Output string `json:"output" yaml:"output"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage CoreAPI CLI configuration including hosts, signing and tracing settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration. The signing key is masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			masked := *config
			masked.SigningKey = maskSecret(config.SigningKey)
			masked.AccessToken = maskSecret(config.AccessToken)

			return writeOutput(cmd.OutOrStdout(), masked, func(table *tablewriter.Table) error {
				return addConfigRows(table, &masked)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Keys:
  hosts.<name>, headers.<name>, user_agent, languages (comma separated),
  signing_key, client_id, instance_id, access_token, timeout, retry_max,
  skip_ssl_validation, trace_sink, nats_url, trace_subject, otlp_endpoint, output`,
		Args: cobra.ExactArgs(constants.SetArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if key == "signing_key" || key == "access_token" {
				value = maskSecret(value)
			}

			return outputConfigUpdateResult(cmd, "Set", key, value)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			err := unsetConfigValue(config, key)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Unset", key, "")
		},
	}
}

// loadConfig reads the configuration from viper.
func loadConfig() *Config {
	config := &Config{
		Hosts:             viper.GetStringMapString("hosts"),
		Headers:           viper.GetStringMapString("headers"),
		UserAgent:         viper.GetString("user_agent"),
		Languages:         viper.GetStringSlice("languages"),
		SigningKey:        viper.GetString("signing_key"),
		ClientID:          viper.GetString("client_id"),
		InstanceID:        viper.GetString("instance_id"),
		AccessToken:       viper.GetString("access_token"),
		Timeout:           viper.GetString("timeout"),
		RetryMax:          viper.GetInt("retry_max"),
		SkipSSLValidation: viper.GetBool("skip_ssl_validation"),
		TraceSink:         viper.GetString("trace_sink"),
		NATSURL:           viper.GetString("nats_url"),
		TraceSubject:      viper.GetString("trace_subject"),
		OTLPEndpoint:      viper.GetString("otlp_endpoint"),
		Output:            viper.GetString("output"),
	}

	if expiresAt := viper.GetTime("token_expires_at"); !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	if config.Hosts == nil {
		config.Hosts = make(map[string]string)
	}

	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return config
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, constants.ConfigDirName)

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, constants.ConfigFileName+"."+constants.ConfigFileType)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

//nolint:cyclop,funlen // One case per configuration key
func setConfigValue(config *Config, key, value string) error {
	switch {
	case strings.HasPrefix(key, hostsPrefix):
		config.Hosts[strings.TrimPrefix(key, hostsPrefix)] = value
	case strings.HasPrefix(key, headersPrefix):
		config.Headers[strings.TrimPrefix(key, headersPrefix)] = value
	case key == "user_agent":
		config.UserAgent = value
	case key == "languages":
		config.Languages = splitList(value)
	case key == "signing_key":
		config.SigningKey = value
	case key == "client_id":
		config.ClientID = value
	case key == "instance_id":
		config.InstanceID = value
	case key == "access_token":
		config.AccessToken = value
		config.TokenExpiresAt = nil
	case key == "timeout":
		_, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: timeout %q: %w", constants.ErrInvalidConfigValue, value, err)
		}

		config.Timeout = value
	case key == "retry_max":
		retryMax, err := strconv.Atoi(value)
		if err != nil || retryMax < 0 {
			return fmt.Errorf("%w: retry_max %q", constants.ErrInvalidConfigValue, value)
		}

		config.RetryMax = retryMax
	case key == "skip_ssl_validation":
		config.SkipSSLValidation = parseBoolValue(value)
	case key == "trace_sink":
		if !slices.Contains(traceSinks(), value) {
			return fmt.Errorf("%w: trace_sink %q, expected one of %s",
				constants.ErrInvalidConfigValue, value, strings.Join(traceSinks(), ", "))
		}

		config.TraceSink = value
	case key == "nats_url":
		config.NATSURL = value
	case key == "trace_subject":
		config.TraceSubject = value
	case key == "otlp_endpoint":
		config.OTLPEndpoint = value
	case key == "output":
		config.Output = value
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch {
	case strings.HasPrefix(key, hostsPrefix):
		delete(config.Hosts, strings.TrimPrefix(key, hostsPrefix))

		return nil
	case strings.HasPrefix(key, headersPrefix):
		delete(config.Headers, strings.TrimPrefix(key, headersPrefix))

		return nil
	case key == "languages":
		config.Languages = nil

		return nil
	case key == "retry_max":
		config.RetryMax = 0

		return nil
	case key == "skip_ssl_validation":
		config.SkipSSLValidation = false

		return nil
	case key == "access_token":
		config.AccessToken = ""
		config.TokenExpiresAt = nil

		return nil
	default:
	}

	fields := map[string]*string{
		"user_agent":    &config.UserAgent,
		"signing_key":   &config.SigningKey,
		"client_id":     &config.ClientID,
		"instance_id":   &config.InstanceID,
		"timeout":       &config.Timeout,
		"trace_sink":    &config.TraceSink,
		"nats_url":      &config.NATSURL,
		"trace_subject": &config.TraceSubject,
		"otlp_endpoint": &config.OTLPEndpoint,
		"output":        &config.Output,
	}

	field, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	*field = ""

	return nil
}

// CoreConfig converts the CLI configuration into the SDK configuration.
func (c *Config) CoreConfig(logger logr.Logger) (*coreapi.Config, error) {
	config := &coreapi.Config{
		Hosts:         c.Hosts,
		UserAgent:     c.UserAgent,
		Languages:     c.Languages,
		Headers:       c.Headers,
		SigningKey:    c.SigningKey,
		ClientID:      c.ClientID,
		InstanceID:    c.InstanceID,
		RetryMax:      c.RetryMax,
		SkipTLSVerify: c.SkipSSLValidation,
		Debug:         logger.V(constants.DebugLevel).Enabled(),
		Log:           logger,
	}

	if len(config.Languages) == 0 {
		config.Languages = nil
	}

	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: timeout %q: %w", constants.ErrInvalidConfigValue, c.Timeout, err)
		}

		config.HTTPTimeout = timeout
	}

	return config, nil
}

func traceSinks() []string {
	return []string{
		string(logsink.SinkTypeConsole),
		string(logsink.SinkTypeLogr),
		string(logsink.SinkTypeNATS),
		string(logsink.SinkTypeNone),
	}
}

func addConfigRows(table *tablewriter.Table, config *Config) error {
	rows := [][]string{
		{"User Agent", formatConfigValue(config.UserAgent)},
		{"Languages", formatConfigValue(strings.Join(config.Languages, ", "))},
		{"Signing Key", formatConfigValue(config.SigningKey)},
		{"Client ID", formatConfigValue(config.ClientID)},
		{"Instance ID", formatConfigValue(config.InstanceID)},
		{"Access Token", formatConfigValue(config.AccessToken)},
		{"Timeout", formatConfigValue(config.Timeout)},
		{"Retry Max", strconv.Itoa(config.RetryMax)},
		{"Skip SSL Validation", strconv.FormatBool(config.SkipSSLValidation)},
		{"Trace Sink", formatConfigValue(config.TraceSink)},
		{"NATS URL", formatConfigValue(config.NATSURL)},
		{"Trace Subject", formatConfigValue(config.TraceSubject)},
		{"OTLP Endpoint", formatConfigValue(config.OTLPEndpoint)},
		{"Output", formatConfigValue(config.Output)},
	}

	for _, key := range sortedKeys(config.Hosts) {
		rows = append(rows, []string{"Host " + key, config.Hosts[key]})
	}

	for _, key := range sortedKeys(config.Headers) {
		rows = append(rows, []string{"Header " + key, config.Headers[key]})
	}

	return appendRows(table, rows)
}

func formatConfigValue(value string) string {
	if value == "" {
		return "-"
	}

	return value
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}

	return fmt.Sprintf("<%d chars>", len(value))
}

func parseBoolValue(value string) bool {
	return value == "true" || value == "1"
}

func splitList(value string) []string {
	var items []string

	for item := range strings.SplitSeq(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}

// outputConfigUpdateResult outputs configuration update results in the requested format.
func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	return writeOutput(cmd.OutOrStdout(), result, func(table *tablewriter.Table) error {
		rows := [][]string{{"Action", action}, {"Key", key}}
		if value != "" {
			rows = append(rows, []string{"Value", value})
		}

		return appendRows(table, rows)
	})
}
