package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/internal/encoding"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// SignResult is a signed envelope.
type SignResult struct {
	Issuer  string `json:"issuer"  yaml:"issuer"`
	Header  string `json:"header"  yaml:"header"`
	Payload string `json:"payload" yaml:"payload"`
	Token   string `json:"token"   yaml:"token"`
}

type signOptions struct {
	clientID   string
	instanceID string
	key        string
	data       string
	params     []string
}

// NewSignCommand creates the sign command.
func NewSignCommand() *cobra.Command {
	opts := &signOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload as an ES256 JWS",
		Long: `Sign a payload with the configured P-256 key and issuer claim.

The key is taken from --key, the signing_key setting, or prompted for without
echo. The payload is --data (a JSON object) or the --param pairs.`,
		Example: `  coreapi sign --client-id app --param orderId=42 --param amount=10.00
  coreapi sign --instance-id device-1 --data '{"orderId":"42"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			issuer, err := resolveIssuer(opts, config)
			if err != nil {
				return err
			}

			key, err := resolveSigningKey(opts, config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			payload, err := payloadFromFlags(opts.data, opts.params)
			if err != nil {
				return err
			}

			result, err := Sign(key, issuer, payload)
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), result, func(table *tablewriter.Table) error {
				return appendRows(table, [][]string{
					{"Issuer", result.Issuer},
					{"Header", result.Header},
					{"Payload", result.Payload},
					{"Token", result.Token},
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "issuer claim client ID")
	cmd.Flags().StringVar(&opts.instanceID, "instance-id", "", "issuer claim instance ID")
	cmd.Flags().StringVar(&opts.key, "key", "", "base64url P-256 private key")
	cmd.Flags().StringVar(&opts.data, "data", "", "JSON object to sign")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "payload parameter as key=value (repeatable)")

	return cmd
}

// Sign signs payload with a base64url key and returns the decoded parts next
// to the token.
func Sign(encodedKey string, issuer coreapi.IssuerClaim, payload any) (*SignResult, error) {
	key, err := encoding.DecodeSigningKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	token, err := encoding.NewSigner(key, issuer).Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	parts := strings.Split(token, ".")
	result := &SignResult{Issuer: issuer.String(), Token: token}

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err == nil {
		result.Header = string(header)
	}

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err == nil {
		result.Payload = string(body)
	}

	return result, nil
}

func resolveIssuer(opts *signOptions, config *Config) (coreapi.IssuerClaim, error) {
	switch {
	case opts.clientID != "":
		return coreapi.ClientID(opts.clientID), nil
	case opts.instanceID != "":
		return coreapi.InstanceID(opts.instanceID), nil
	}

	cfg := coreapi.Config{ClientID: config.ClientID, InstanceID: config.InstanceID}

	issuer := cfg.IssuerClaim()
	if issuer.IsZero() {
		return coreapi.IssuerClaim{}, constants.ErrIssuerRequired
	}

	return issuer, nil
}

func resolveSigningKey(opts *signOptions, config *Config, prompt io.Writer) (string, error) {
	if opts.key != "" {
		return opts.key, nil
	}

	if config.SigningKey != "" {
		return config.SigningKey, nil
	}

	_, _ = fmt.Fprint(prompt, "Signing key: ")

	keyBytes, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // syscall.Stdin is not an int on every platform
	if err != nil {
		return "", fmt.Errorf("failed to read signing key: %w", err)
	}

	_, _ = fmt.Fprintln(prompt)

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		return "", constants.ErrEmptySigningKey
	}

	return key, nil
}
