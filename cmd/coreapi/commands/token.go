package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/paycore/internal/auth"
	"github.com/fivetwenty-io/paycore/internal/constants"
)

// TokenStatus describes the stored access token.
type TokenStatus struct {
	Status          string `json:"status"                      yaml:"status"`
	Authenticated   bool   `json:"authenticated"               yaml:"authenticated"`
	ExpiresAt       string `json:"expires_at,omitempty"        yaml:"expires_at,omitempty"`
	ExpiryStatus    string `json:"expiry_status,omitempty"     yaml:"expiry_status,omitempty"`
	TimeUntilExpiry string `json:"time_until_expiry,omitempty" yaml:"time_until_expiry,omitempty"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the access token",
		Long:  "Commands for managing the OAuth access token sent as a bearer Authorization header",
	}

	cmd.AddCommand(newTokenStatusCommand())
	cmd.AddCommand(newTokenSetCommand())
	cmd.AddCommand(newTokenClearCommand())

	return cmd
}

func newTokenStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show token status and expiration",
		Long:  "Display whether an access token is stored and when it expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := BuildTokenStatus(loadConfig(), time.Now())

			return writeOutput(cmd.OutOrStdout(), status, func(table *tablewriter.Table) error {
				rows := [][]string{
					{"Status", status.Status},
					{"Authenticated", fmt.Sprintf("%t", status.Authenticated)},
				}

				if status.ExpiresAt != "" {
					rows = append(rows, []string{"Expires At", status.ExpiresAt}, []string{"Time Until Expiry", status.TimeUntilExpiry})
				}

				if status.ExpiryStatus != "" {
					rows = append(rows, []string{"Expiry Status", status.ExpiryStatus})
				}

				return appendRows(table, rows)
			})
		},
	}
}

func newTokenSetCommand() *cobra.Command {
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "set TOKEN",
		Short: "Store an access token",
		Long:  "Store the access token sent with performed methods. Without --expires-in the token never expires locally.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiresAt time.Time
			if expiresIn > 0 {
				expiresAt = time.Now().Add(expiresIn).UTC()
			}

			manager := auth.NewTokenManager(nil, NewConfigPersister(), newLogger())

			err := manager.SetToken(args[0], expiresAt)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Set", "access_token", maskSecret(args[0]))
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime, e.g. 720h")

	return cmd
}

func newTokenClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored access token",
		Long:  "Remove the stored access token and its expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			manager := auth.NewTokenManager(accessToken(config), NewConfigPersister(), newLogger())

			err := manager.Invalidate()
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Unset", "access_token", "")
		},
	}
}

// BuildTokenStatus reports the token stored in config as seen at now.
func BuildTokenStatus(config *Config, now time.Time) *TokenStatus {
	if config.AccessToken == "" {
		return &TokenStatus{Status: "No token"}
	}

	status := &TokenStatus{Status: "Token present", Authenticated: true}

	if config.TokenExpiresAt == nil {
		status.ExpiryStatus = "No expiration"

		return status
	}

	untilExpiry := config.TokenExpiresAt.Sub(now)

	status.ExpiresAt = config.TokenExpiresAt.Format(time.RFC3339)
	status.TimeUntilExpiry = untilExpiry.Round(time.Second).String()

	switch {
	case untilExpiry <= 0:
		status.ExpiryStatus = "Expired"
		status.Authenticated = false
	case untilExpiry <= constants.TokenExpiringSoon:
		status.ExpiryStatus = "Expires soon"
	default:
		status.ExpiryStatus = "Valid"
	}

	return status
}

// accessToken returns the stored token, or nil when there is none.
func accessToken(config *Config) *auth.Token {
	if config.AccessToken == "" {
		return nil
	}

	token := &auth.Token{AccessToken: config.AccessToken, TokenType: "bearer"}
	if config.TokenExpiresAt != nil {
		token.ExpiresAt = *config.TokenExpiresAt
	}

	return token
}
