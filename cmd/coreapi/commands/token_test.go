//nolint:testpackage // Need access to internal types
package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCommand(t *testing.T) {
	t.Parallel()

	cmd := NewTokenCommand()
	assert.Equal(t, "token", cmd.Use)
	assert.Equal(t, "Manage the access token", cmd.Short)

	names := subcommandNames(cmd)
	assert.Len(t, names, 3)
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "set")
	assert.Contains(t, names, "clear")

	set := newTokenSetCommand()
	assert.Equal(t, "set TOKEN", set.Use)
	require.Error(t, set.Args(set, []string{}))

	expiresIn := set.Flags().Lookup("expires-in")
	require.NotNil(t, expiresIn)
	assert.Equal(t, "0s", expiresIn.DefValue)
}

func TestBuildTokenStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) *time.Time {
		expiresAt := now.Add(offset)

		return &expiresAt
	}

	tests := []struct {
		name          string
		config        *Config
		status        string
		authenticated bool
		expiryStatus  string
	}{
		{name: "no token", config: &Config{}, status: "No token"},
		{name: "no expiry", config: &Config{AccessToken: "t"}, status: "Token present", authenticated: true, expiryStatus: "No expiration"},
		{name: "valid", config: &Config{AccessToken: "t", TokenExpiresAt: at(time.Hour)}, status: "Token present", authenticated: true, expiryStatus: "Valid"},
		{name: "expires soon", config: &Config{AccessToken: "t", TokenExpiresAt: at(2 * time.Minute)}, status: "Token present", authenticated: true, expiryStatus: "Expires soon"},
		{name: "expired", config: &Config{AccessToken: "t", TokenExpiresAt: at(-time.Minute)}, status: "Token present", expiryStatus: "Expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status := BuildTokenStatus(tt.config, now)
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.authenticated, status.Authenticated)
			assert.Equal(t, tt.expiryStatus, status.ExpiryStatus)
		})
	}

	status := BuildTokenStatus(&Config{AccessToken: "t", TokenExpiresAt: at(time.Hour)}, now)
	assert.Equal(t, "2026-03-01T13:00:00Z", status.ExpiresAt)
	assert.Equal(t, "1h0m0s", status.TimeUntilExpiry)
}

func TestAccessToken(t *testing.T) {
	t.Parallel()

	assert.Nil(t, accessToken(&Config{}))

	expiresAt := time.Now().Add(time.Hour)

	token := accessToken(&Config{AccessToken: "410012345.ABCD", TokenExpiresAt: &expiresAt})
	require.NotNil(t, token)
	assert.Equal(t, "410012345.ABCD", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.True(t, token.Valid())
}
