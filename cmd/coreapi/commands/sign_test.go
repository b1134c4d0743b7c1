//nolint:testpackage // Need access to internal types
package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

const testSigningKey = "dpq3b8ki_YkBOQK2UPAfzL0MF829OTw4_Boy5SlfliI"

func TestSign(t *testing.T) {
	t.Parallel()

	result, err := Sign(testSigningKey, coreapi.ClientID("app"), map[string]string{"orderId": "42", "amount": "10.00"})
	require.NoError(t, err)

	assert.Equal(t, "clientId:app", result.Issuer)
	assert.Len(t, strings.Split(result.Token, "."), 3)
	assert.Contains(t, result.Header, `"alg":"ES256"`)
	assert.Contains(t, result.Header, `"iss":"clientId:app"`)
	assert.JSONEq(t, `{"amount":"10.00","orderId":"42"}`, result.Payload)
}

func TestSignEmptyPayload(t *testing.T) {
	t.Parallel()

	result, err := Sign(testSigningKey, coreapi.InstanceID("device-1"), nil)
	require.NoError(t, err)

	assert.Equal(t, "{}", result.Payload)
	assert.Contains(t, result.Header, `"iss":"instanceId:device-1"`)
}

func TestSignErrors(t *testing.T) {
	t.Parallel()

	_, err := Sign("***", coreapi.ClientID("app"), nil)
	require.ErrorIs(t, err, constants.ErrInvalidSigningKey)
	assert.Contains(t, err.Error(), "invalid signing key")

	_, err = Sign(testSigningKey, coreapi.IssuerClaim{}, nil)
	require.ErrorIs(t, err, coreapi.ErrIssuerClaimNotSet)
}

func TestResolveIssuer(t *testing.T) {
	t.Parallel()

	config := newTestConfig()
	config.InstanceID = "device-1"

	issuer, err := resolveIssuer(&signOptions{clientID: "app"}, config)
	require.NoError(t, err)
	assert.Equal(t, "clientId:app", issuer.String())

	issuer, err = resolveIssuer(&signOptions{}, config)
	require.NoError(t, err)
	assert.Equal(t, "instanceId:device-1", issuer.String())

	_, err = resolveIssuer(&signOptions{}, newTestConfig())
	require.ErrorIs(t, err, constants.ErrIssuerRequired)
}

func TestResolveSigningKey(t *testing.T) {
	t.Parallel()

	config := newTestConfig()
	config.SigningKey = "from-config"

	key, err := resolveSigningKey(&signOptions{key: "from-flag"}, config, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", key)

	key, err = resolveSigningKey(&signOptions{}, config, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)
}
