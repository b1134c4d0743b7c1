package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/paycore/internal/auth"
)

func TestTokenValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    *auth.Token
		expected bool
	}{
		{name: "nil token", token: nil, expected: false},
		{name: "empty access token", token: &auth.Token{}, expected: false},
		{name: "no expiry", token: &auth.Token{AccessToken: "410012345.ABCD"}, expected: true},
		{name: "future expiry", token: &auth.Token{AccessToken: "410012345.ABCD", ExpiresAt: time.Now().Add(time.Hour)}, expected: true},
		{name: "expired", token: &auth.Token{AccessToken: "410012345.ABCD", ExpiresAt: time.Now().Add(-time.Hour)}, expected: false},
		{name: "inside expiry buffer", token: &auth.Token{AccessToken: "410012345.ABCD", ExpiresAt: time.Now().Add(15 * time.Second)}, expected: false},
		{name: "outside expiry buffer", token: &auth.Token{AccessToken: "410012345.ABCD", ExpiresAt: time.Now().Add(time.Minute)}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.token.Valid())
		})
	}
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()
	assert.Nil(t, store.Get())

	store.Set(&auth.Token{AccessToken: "first", TokenType: "bearer"})
	assert.Equal(t, "first", store.Get().AccessToken)
	assert.Equal(t, "bearer", store.Get().TokenType)

	store.Clear()
	assert.Nil(t, store.Get())
}

func TestTokenStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()

	var wg sync.WaitGroup

	for _, value := range []string{"token-1", "token-2"} {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for range 100 {
				store.Set(&auth.Token{AccessToken: value})
			}
		}()

		go func() {
			defer wg.Done()

			for range 100 {
				_ = store.Get()
			}
		}()
	}

	wg.Wait()

	final := store.Get()
	if assert.NotNil(t, final) {
		assert.Contains(t, []string{"token-1", "token-2"}, final.AccessToken)
	}
}
