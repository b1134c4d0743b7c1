package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Static errors for err113 compliance.
var (
	ErrNoAccessToken      = errors.New("no access token configured")
	ErrAccessTokenExpired = errors.New("access token expired")
)

// TokenPersister saves token changes. An empty token means the token was
// revoked.
type TokenPersister interface {
	UpdateAccessToken(token string, expiresAt time.Time) error
}

// TokenManager supplies the bearer token for requests and drops it once the
// server reports it invalid.
type TokenManager struct {
	store     *TokenStore
	persister TokenPersister
	logger    logr.Logger
	mutex     sync.Mutex
}

// NewTokenManager creates a manager holding initial. persister may be nil.
func NewTokenManager(initial *Token, persister TokenPersister, logger logr.Logger) *TokenManager {
	store := NewTokenStore()
	if initial != nil && initial.AccessToken != "" {
		store.Set(initial)
	}

	return &TokenManager{
		store:     store,
		persister: persister,
		logger:    logger,
	}
}

// Token returns the access token to send.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	token := m.store.Get()

	switch {
	case token == nil:
		return "", ErrNoAccessToken
	case !token.Valid():
		return "", fmt.Errorf("%w at %s", ErrAccessTokenExpired, token.ExpiresAt.Format(time.RFC3339))
	default:
		return token.AccessToken, nil
	}
}

// SetToken replaces the access token and persists it.
func (m *TokenManager) SetToken(accessToken string, expiresAt time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.store.Set(&Token{AccessToken: accessToken, TokenType: "bearer", ExpiresAt: expiresAt})

	return m.persist(accessToken, expiresAt)
}

// Invalidate drops the access token and persists the removal.
func (m *TokenManager) Invalidate() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.store.Get() == nil {
		return nil
	}

	m.store.Clear()

	return m.persist("", time.Time{})
}

// RequestInterceptor adds the bearer Authorization header.
func (m *TokenManager) RequestInterceptor() coreapi.RequestInterceptor {
	return coreapi.AuthenticationInterceptor(m.Token)
}

// ResponseInterceptor invalidates the token when the server answers 401.
// Persistence failures are logged and never fail the task.
func (m *TokenManager) ResponseInterceptor() coreapi.ResponseInterceptor {
	return func(ctx context.Context, req *coreapi.Request, outcome *coreapi.Outcome) error {
		if outcome.Response == nil || outcome.Response.StatusCode != http.StatusUnauthorized {
			return nil
		}

		m.logger.Info("Access token rejected, dropping it", "url", req.URL.String())

		err := m.Invalidate()
		if err != nil {
			m.logger.Error(err, "Failed to persist token removal")
		}

		return nil
	}
}

func (m *TokenManager) persist(accessToken string, expiresAt time.Time) error {
	if m.persister == nil {
		return nil
	}

	err := m.persister.UpdateAccessToken(accessToken, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	return nil
}
