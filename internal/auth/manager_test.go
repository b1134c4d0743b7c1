package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/paycore/internal/auth"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

var errPersistFailed = errors.New("disk full")

type recordingPersister struct {
	mutex   sync.Mutex
	updates []string
	err     error
}

func (p *recordingPersister) UpdateAccessToken(token string, _ time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.updates = append(p.updates, token)

	return p.err
}

func (p *recordingPersister) recorded() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]string(nil), p.updates...)
}

func newRequest(t *testing.T) *coreapi.Request {
	t.Helper()

	target, err := url.Parse("https://money.example.com/api/account-info")
	require.NoError(t, err)

	return &coreapi.Request{Method: http.MethodPost, URL: target}
}

func TestTokenManagerToken(t *testing.T) {
	t.Parallel()

	manager := auth.NewTokenManager(nil, nil, logr.Discard())

	_, err := manager.Token(context.Background())
	require.ErrorIs(t, err, auth.ErrNoAccessToken)

	expired := auth.NewTokenManager(&auth.Token{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}, nil, logr.Discard())

	_, err = expired.Token(context.Background())
	require.ErrorIs(t, err, auth.ErrAccessTokenExpired)

	valid := auth.NewTokenManager(&auth.Token{AccessToken: "410012345.ABCD"}, nil, logr.Discard())

	token, err := valid.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "410012345.ABCD", token)
}

func TestTokenManagerSetToken(t *testing.T) {
	t.Parallel()

	persister := &recordingPersister{}
	manager := auth.NewTokenManager(nil, persister, logr.Discard())

	require.NoError(t, manager.SetToken("fresh", time.Now().Add(time.Hour)))

	token, err := manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, []string{"fresh"}, persister.recorded())

	persister.err = errPersistFailed

	err = manager.SetToken("newer", time.Time{})
	require.ErrorIs(t, err, errPersistFailed)

	token, err = manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "newer", token)
}

func TestTokenManagerRequestInterceptor(t *testing.T) {
	t.Parallel()

	manager := auth.NewTokenManager(&auth.Token{AccessToken: "410012345.ABCD"}, nil, logr.Discard())
	req := newRequest(t)

	require.NoError(t, manager.RequestInterceptor()(context.Background(), req))
	assert.Equal(t, "Bearer 410012345.ABCD", req.Header.Get("Authorization"))

	empty := auth.NewTokenManager(nil, nil, logr.Discard())

	err := empty.RequestInterceptor()(context.Background(), newRequest(t))
	require.ErrorIs(t, err, auth.ErrNoAccessToken)
}

func TestTokenManagerResponseInterceptor(t *testing.T) {
	t.Parallel()

	persister := &recordingPersister{}
	manager := auth.NewTokenManager(&auth.Token{AccessToken: "410012345.ABCD"}, persister, logr.Discard())
	interceptor := manager.ResponseInterceptor()
	req := newRequest(t)

	ok := &coreapi.Outcome{Request: req, Response: &coreapi.HTTPResponse{StatusCode: http.StatusOK}}
	require.NoError(t, interceptor(context.Background(), req, ok))
	assert.Empty(t, persister.recorded())

	failed := &coreapi.Outcome{Request: req, Err: errPersistFailed}
	require.NoError(t, interceptor(context.Background(), req, failed))
	assert.Empty(t, persister.recorded())

	rejected := &coreapi.Outcome{Request: req, Response: &coreapi.HTTPResponse{StatusCode: http.StatusUnauthorized}}
	require.NoError(t, interceptor(context.Background(), req, rejected))
	assert.Equal(t, []string{""}, persister.recorded())

	_, err := manager.Token(context.Background())
	require.ErrorIs(t, err, auth.ErrNoAccessToken)

	require.NoError(t, interceptor(context.Background(), req, rejected))
	assert.Equal(t, []string{""}, persister.recorded())
}

func TestTokenManagerInvalidatePersistError(t *testing.T) {
	t.Parallel()

	persister := &recordingPersister{err: errPersistFailed}
	manager := auth.NewTokenManager(&auth.Token{AccessToken: "410012345.ABCD"}, persister, logr.Discard())

	require.ErrorIs(t, manager.Invalidate(), errPersistFailed)

	_, err := manager.Token(context.Background())
	require.ErrorIs(t, err, auth.ErrNoAccessToken)
}
