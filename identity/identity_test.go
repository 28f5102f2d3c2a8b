package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("u-alice")
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id)
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", time.Hour)
		token, err := other.Issue("u-alice")
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenIssuer("test-secret", -time.Minute)
		token, err := expired.Issue("u-alice")
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), "u-alice")

	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-alice", id)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestProviders(t *testing.T) {
	ctx := WithIdentity(context.Background(), "u-alice")

	id, ok := Context{}.CurrentIdentity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-alice", id)

	_, ok = Context{}.CurrentIdentity(context.Background())
	assert.False(t, ok)

	id, ok = Static("u-bob").CurrentIdentity(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "u-bob", id)

	_, ok = Static("").CurrentIdentity(context.Background())
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	var seen string
	var seenOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := issuer.Middleware(next)

	t.Run("no header passes through unauthenticated", func(t *testing.T) {
		seen, seenOK = "", false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, seenOK)
	})

	t.Run("valid bearer token sets identity", func(t *testing.T) {
		token, err := issuer.Issue("u-alice")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, seenOK)
		assert.Equal(t, "u-alice", seen)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcg==")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
