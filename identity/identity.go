// Package identity provides the board's identity collaborator: who the
// acting user is, carried as an HMAC-signed token and surfaced to the core
// through the mealplan.IdentityProvider interface. When no identity can be
// established the board runs in open-edit mode.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

type contextKey struct{}

// WithIdentity returns a context carrying the acting identity.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the acting identity, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// =============================================================================
// PROVIDERS
// =============================================================================

// Context resolves the acting identity from the request context; this is
// the provider the HTTP layer wires into the controller.
type Context struct{}

func (Context) CurrentIdentity(ctx context.Context) (string, bool) {
	return FromContext(ctx)
}

// Static always reports the same identity; an empty value means absent.
// Used in tests and single-user deployments.
type Static string

func (s Static) CurrentIdentity(context.Context) (string, bool) {
	return string(s), s != ""
}

// =============================================================================
// TOKENS
// =============================================================================

// TokenIssuer signs and verifies identity tokens.
type TokenIssuer struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims is the token payload; the subject is the identity string.
type Claims struct {
	jwt.RegisteredClaims
}

// NewTokenIssuer creates an issuer with the given secret and token lifetime.
func NewTokenIssuer(secretKey string, tokenDuration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Issue creates a signed token for the given identity.
func (i *TokenIssuer) Issue(id string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.secretKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware extracts a Bearer token from the Authorization header and puts
// the verified identity on the request context. Requests without a token
// pass through unauthenticated (open-edit mode); requests with a bad token
// are rejected.
func (i *TokenIssuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, "malformed authorization header", http.StatusUnauthorized)
			return
		}

		id, err := i.Verify(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
