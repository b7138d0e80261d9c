package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/session"
)

func signToken(t *testing.T, secret string, claims session.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestJWTResolverResolvesUserID(t *testing.T) {
	resolver := session.NewJWTResolver("test-secret")
	claims := session.Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := signToken(t, "test-secret", claims)

	userID, err := resolver.ResolveUserID(context.Background(), "Bearer "+token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestJWTResolverRejectsExpiredToken(t *testing.T) {
	resolver := session.NewJWTResolver("test-secret")
	claims := session.Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := signToken(t, "test-secret", claims)

	_, err := resolver.ResolveUserID(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestJWTResolverRejectsWrongSecret(t *testing.T) {
	resolver := session.NewJWTResolver("test-secret")
	token := signToken(t, "other-secret", session.Claims{UserID: "user-123"})

	_, err := resolver.ResolveUserID(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestJWTResolverRejectsEmptyToken(t *testing.T) {
	resolver := session.NewJWTResolver("test-secret")
	_, err := resolver.ResolveUserID(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestStubResolverReturnsConfiguredUser(t *testing.T) {
	resolver := session.StubResolver{UserID: "dev-user"}
	userID, err := resolver.ResolveUserID(context.Background(), "any-token")
	assert.NoError(t, err)
	assert.Equal(t, "dev-user", userID)
}

func TestStubResolverRejectsEmptyToken(t *testing.T) {
	resolver := session.StubResolver{UserID: "dev-user"}
	_, err := resolver.ResolveUserID(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrNoSession)
}
