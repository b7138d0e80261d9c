// Package session implements the thin JWT/session verification
// interface the core calls to resolve a userId from a request
// (SPEC_FULL.md §2), with a stub implementation suitable for local
// development. A production deployment swaps this out for the real
// auth collaborator without touching any handler.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when a request carries no resolvable session.
var ErrNoSession = errors.New("no session")

// Resolver resolves a userId from an inbound request's bearer token.
type Resolver interface {
	ResolveUserID(ctx context.Context, bearerToken string) (string, error)
}

// Claims is the JWT payload a session token carries, mirroring the
// UserID-bearing custom claims in api_gateway/src/auth.AuthService.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTResolver validates a signed JWT and extracts its UserID claim,
// mirroring the teacher's JWT verification flow in
// user_management_service/src/AuthService.go.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver constructs a JWTResolver with the given signing secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// ResolveUserID parses and validates bearerToken, returning its
// UserID claim.
func (r *JWTResolver) ResolveUserID(ctx context.Context, bearerToken string) (string, error) {
	bearerToken = strings.TrimSpace(strings.TrimPrefix(bearerToken, "Bearer "))
	if bearerToken == "" {
		return "", ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(bearerToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrNoSession
	}
	return claims.UserID, nil
}

// StubResolver is a fixed-identity resolver for local/dev environments
// where no real auth collaborator is wired up. Any non-empty bearer
// token resolves to the configured userId.
type StubResolver struct {
	UserID string
}

// ResolveUserID returns the configured UserID for any non-empty token.
func (s StubResolver) ResolveUserID(ctx context.Context, bearerToken string) (string, error) {
	if strings.TrimSpace(bearerToken) == "" {
		return "", ErrNoSession
	}
	return s.UserID, nil
}
