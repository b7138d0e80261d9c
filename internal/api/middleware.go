package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/ratelimit"
	"github.com/pricelens/core/internal/session"
)

// authMiddleware resolves the caller's userId from their bearer token
// and stores it in the gin context for downstream handlers.
func authMiddleware(resolver session.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		userID, err := resolver.ResolveUserID(c.Request.Context(), header)
		if err != nil {
			writeError(c, apperr.NewUnauthorized("no_session", "missing or invalid session"))
			c.Abort()
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// cronAuthMiddleware implements spec.md §6's cron auth: a shared secret
// comparison via x-cron-secret or Authorization: Bearer, constant-time
// to avoid leaking the secret through timing.
func cronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("x-cron-secret")
		if provided == "" {
			provided = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			writeError(c, apperr.NewUnauthorized("bad_cron_secret", "missing or incorrect cron secret"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-user+route fixed-window limiter
// from spec.md §3/§5 on interactive mutation endpoints.
func rateLimitMiddleware(limiter *ratelimit.Limiter, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)
		allowed, retryAfter, err := limiter.Allow(ratelimit.Key(userID, route))
		if err != nil {
			writeError(c, apperr.NewInternal("rate_limit_check_failed", "rate limit check failed", err))
			c.Abort()
			return
		}
		if !allowed {
			writeError(c, apperr.NewRateLimited("rate_limited", "too many requests", retryAfter))
			c.Abort()
			return
		}
		c.Next()
	}
}
