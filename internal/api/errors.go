package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/apperr"
)

// writeError renders an *apperr.Error (or an opaque error, wrapped as
// Internal) as the JSON error envelope the controllers share.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.NewInternal("unexpected_error", err.Error(), err)
	}

	body := gin.H{
		"error":     appErr.Message,
		"code":      appErr.Code,
		"retryable": appErr.Retryable,
	}
	if appErr.RetryAfter != nil {
		seconds := int(appErr.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.Itoa(seconds))
		body["retryAfterSeconds"] = seconds
	}
	c.JSON(appErr.HTTPStatus, body)
}

// currentUserID reads the userId resolved by authMiddleware. Panics if
// called outside an authed route, which is a programming error.
func currentUserID(c *gin.Context) string {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		panic("api: currentUserID called without authMiddleware")
	}
	return v.(string)
}

const contextUserIDKey = "pricelens.userId"
