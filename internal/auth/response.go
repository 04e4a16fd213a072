package auth

import (
	"net/http"

	"referral-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusFor maps an error Kind to its HTTP status.
func StatusFor(k Kind) int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Abort terminates the gin chain with the error's status and a {"error","code"} body.
// Internal causes are logged and replaced by a generic message.
func Abort(c *gin.Context, err error) {
	kind := KindOf(err)
	log := logger.FromGin(c)
	switch kind {
	case KindInternal:
		log.Error("request failed", "code", kind, "err", err)
	default:
		log.Warn("request rejected", "code", kind, "reason", PublicMessage(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(kind), gin.H{
		"error": PublicMessage(err),
		"code":  kind,
	})
}
