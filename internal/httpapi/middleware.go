package httpapi

import (
	"referral-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP stores the caller's address on the request context for audit events.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
