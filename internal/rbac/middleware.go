package rbac

import (
	"referral-platform/internal/auth"
	"referral-platform/internal/users"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole admits the request iff the authenticated identity's role is in allowed.
// It must run after auth.RequireAccessToken.
func RequireAnyRole(allowed ...users.Role) gin.HandlerFunc {
	set := NewRoleSet(allowed...)

	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			auth.Abort(c, auth.Unauthorized("authentication required"))
			return
		}
		if !set.Contains(id.Role) {
			auth.Abort(c, auth.Forbidden("insufficient permissions"))
			return
		}
		c.Next()
	}
}
