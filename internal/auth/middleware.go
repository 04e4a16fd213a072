package auth

import (
	"context"
	"strings"

	"referral-platform/internal/users"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

// ContextKeyIdentity is the gin context key holding the resolved users.Public.
const ContextKeyIdentity = "identity"

// Authenticator resolves a bearer access token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (users.Public, error)
}

// RequireAccessToken verifies the bearer access token and injects the identity into the request context.
// It does not perform role checks; those belong to internal/rbac.
func RequireAccessToken(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request.Context(), BearerToken(c.GetHeader(authorizationHeader)))
		if err != nil {
			Abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		// Also store on gin context for handler convenience.
		c.Set(ContextKeyIdentity, id)

		c.Next()
	}
}

// BearerToken extracts <token> from "Bearer <token>". Any other form yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
