package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"referral-platform/internal/users"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Subject carries the identity ID; ID (jti) is unique per token.
// Refresh tokens carry no role: the role is re-read from the user store on refresh.
type Claims struct {
	jwt.RegisteredClaims

	Role      users.Role `json:"role,omitempty"`
	TokenType TokenType  `json:"token_type"`
}
