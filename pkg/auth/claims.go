package auth

import (
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// WindowID is the session tracker key the token is bound to and becomes the jti.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	WindowID string
}

// AccessTokenClaims represents the typed JWT issued after login.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// WindowID returns the tracked window key the token was issued for.
func (c *AccessTokenClaims) WindowID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
