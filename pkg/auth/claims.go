package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID string
	UserID   string
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by clients. TenantID
// scopes every API call.
type AccessTokenClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}
