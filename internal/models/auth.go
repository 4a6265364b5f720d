package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a staff member.
type LoginRequest struct {
	StaffID  string `json:"staff_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and staff info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	Staff       StaffMember `json:"staff"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	StaffID string   `json:"staff_id"`
	Name    string   `json:"name"`
	Role    UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Scope derives the viewer scope carried by the token.
func (c *JWTClaims) Scope() *ViewerScope {
	if c == nil {
		return StaffScope("")
	}
	if c.Role == RoleAdmin {
		return &ViewerScope{StaffID: c.StaffID, Admin: true}
	}
	return StaffScope(c.StaffID)
}
