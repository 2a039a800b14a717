package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a staff member.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the signed-in profile.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        Staff     `json:"user"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Username      string    `json:"username"`
	Role          StaffRole `json:"role"`
	FullName      string    `json:"full_name"`
	HomeroomClass string    `json:"homeroom_class,omitempty"`
	jwt.RegisteredClaims
}

// Profile rebuilds the staff view carried in the token.
func (c *JWTClaims) Profile() Staff {
	return Staff{Username: c.Username, FullName: c.FullName, Role: c.Role, HomeroomClass: c.HomeroomClass}
}
