package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens issued by the
// course-tracking portal.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserType `json:"role"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	jwt.RegisteredClaims
}
