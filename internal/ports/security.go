package ports

import "time"

type AuthClaims struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TokenVerifier interface {
	ParseAndValidate(token string) (AuthClaims, error)
}
