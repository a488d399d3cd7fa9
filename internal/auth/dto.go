// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type AdminLoginRequest struct {
	Username string `json:"username" validate:"omitempty,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenResponse(t *IssuedToken) *TokenResponse {
	return &TokenResponse{
		AccessToken: t.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(t.ExpiresAt).Seconds()),
		ExpiresAt:   t.ExpiresAt,
	}
}
