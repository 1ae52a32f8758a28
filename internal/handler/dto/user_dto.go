package dto

import (
	"time"

	"github.com/yourusername/accounts-api/internal/domain/entity"
)

// passwordMask replaces the credential field in every API response. The real
// hash never crosses the wire.
const passwordMask = "**********"

// UserResponse is the public representation of an account.
type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	Password   string    `json:"password"`
	IsVerified bool      `json:"is_verified"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TokenResponse is the body returned by login and verification.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewUserResponse maps an account entity into its API shape.
func NewUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Password:   passwordMask,
		IsVerified: user.IsVerified,
		IsAdmin:    user.IsAdmin,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// NewUserListResponse maps a slice of accounts.
func NewUserListResponse(users []entity.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = NewUserResponse(&users[i])
	}
	return out
}

// NewTokenResponse builds the bearer token body.
func NewTokenResponse(accessToken string, ttl time.Duration) TokenResponse {
	return TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}
}
