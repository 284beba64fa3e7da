package auth

import (
	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload for creating an account.
type RegisterRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required"`
	Role     enums.Role `json:"role" validate:"required"`
	FullName string     `json:"full_name" validate:"required"`
}

// RefreshRequest exchanges a refresh token, bound to the access token that
// was issued with it, for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and account produced by login, register
// and refresh.
type TokenResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	Account      *accounts.AccountDTO `json:"account"`
}

// ForgotPasswordRequest asks for a reset token for the account behind Email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordResponse is identical for known and unknown emails.
// ResetToken is only filled in development.
type ForgotPasswordResponse struct {
	Accepted   bool   `json:"accepted"`
	ResetToken string `json:"reset_token,omitempty"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}
