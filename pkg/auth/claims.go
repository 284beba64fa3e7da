package auth

import (
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.Role
	BankID    *uuid.UUID
	// JTI doubles as the Redis session key; a fresh one is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Role      enums.Role `json:"role"`
	BankID    *uuid.UUID `json:"bank_id,omitempty"`
	jwt.RegisteredClaims
}
