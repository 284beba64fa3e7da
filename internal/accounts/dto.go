package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// AccountDTO is the transport shape that omits credentials.
type AccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Role        enums.Role `json:"role"`
	BankID      *uuid.UUID `json:"bank_id,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAccountDTO holds the data required to persist a new account.
type CreateAccountDTO struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         enums.Role
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(a *models.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.Role,
		BankID:      a.BankID,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

func (c CreateAccountDTO) ToModel() *models.Account {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &models.Account{
		ID:           id,
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
	}
}
