package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// Account is the identity record. Accounts are never deleted.
type Account struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         enums.Role `gorm:"column:role;not null"`
	BankID       *uuid.UUID `gorm:"column:bank_id;type:uuid;index"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }
