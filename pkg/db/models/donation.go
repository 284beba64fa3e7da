package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// Donation records units given by a donor at a bank.
type Donation struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DonorID    uuid.UUID       `gorm:"column:donor_id;type:uuid;not null;index"`
	BankID     uuid.UUID       `gorm:"column:bank_id;type:uuid;not null;index"`
	BloodType  enums.BloodType `gorm:"column:blood_type;not null"`
	Units      int             `gorm:"column:units;not null"`
	RecordedBy uuid.UUID       `gorm:"column:recorded_by;type:uuid;not null"`
	DonatedAt  time.Time       `gorm:"column:donated_at;not null"`
}

func (Donation) TableName() string { return "donations" }
