package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// InventoryRecord tracks the unit count per bank and blood type.
type InventoryRecord struct {
	BankID    uuid.UUID       `gorm:"column:bank_id;type:uuid;primaryKey"`
	BloodType enums.BloodType `gorm:"column:blood_type;primaryKey"`
	Units     int             `gorm:"column:units;not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }
