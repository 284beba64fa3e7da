package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// InventoryAdjustment is an immutable stock history entry.
type InventoryAdjustment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	BankID         uuid.UUID              `gorm:"column:bank_id;type:uuid;not null;index:idx_inventory_adjustments_pair"`
	BloodType      enums.BloodType        `gorm:"column:blood_type;not null;index:idx_inventory_adjustments_pair"`
	Delta          int                    `gorm:"column:delta;not null"`
	ResultingUnits int                    `gorm:"column:resulting_units;not null"`
	Reason         enums.AdjustmentReason `gorm:"column:reason;not null"`
	ActorID        uuid.UUID              `gorm:"column:actor_id;type:uuid;not null"`
	RequestID      *uuid.UUID             `gorm:"column:request_id;type:uuid"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryAdjustment) TableName() string { return "inventory_adjustments" }
