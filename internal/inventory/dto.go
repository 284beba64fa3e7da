package inventory

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// AdjustInput describes one signed change to a bank's stock.
type AdjustInput struct {
	BankID    uuid.UUID
	BloodType enums.BloodType
	Delta     int
	Reason    enums.AdjustmentReason
	Actor     auth.Actor
	RequestID *uuid.UUID
}

// AdjustResult is the applied adjustment plus the new level.
type AdjustResult struct {
	Adjustment models.InventoryAdjustment `json:"adjustment"`
	Level      Level                      `json:"level"`
}

// Level is the classified stock of one blood type at one bank.
type Level struct {
	BankID    uuid.UUID        `json:"bank_id"`
	BloodType enums.BloodType  `json:"blood_type"`
	Units     int              `json:"units"`
	Level     enums.StockLevel `json:"level"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// Summary aggregates a bank's stock dashboard.
type Summary struct {
	Critical   int `json:"critical"`
	Low        int `json:"low"`
	Safe       int `json:"safe"`
	TotalUnits int `json:"total_units"`
}

// BankLevels lists every blood type for a bank in canonical order.
type BankLevels struct {
	BankID  uuid.UUID `json:"bank_id"`
	Levels  []Level   `json:"levels"`
	Summary Summary   `json:"summary"`
}
