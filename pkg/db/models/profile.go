package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// Profile holds the directory entry of a donor or requester.
type Profile struct {
	AccountID      uuid.UUID       `gorm:"column:account_id;type:uuid;primaryKey"`
	FullName       string          `gorm:"column:full_name;not null"`
	Phone          string          `gorm:"column:phone"`
	BloodType      enums.BloodType `gorm:"column:blood_type;index"`
	City           string          `gorm:"column:city;index"`
	Latitude       *float64        `gorm:"column:latitude"`
	Longitude      *float64        `gorm:"column:longitude"`
	Available      bool            `gorm:"column:available;not null"`
	DonationCount  int             `gorm:"column:donation_count;not null;default:0"`
	LastDonationAt *time.Time      `gorm:"column:last_donation_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string { return "profiles" }
