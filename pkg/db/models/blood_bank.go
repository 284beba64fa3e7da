package models

import (
	"time"

	"github.com/google/uuid"
)

// BloodBank is a registered bank operating an inventory.
type BloodBank struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	LicenseNumber string    `gorm:"column:license_number;not null;uniqueIndex"`
	LicenseExpiry time.Time `gorm:"column:license_expiry;not null"`
	ContactPerson string    `gorm:"column:contact_person;not null"`
	Email         string    `gorm:"column:email;not null"`
	Phone         string    `gorm:"column:phone;not null"`
	Address       string    `gorm:"column:address;not null"`
	City          string    `gorm:"column:city;not null"`
	Latitude      *float64  `gorm:"column:latitude"`
	Longitude     *float64  `gorm:"column:longitude"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (BloodBank) TableName() string { return "blood_banks" }
