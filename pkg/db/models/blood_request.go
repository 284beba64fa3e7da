package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
)

// BloodRequest is a lifecycle-managed ask for units of one blood type.
// Version increments on every status change and guards concurrent updates.
type BloodRequest struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RequesterID     uuid.UUID           `gorm:"column:requester_id;type:uuid;not null;index"`
	PatientName     string              `gorm:"column:patient_name;not null"`
	BloodType       enums.BloodType     `gorm:"column:blood_type;not null;index"`
	Units           int                 `gorm:"column:units;not null"`
	Hospital        string              `gorm:"column:hospital;not null"`
	Urgency         enums.Urgency       `gorm:"column:urgency;not null"`
	Status          enums.RequestStatus `gorm:"column:status;not null;index"`
	ContactNumber   string              `gorm:"column:contact_number"`
	Notes           *string             `gorm:"column:notes"`
	BankID          *uuid.UUID          `gorm:"column:bank_id;type:uuid;index"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	Version         int                 `gorm:"column:version;not null;default:1"`
	NeededBy        time.Time           `gorm:"column:needed_by;not null;index"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (BloodRequest) TableName() string { return "blood_requests" }
