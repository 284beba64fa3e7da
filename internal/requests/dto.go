package requests

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateInput carries a new blood request. ID is optional; clients that
// generate their own ids get a conflict when the id is already taken.
type CreateInput struct {
	ID            *uuid.UUID
	PatientName   string
	BloodType     enums.BloodType
	Units         int
	Hospital      string
	Urgency       enums.Urgency
	ContactNumber string
	Notes         *string
	NeededBy      time.Time
	Actor         auth.Actor
}

// TransitionInput moves a request to Target. Reason is kept for rejections.
type TransitionInput struct {
	RequestID uuid.UUID
	Target    enums.RequestStatus
	Actor     auth.Actor
	Reason    string
}

// QueryFilter narrows Query. Zero values mean "any".
type QueryFilter struct {
	Status      *enums.RequestStatus
	BloodType   *enums.BloodType
	NeededFrom  *time.Time
	NeededTo    *time.Time
	RequesterID *uuid.UUID
	BankID      *uuid.UUID
	Limit       int
	Offset      int
}

// RequestDTO is the API view of a blood request.
type RequestDTO struct {
	ID              uuid.UUID           `json:"id"`
	RequesterID     uuid.UUID           `json:"requester_id"`
	PatientName     string              `json:"patient_name"`
	BloodType       enums.BloodType     `json:"blood_type"`
	Units           int                 `json:"units"`
	Hospital        string              `json:"hospital"`
	Urgency         enums.Urgency       `json:"urgency"`
	Status          enums.RequestStatus `json:"status"`
	ContactNumber   string              `json:"contact_number,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	BankID          *uuid.UUID          `json:"bank_id,omitempty"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
	Version         int                 `json:"version"`
	NeededBy        time.Time           `json:"needed_by"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// FromModel maps a stored request to its DTO.
func FromModel(m models.BloodRequest) RequestDTO {
	return RequestDTO{
		ID:              m.ID,
		RequesterID:     m.RequesterID,
		PatientName:     m.PatientName,
		BloodType:       m.BloodType,
		Units:           m.Units,
		Hospital:        m.Hospital,
		Urgency:         m.Urgency,
		Status:          m.Status,
		ContactNumber:   m.ContactNumber,
		Notes:           m.Notes,
		BankID:          m.BankID,
		RejectionReason: m.RejectionReason,
		Version:         m.Version,
		NeededBy:        m.NeededBy,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
