package donations

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// RecordInput is a donation taken by a bank admin.
type RecordInput struct {
	DonorID uuid.UUID
	BankID  uuid.UUID
	Units   int
	Actor   auth.Actor
}

// DonationDTO is the API view of a recorded donation.
type DonationDTO struct {
	ID         uuid.UUID       `json:"id"`
	DonorID    uuid.UUID       `json:"donor_id"`
	BankID     uuid.UUID       `json:"bank_id"`
	BloodType  enums.BloodType `json:"blood_type"`
	Units      int             `json:"units"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
	DonatedAt  time.Time       `json:"donated_at"`
}

func FromModel(m models.Donation) DonationDTO {
	return DonationDTO{
		ID:         m.ID,
		DonorID:    m.DonorID,
		BankID:     m.BankID,
		BloodType:  m.BloodType,
		Units:      m.Units,
		RecordedBy: m.RecordedBy,
		DonatedAt:  m.DonatedAt,
	}
}
