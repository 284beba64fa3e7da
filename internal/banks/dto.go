package banks

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/location"
	"github.com/google/uuid"
)

// BankDTO is the public shape of a registered blood bank.
type BankDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	LicenseNumber string          `json:"license_number"`
	LicenseExpiry time.Time       `json:"license_expiry"`
	ContactPerson string          `json:"contact_person"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Location      *location.Point `json:"location,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RegisterInput carries the setup form of a new bank.
type RegisterInput struct {
	Name          string
	LicenseNumber string
	LicenseExpiry time.Time
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	City          string
	Latitude      *float64
	Longitude     *float64
}

func FromModel(b *models.BloodBank) *BankDTO {
	if b == nil {
		return nil
	}
	dto := &BankDTO{
		ID:            b.ID,
		Name:          b.Name,
		LicenseNumber: b.LicenseNumber,
		LicenseExpiry: b.LicenseExpiry,
		ContactPerson: b.ContactPerson,
		Email:         b.Email,
		Phone:         b.Phone,
		Address:       b.Address,
		City:          b.City,
		CreatedAt:     b.CreatedAt,
	}
	if b.Latitude != nil && b.Longitude != nil {
		dto.Location = &location.Point{Lat: *b.Latitude, Lng: *b.Longitude}
	}
	return dto
}
