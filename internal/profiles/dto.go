package profiles

import (
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/location"
	"github.com/google/uuid"
)

// ProfileDTO is the directory entry returned to clients.
type ProfileDTO struct {
	AccountID      uuid.UUID       `json:"account_id"`
	FullName       string          `json:"full_name"`
	Phone          string          `json:"phone,omitempty"`
	BloodType      enums.BloodType `json:"blood_type,omitempty"`
	City           string          `json:"city,omitempty"`
	Location       *location.Point `json:"location,omitempty"`
	Available      bool            `json:"available"`
	DonationCount  int             `json:"donation_count"`
	LastDonationAt *time.Time      `json:"last_donation_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UpsertInput carries the editable profile fields. Latitude and Longitude
// must be given together.
type UpsertInput struct {
	FullName  string
	Phone     string
	BloodType enums.BloodType
	City      string
	Latitude  *float64
	Longitude *float64
	Available *bool
}

// SearchFilter narrows the donor directory. With Compatible set the results
// hold every donor type that can give to BloodType; otherwise only exact
// matches. Lat/Lng plus RadiusKm enable the distance filter.
type SearchFilter struct {
	BloodType     enums.BloodType
	Compatible    bool
	AvailableOnly bool
	EligibleOnly  bool
	City          string
	Lat           *float64
	Lng           *float64
	RadiusKm      float64
	Limit         int
}

// DonorMatch is one search hit.
type DonorMatch struct {
	Profile          ProfileDTO `json:"profile"`
	DistanceKm       *float64   `json:"distance_km,omitempty"`
	Eligible         bool       `json:"eligible"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	dto := &ProfileDTO{
		AccountID:      p.AccountID,
		FullName:       p.FullName,
		Phone:          p.Phone,
		BloodType:      p.BloodType,
		City:           p.City,
		Available:      p.Available,
		DonationCount:  p.DonationCount,
		LastDonationAt: p.LastDonationAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if pt, ok := pointOf(p); ok {
		dto.Location = &pt
	}
	return dto
}

func pointOf(p *models.Profile) (location.Point, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return location.Point{}, false
	}
	return location.Point{Lat: *p.Latitude, Lng: *p.Longitude}, true
}
