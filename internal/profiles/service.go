package profiles

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/location"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
	"github.com/angelmondragon/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
)

// Service exposes the donor/requester directory.
type Service interface {
	UpsertProfile(ctx context.Context, accountID uuid.UUID, input UpsertInput) (*ProfileDTO, error)
	GetProfile(ctx context.Context, accountID uuid.UUID) (*ProfileDTO, error)
	SearchDonors(ctx context.Context, filter SearchFilter) ([]DonorMatch, error)
	GetDonor(ctx context.Context, donorID uuid.UUID) (*DonorMatch, error)
}

type profileRepository interface {
	Get(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	GetDonor(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	ListDonors(ctx context.Context, q donorQuery) ([]models.Profile, error)
}

type service struct {
	repo     profileRepository
	deferral time.Duration
	now      func() time.Time
}

// NewService builds the directory service. deferral is the minimum gap
// between donations used to compute eligibility.
func NewService(repo profileRepository, deferral time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if deferral <= 0 {
		return nil, fmt.Errorf("deferral period must be positive")
	}
	return &service{repo: repo, deferral: deferral, now: db.Now}, nil
}

func (s *service) UpsertProfile(ctx context.Context, accountID uuid.UUID, input UpsertInput) (*ProfileDTO, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	profile := &models.Profile{AccountID: accountID, Available: true}
	if existing != nil {
		profile = existing
	}
	profile.FullName = strings.TrimSpace(input.FullName)
	profile.Phone = strings.TrimSpace(input.Phone)
	profile.BloodType = input.BloodType
	profile.City = strings.TrimSpace(input.City)
	profile.Latitude = input.Latitude
	profile.Longitude = input.Longitude
	if input.Available != nil {
		profile.Available = *input.Available
	}
	profile.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
	}
	return FromModel(profile), nil
}

func (s *service) GetProfile(ctx context.Context, accountID uuid.UUID) (*ProfileDTO, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	profile, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return FromModel(profile), nil
}

func (s *service) SearchDonors(ctx context.Context, filter SearchFilter) ([]DonorMatch, error) {
	query := donorQuery{
		AvailableOnly: filter.AvailableOnly,
		City:          strings.TrimSpace(filter.City),
	}
	if filter.BloodType != "" {
		if !filter.BloodType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
		}
		query.BloodTypes = []enums.BloodType{filter.BloodType}
		if filter.Compatible {
			query.BloodTypes = filter.BloodType.CompatibleDonors()
		}
	} else if filter.Compatible {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blood type required for compatibility search")
	}

	var origin *location.Point
	if filter.Lat != nil || filter.Lng != nil {
		if filter.Lat == nil || filter.Lng == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together")
		}
		pt := location.Point{Lat: *filter.Lat, Lng: *filter.Lng}
		if !pt.Valid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
		}
		origin = &pt
	}
	if filter.RadiusKm < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius must not be negative")
	}
	if filter.RadiusKm > 0 && origin == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius requires lat and lng")
	}
	query.RequireCoords = filter.RadiusKm > 0

	rows, err := s.repo.ListDonors(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search donors")
	}

	now := s.now()
	matches := make([]DonorMatch, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		match := s.matchOf(row, now)
		if filter.EligibleOnly && !match.Eligible {
			continue
		}
		if origin != nil {
			if pt, ok := pointOf(row); ok {
				d := location.DistanceKm(*origin, pt)
				if filter.RadiusKm > 0 && d > filter.RadiusKm {
					continue
				}
				match.DistanceKm = &d
			}
		}
		matches = append(matches, match)
	}

	if origin != nil {
		sort.SliceStable(matches, func(i, j int) bool {
			a, b := matches[i].DistanceKm, matches[j].DistanceKm
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return *a < *b
			}
		})
	}

	if limit := pagination.NormalizeLimit(filter.Limit); len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetDonor returns one donor's public profile with their eligibility.
func (s *service) GetDonor(ctx context.Context, donorID uuid.UUID) (*DonorMatch, error) {
	if donorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	row, err := s.repo.GetDonor(ctx, donorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donor")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donor not found")
	}
	match := s.matchOf(row, s.now())
	return &match, nil
}

func (s *service) matchOf(row *models.Profile, now time.Time) DonorMatch {
	match := DonorMatch{Profile: *FromModel(row), Eligible: true}
	if row.LastDonationAt != nil {
		next := row.LastDonationAt.Add(s.deferral)
		if now.Before(next) {
			match.Eligible = false
			match.NextEligibleDate = &next
		}
	}
	return match
}

func validateUpsert(input UpsertInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.FullName) == "" {
		details["full_name"] = "is required"
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" && !types.ValidPhone(phone) {
		details["phone"] = fmt.Sprintf("must contain at least %d digits", types.MinPhoneDigits)
	}
	if input.BloodType != "" && !input.BloodType.IsValid() {
		details["blood_type"] = "is invalid"
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		details["location"] = "latitude and longitude must be provided together"
	} else if input.Latitude != nil {
		if !(location.Point{Lat: *input.Latitude, Lng: *input.Longitude}).Valid() {
			details["location"] = "coordinates out of range"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid profile").WithDetails(details)
	}
	return nil
}
