package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists directory profiles.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Get returns the profile or nil when the account has none.
func (r *Repository) Get(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert writes the editable columns. Donation bookkeeping is left alone.
func (r *Repository) Upsert(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "phone", "blood_type", "city", "latitude", "longitude", "available", "updated_at",
		}),
	}).Create(profile).Error
}

// RecordDonation bumps the donation counter and last donation date.
func (r *Repository) RecordDonation(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"donation_count":   gorm.Expr("donation_count + 1"),
			"last_donation_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetDonor returns the profile of a donor-role account or nil when there is none.
func (r *Repository) GetDonor(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = profiles.account_id").
		Where("profiles.account_id = ? AND accounts.role = ?", accountID, enums.RoleDonor).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type donorQuery struct {
	BloodTypes    []enums.BloodType
	AvailableOnly bool
	City          string
	RequireCoords bool
}

// ListDonors returns donor-role profiles matching the query, ordered by name.
func (r *Repository) ListDonors(ctx context.Context, q donorQuery) ([]models.Profile, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Joins("JOIN accounts ON accounts.id = profiles.account_id").
		Where("accounts.role = ?", enums.RoleDonor)
	if len(q.BloodTypes) > 0 {
		query = query.Where("profiles.blood_type IN ?", q.BloodTypes)
	}
	if q.AvailableOnly {
		query = query.Where("profiles.available = ?", true)
	}
	if q.City != "" {
		query = query.Where("LOWER(profiles.city) = LOWER(?)", q.City)
	}
	if q.RequireCoords {
		query = query.Where("profiles.latitude IS NOT NULL AND profiles.longitude IS NOT NULL")
	}

	var rows []models.Profile
	if err := query.Order("profiles.full_name ASC, profiles.account_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
