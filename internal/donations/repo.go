package donations

import (
	"context"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists donations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(donation).Error
}

// ListByDonor returns the donor's donations, newest first.
func (r *Repository) ListByDonor(ctx context.Context, donorID uuid.UUID, limit int) ([]models.Donation, error) {
	var rows []models.Donation
	query := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("donated_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}
