package banks

import (
	"context"
	"errors"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists blood banks.
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

func (r *Repository) Create(ctx context.Context, bank *models.BloodBank) error {
	if bank.ID == uuid.Nil {
		bank.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(bank).Error
}

// FindByID returns the bank or nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BloodBank, error) {
	var bank models.BloodBank
	err := r.db.WithContext(ctx).First(&bank, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// List returns every bank, optionally narrowed to one city.
func (r *Repository) List(ctx context.Context, city string) ([]models.BloodBank, error) {
	query := r.db.WithContext(ctx).Model(&models.BloodBank{})
	if city != "" {
		query = query.Where("LOWER(city) = LOWER(?)", city)
	}
	var banks []models.BloodBank
	err := query.Order("name ASC, id ASC").Find(&banks).Error
	return banks, err
}
