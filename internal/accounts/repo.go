package accounts

import (
	"context"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an accounts repo bound to the provided GORM DB.
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

// Create inserts a new account and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateAccountDTO) (*models.Account, error) {
	account := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// FindByEmail retrieves the account matching the normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID loads an account by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateLastLogin refreshes the account's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored hash. It reports false when the
// account does not exist.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// LinkBank sets the bank of an admin that is not linked yet. It reports
// false when the account was already linked or does not exist.
func (r *Repository) LinkBank(ctx context.Context, id, bankID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND bank_id IS NULL", id).
		UpdateColumn("bank_id", bankID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListAdminsByBank returns the admins linked to bankID.
func (r *Repository) ListAdminsByBank(ctx context.Context, bankID uuid.UUID) ([]models.Account, error) {
	var admins []models.Account
	err := r.db.WithContext(ctx).
		Where("bank_id = ? AND role = ?", bankID, enums.RoleBloodBankAdmin).
		Order("created_at ASC").
		Find(&admins).Error
	return admins, err
}
