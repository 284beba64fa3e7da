package inventory

import (
	"context"
	"errors"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrShortStock is returned by ApplyDelta when a decrement would go below zero.
var ErrShortStock = errors.New("stock below requested decrement")

// Repository manages inventory records and their adjustment history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (*models.InventoryRecord, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]models.InventoryRecord, error)
	ListAtOrBelow(ctx context.Context, maxUnits int) ([]models.InventoryRecord, error)
	ApplyDelta(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, delta int) (int, error)
	CreateAdjustment(ctx context.Context, adj *models.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, limit int) ([]models.InventoryAdjustment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("bank_id = ? AND blood_type = ?", bankID, bloodType).
		First(&record).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("bank_id = ?", bankID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListAtOrBelow(ctx context.Context, maxUnits int) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("units <= ?", maxUnits).
		Order("bank_id ASC, blood_type ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ApplyDelta changes the unit count and returns the resulting value.
// Increments upsert the record; decrements are conditional on units >= -delta
// and fail with ErrShortStock otherwise, leaving the row untouched.
func (r *repository) ApplyDelta(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, delta int) (int, error) {
	conn := r.db.WithContext(ctx)
	now := db.Now()

	if delta > 0 {
		record := models.InventoryRecord{BankID: bankID, BloodType: bloodType, Units: delta, UpdatedAt: now}
		err := conn.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "bank_id"}, {Name: "blood_type"}},
			DoUpdates: clause.Assignments(map[string]any{
				"units":      gorm.Expr("inventory_records.units + ?", delta),
				"updated_at": now,
			}),
		}).Create(&record).Error
		if err != nil {
			return 0, err
		}
	} else {
		result := conn.Model(&models.InventoryRecord{}).
			Where("bank_id = ? AND blood_type = ? AND units >= ?", bankID, bloodType, -delta).
			Updates(map[string]any{
				"units":      gorm.Expr("units + ?", delta),
				"updated_at": now,
			})
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 0 {
			return 0, ErrShortStock
		}
	}

	current, err := r.Get(ctx, bankID, bloodType)
	if err != nil {
		return 0, err
	}
	if current == nil {
		return 0, gorm.ErrRecordNotFound
	}
	return current.Units, nil
}

func (r *repository) CreateAdjustment(ctx context.Context, adj *models.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

func (r *repository) ListAdjustments(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, limit int) ([]models.InventoryAdjustment, error) {
	var adjustments []models.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Where("bank_id = ? AND blood_type = ?", bankID, bloodType).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}
