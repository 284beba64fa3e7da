package requests

import (
	"context"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const urgencyRankExpr = "CASE urgency WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"

// Repository persists blood requests.
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

func (r *Repository) Create(ctx context.Context, request *models.BloodRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

// FindByID returns the request or nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	var request models.BloodRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

type statusUpdate struct {
	ID              uuid.UUID
	From            enums.RequestStatus
	Version         int
	To              enums.RequestStatus
	BankID          *uuid.UUID
	RejectionReason *string
	At              time.Time
}

// UpdateStatus moves the request only if it still has the status and version
// the caller read. It reports false when another writer got there first.
func (r *Repository) UpdateStatus(ctx context.Context, update statusUpdate) (bool, error) {
	values := map[string]any{
		"status":     update.To,
		"version":    update.Version + 1,
		"updated_at": update.At,
	}
	if update.BankID != nil {
		values["bank_id"] = *update.BankID
	}
	if update.RejectionReason != nil {
		values["rejection_reason"] = *update.RejectionReason
	}
	res := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Where("id = ? AND status = ? AND version = ?", update.ID, update.From, update.Version).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Query lists requests by needed-by ascending, urgency descending, then age.
func (r *Repository) Query(ctx context.Context, filter QueryFilter) ([]models.BloodRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.BloodRequest{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BloodType != nil {
		query = query.Where("blood_type = ?", *filter.BloodType)
	}
	if filter.NeededFrom != nil {
		query = query.Where("needed_by >= ?", filter.NeededFrom.UTC())
	}
	if filter.NeededTo != nil {
		query = query.Where("needed_by <= ?", filter.NeededTo.UTC())
	}
	if filter.RequesterID != nil {
		query = query.Where("requester_id = ?", *filter.RequesterID)
	}
	if filter.BankID != nil {
		query = query.Where("bank_id = ?", *filter.BankID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var requests []models.BloodRequest
	err := query.
		Order("needed_by ASC").
		Order(urgencyRankExpr + " DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&requests).Error
	return requests, err
}
