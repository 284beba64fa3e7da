package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository aggregates request rows for reporting.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type statusBucket struct {
	Status    enums.RequestStatus
	BloodType enums.BloodType
	Count     int64
	Units     int64
}

type summaryQuery struct {
	BankID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// CountByStatus groups requests created inside the window by status and
// blood type. A bank scope keeps the open queue (pending) plus everything the
// bank picked up.
func (r *Repository) CountByStatus(ctx context.Context, q summaryQuery) ([]statusBucket, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BloodRequest{}).
		Select("status, blood_type, COUNT(*) AS count, COALESCE(SUM(units), 0) AS units")
	if q.BankID != nil {
		query = query.Where("(bank_id = ? OR status = ?)", *q.BankID, enums.RequestStatusPending)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("created_at < ?", q.To.UTC())
	}
	var rows []statusBucket
	err := query.Group("status, blood_type").Scan(&rows).Error
	return rows, err
}
