package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/google/uuid"
)

// RequestSummary counts requests per status for a reporting window.
type RequestSummary struct {
	BankID         *uuid.UUID                `json:"bank_id,omitempty"`
	From           *time.Time                `json:"from,omitempty"`
	To             *time.Time                `json:"to,omitempty"`
	Total          int64                     `json:"total"`
	Pending        int64                     `json:"pending"`
	Approved       int64                     `json:"approved"`
	Rejected       int64                     `json:"rejected"`
	Completed      int64                     `json:"completed"`
	UnitsFulfilled int64                     `json:"units_fulfilled"`
	ByBloodType    map[enums.BloodType]int64 `json:"by_blood_type"`
}

type Service interface {
	RequestSummary(ctx context.Context, bankID *uuid.UUID, from, to *time.Time) (*RequestSummary, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RequestSummary(ctx context.Context, bankID *uuid.UUID, from, to *time.Time) (*RequestSummary, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	rows, err := s.repo.CountByStatus(ctx, summaryQuery{BankID: bankID, From: from, To: to})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize requests")
	}

	summary := &RequestSummary{
		BankID:      bankID,
		From:        from,
		To:          to,
		ByBloodType: map[enums.BloodType]int64{},
	}
	for _, row := range rows {
		summary.Total += row.Count
		summary.ByBloodType[row.BloodType] += row.Count
		switch row.Status {
		case enums.RequestStatusPending:
			summary.Pending += row.Count
		case enums.RequestStatusApproved:
			summary.Approved += row.Count
		case enums.RequestStatusRejected:
			summary.Rejected += row.Count
		case enums.RequestStatusCompleted:
			summary.Completed += row.Count
			summary.UnitsFulfilled += row.Units
		}
	}
	return summary, nil
}
