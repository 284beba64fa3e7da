package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the inventory ledger.
type Service interface {
	// Adjust applies a manual adjustment in its own transaction.
	Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	// AdjustTx applies an adjustment inside the caller's transaction. The
	// caller must hold Lock for the same bank and blood type.
	AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error)
	Lock(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (func(), error)
	LevelOf(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (*Level, error)
	Levels(ctx context.Context, bankID uuid.UUID) (*BankLevels, error)
	History(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, limit int) ([]models.InventoryAdjustment, error)
	Critical(ctx context.Context) ([]Level, error)
}

// bankDirectory resolves bank ids; FindByID returns nil for unknown banks.
type bankDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.BloodBank, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ledger dependencies.
type ServiceParams struct {
	Repo       Repository
	Banks      bankDirectory
	TxRunner   txRunner
	Locker     *keylock.Locker
	Thresholds config.InventoryConfig
	Metrics    *metrics.LedgerMetrics
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	banks      bankDirectory
	tx         txRunner
	locker     *keylock.Locker
	thresholds config.InventoryConfig
	metrics    *metrics.LedgerMetrics
	logg       *logger.Logger
}

// NewService validates the params and builds the ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Banks == nil {
		return nil, fmt.Errorf("bank directory required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("key locker required")
	}
	if params.Thresholds.CriticalMax < 0 || params.Thresholds.LowMax < params.Thresholds.CriticalMax {
		return nil, fmt.Errorf("invalid stock thresholds critical=%d low=%d", params.Thresholds.CriticalMax, params.Thresholds.LowMax)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       params.Repo,
		banks:      params.Banks,
		tx:         params.TxRunner,
		locker:     params.Locker,
		thresholds: params.Thresholds,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

// LockKey names the serialization key for one stock pair.
func LockKey(bankID uuid.UUID, bloodType enums.BloodType) string {
	return fmt.Sprintf("inventory:%s:%s", bankID, bloodType)
}

func (s *service) Lock(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (func(), error) {
	unlock, err := s.locker.Lock(ctx, LockKey(bankID, bloodType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "waiting for inventory lock")
	}
	return unlock, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}
	if !input.Reason.IsManual() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason must be manual_correction or expired").
			WithDetails(map[string]any{"reason": input.Reason})
	}
	if !input.Actor.AdminOf(input.BankID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins of this bank may adjust its inventory")
	}

	unlock, err := s.Lock(ctx, input.BankID, input.BloodType)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *AdjustResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.AdjustTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"bank_id":    input.BankID.String(),
		"blood_type": input.BloodType.String(),
		"delta":      input.Delta,
		"reason":     input.Reason.String(),
	}), "inventory adjusted")
	return result, nil
}

func (s *service) AdjustTx(ctx context.Context, tx *gorm.DB, input AdjustInput) (*AdjustResult, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	resulting, err := repo.ApplyDelta(ctx, input.BankID, input.BloodType, input.Delta)
	if err != nil {
		if errors.Is(err, ErrShortStock) {
			s.metrics.IncRejected(string(pkgerrors.CodeNegativeStock))
			return nil, s.negativeStock(ctx, repo, input)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply inventory delta")
	}

	adj := models.InventoryAdjustment{
		ID:             uuid.New(),
		BankID:         input.BankID,
		BloodType:      input.BloodType,
		Delta:          input.Delta,
		ResultingUnits: resulting,
		Reason:         input.Reason,
		ActorID:        input.Actor.AccountID,
		RequestID:      input.RequestID,
	}
	if err := repo.CreateAdjustment(ctx, &adj); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory history")
	}

	s.metrics.ObserveAdjustment(input.BankID.String(), input.BloodType.String(), input.Reason.String(), resulting)

	return &AdjustResult{
		Adjustment: adj,
		Level:      s.classify(input.BankID, input.BloodType, resulting, &adj.CreatedAt),
	}, nil
}

func (s *service) negativeStock(ctx context.Context, repo Repository, input AdjustInput) error {
	available := 0
	if record, err := repo.Get(ctx, input.BankID, input.BloodType); err == nil && record != nil {
		available = record.Units
	}
	return pkgerrors.New(pkgerrors.CodeNegativeStock, "adjustment would make stock negative").
		WithDetails(map[string]any{
			"blood_type": input.BloodType,
			"available":  available,
			"delta":      input.Delta,
		})
}

func (s *service) LevelOf(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (*Level, error) {
	if bankID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank id required")
	}
	if !bloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	if err := s.requireBank(ctx, bankID); err != nil {
		return nil, err
	}
	record, err := s.repo.Get(ctx, bankID, bloodType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	if record == nil {
		level := s.classify(bankID, bloodType, 0, nil)
		return &level, nil
	}
	level := s.classify(bankID, bloodType, record.Units, &record.UpdatedAt)
	return &level, nil
}

func (s *service) Levels(ctx context.Context, bankID uuid.UUID) (*BankLevels, error) {
	if bankID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank id required")
	}
	if err := s.requireBank(ctx, bankID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	byType := make(map[enums.BloodType]models.InventoryRecord, len(records))
	for _, record := range records {
		byType[record.BloodType] = record
	}

	out := &BankLevels{BankID: bankID}
	for _, bt := range enums.AllBloodTypes() {
		var level Level
		if record, ok := byType[bt]; ok {
			updated := record.UpdatedAt
			level = s.classify(bankID, bt, record.Units, &updated)
		} else {
			level = s.classify(bankID, bt, 0, nil)
		}
		out.Levels = append(out.Levels, level)
		out.Summary.TotalUnits += level.Units
		switch level.Level {
		case enums.StockLevelCritical:
			out.Summary.Critical++
		case enums.StockLevelLow:
			out.Summary.Low++
		default:
			out.Summary.Safe++
		}
	}
	return out, nil
}

func (s *service) History(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType, limit int) ([]models.InventoryAdjustment, error) {
	if bankID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank id required")
	}
	if !bloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	if err := s.requireBank(ctx, bankID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAdjustments(ctx, bankID, bloodType, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory history")
	}
	return rows, nil
}

// Critical lists stocked pairs at or below the critical threshold. Pairs
// that never had stock have no record and are not reported.
func (s *service) Critical(ctx context.Context) ([]Level, error) {
	records, err := s.repo.ListAtOrBelow(ctx, s.thresholds.CriticalMax)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list critical inventory")
	}
	out := make([]Level, 0, len(records))
	for _, record := range records {
		updated := record.UpdatedAt
		out = append(out, s.classify(record.BankID, record.BloodType, record.Units, &updated))
	}
	return out, nil
}

func (s *service) requireBank(ctx context.Context, bankID uuid.UUID) error {
	bank, err := s.banks.FindByID(ctx, bankID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank")
	}
	if bank == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bank not found")
	}
	return nil
}

func (s *service) classify(bankID uuid.UUID, bloodType enums.BloodType, units int, updated *time.Time) Level {
	return Level{
		BankID:    bankID,
		BloodType: bloodType,
		Units:     units,
		Level:     enums.ClassifyStock(units, s.thresholds.CriticalMax, s.thresholds.LowMax),
		UpdatedAt: updated,
	}
}

func validateAdjust(input AdjustInput) error {
	switch {
	case input.BankID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "bank id required")
	case !input.BloodType.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	case input.Delta == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	case !input.Reason.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid adjustment reason")
	case !input.Reason.AllowsDelta(input.Delta):
		return pkgerrors.New(pkgerrors.CodeValidation, "delta sign does not match the adjustment reason").
			WithDetails(map[string]any{"delta": input.Delta, "reason": input.Reason})
	case input.Actor.AccountID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	return nil
}
