package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
	"github.com/angelmondragon/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxRejectionReason = 500

// Service manages the blood request lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*RequestDTO, error)
	Transition(ctx context.Context, input TransitionInput) (*RequestDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*RequestDTO, error)
	Query(ctx context.Context, filter QueryFilter) ([]RequestDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockLedger is the slice of the inventory service that completion needs.
type stockLedger interface {
	Lock(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (func(), error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*inventory.AdjustResult, error)
}

// ServiceParams wires the lifecycle manager.
type ServiceParams struct {
	Repo      *Repository
	TxRunner  txRunner
	Locker    *keylock.Locker
	Inventory stockLedger
	Notifier  notifications.Notifier
	Metrics   *metrics.LifecycleMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      *Repository
	tx        txRunner
	locker    *keylock.Locker
	inventory stockLedger
	notifier  notifications.Notifier
	metrics   *metrics.LifecycleMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates the params and builds the lifecycle manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("key locker required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		locker:    params.Locker,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      logg,
		now:       db.Now,
	}, nil
}

func lockKey(id uuid.UUID) string {
	return "request:" + id.String()
}

func (s *service) Create(ctx context.Context, input CreateInput) (*RequestDTO, error) {
	if !input.Actor.Role.CanCreateRequests() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only requesters and donors may create blood requests")
	}
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	request := &models.BloodRequest{
		RequesterID:   input.Actor.AccountID,
		PatientName:   strings.TrimSpace(input.PatientName),
		BloodType:     input.BloodType,
		Units:         input.Units,
		Hospital:      strings.TrimSpace(input.Hospital),
		Urgency:       input.Urgency,
		Status:        enums.RequestStatusPending,
		ContactNumber: strings.TrimSpace(input.ContactNumber),
		Notes:         trimmedOrNil(input.Notes),
		Version:       1,
		NeededBy:      input.NeededBy.UTC(),
	}
	if input.ID != nil {
		request.ID = *input.ID
	}

	if request.ID != uuid.Nil {
		existing, err := s.repo.FindByID(ctx, request.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check request id")
		}
		if existing != nil {
			return nil, requestExists(request.ID)
		}
	}
	if err := s.repo.Create(ctx, request); err != nil {
		if db.IsUniqueViolation(err, "blood_requests_pkey") {
			return nil, requestExists(request.ID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create blood request")
	}
	s.metrics.IncCreated()

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"request_id": request.ID.String(),
		"blood_type": request.BloodType.String(),
		"units":      request.Units,
		"urgency":    request.Urgency.String(),
	}), "blood request created")

	dto := FromModel(*request)
	return &dto, nil
}

func requestExists(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "blood request id already exists").
		WithDetails(map[string]any{"id": id})
}

func (s *service) validateCreate(input CreateInput) error {
	details := map[string]string{}
	if input.ID != nil && *input.ID == uuid.Nil {
		details["id"] = "must not be the nil uuid"
	}
	if strings.TrimSpace(input.PatientName) == "" {
		details["patient_name"] = "is required"
	}
	if strings.TrimSpace(input.Hospital) == "" {
		details["hospital"] = "is required"
	}
	if !input.BloodType.IsValid() {
		details["blood_type"] = "must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
	}
	if input.Units <= 0 {
		details["units"] = "must be greater than zero"
	}
	if !input.Urgency.IsValid() {
		details["urgency"] = "must be low, medium or high"
	}
	if input.NeededBy.IsZero() {
		details["needed_by"] = "is required"
	} else if !input.NeededBy.After(s.now()) {
		details["needed_by"] = "must be in the future"
	}
	if strings.TrimSpace(input.ContactNumber) != "" && !types.ValidPhone(input.ContactNumber) {
		details["contact_number"] = fmt.Sprintf("must contain at least %d digits", types.MinPhoneDigits)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid blood request").WithDetails(details)
	}
	return nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (result *RequestDTO, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(pkgerrors.CodeOf(err))
		}
		s.metrics.ObserveTransition(input.Target.String(), outcome)
	}()

	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status").
			WithDetails(map[string]any{"status": input.Target})
	}
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > maxRejectionReason {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason too long").
			WithDetails(map[string]any{"max": maxRejectionReason})
	}

	unlock, err := s.locker.Lock(ctx, lockKey(input.RequestID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "waiting for request lock")
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blood request")
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
	}
	if !input.Actor.IsBankAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only blood bank admins may change request status")
	}
	if !CanTransition(current.Status, input.Target) {
		return nil, invalidTransition(current.Status, input.Target)
	}

	update := statusUpdate{
		ID:      current.ID,
		From:    current.Status,
		Version: current.Version,
		To:      input.Target,
		At:      s.now(),
	}
	switch input.Target {
	case enums.RequestStatusApproved:
		bankID := *input.Actor.BankID
		update.BankID = &bankID
	case enums.RequestStatusRejected:
		if reason != "" {
			update.RejectionReason = &reason
		}
	case enums.RequestStatusCompleted:
		if current.BankID == nil || !input.Actor.AdminOf(*current.BankID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins of the fulfilling bank may complete this request")
		}
		release, err := s.inventory.Lock(ctx, *current.BankID, current.BloodType)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateStatus(ctx, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if !moved {
			return invalidTransition(current.Status, input.Target).
				WithDetails(map[string]any{"from": current.Status, "to": input.Target, "reason": "request changed concurrently"})
		}
		if input.Target != enums.RequestStatusCompleted {
			return nil
		}
		requestID := current.ID
		_, err = s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
			BankID:    *current.BankID,
			BloodType: current.BloodType,
			Delta:     -current.Units,
			Reason:    enums.AdjustmentReasonRequestCompleted,
			Actor:     input.Actor,
			RequestID: &requestID,
		})
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNegativeStock) {
				return insufficientStock(current, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Status = update.To
	updated.Version = update.Version + 1
	updated.UpdatedAt = update.At
	if update.BankID != nil {
		updated.BankID = update.BankID
	}
	if update.RejectionReason != nil {
		updated.RejectionReason = update.RejectionReason
	}

	s.notifyRequester(ctx, updated)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"request_id": updated.ID.String(),
		"from":       current.Status.String(),
		"to":         updated.Status.String(),
		"version":    updated.Version,
	}), "blood request transitioned")

	dto := FromModel(updated)
	return &dto, nil
}

func invalidTransition(from, to enums.RequestStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move request from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to, "allowed": NextStatuses(from)})
}

func insufficientStock(request *models.BloodRequest, cause error) error {
	details := map[string]any{
		"blood_type": request.BloodType,
		"requested":  request.Units,
	}
	if typed := pkgerrors.As(cause); typed != nil {
		if stock, ok := typed.Details().(map[string]any); ok {
			details["available"] = stock["available"]
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, cause, "insufficient stock to complete request").
		WithDetails(details)
}

func (s *service) notifyRequester(ctx context.Context, request models.BloodRequest) {
	id := request.ID
	message := fmt.Sprintf("Your request for %d unit(s) of %s for %s is now %s.",
		request.Units, request.BloodType, request.PatientName, request.Status)
	if request.Status == enums.RequestStatusRejected && request.RejectionReason != nil {
		message += " Reason: " + *request.RejectionReason
	}
	queued := s.notifier.Notify(ctx, request.RequesterID, notifications.Event{
		Kind:     enums.NotificationKindRequestStatus,
		EntityID: &id,
		Title:    "Blood request " + request.Status.String(),
		Message:  message,
	})
	if !queued {
		s.logg.Warn(s.logg.WithField(ctx, "request_id", id.String()), "request status notification dropped")
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RequestDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blood request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
	}
	dto := FromModel(*request)
	return &dto, nil
}

func (s *service) Query(ctx context.Context, filter QueryFilter) ([]RequestDTO, error) {
	details := map[string]string{}
	if filter.Status != nil && !filter.Status.IsValid() {
		details["status"] = "unknown status"
	}
	if filter.BloodType != nil && !filter.BloodType.IsValid() {
		details["blood_type"] = "unknown blood type"
	}
	if filter.NeededFrom != nil && filter.NeededTo != nil && filter.NeededTo.Before(*filter.NeededFrom) {
		details["needed_to"] = "must not be before needed_from"
	}
	if filter.Offset < 0 {
		details["offset"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request filter").WithDetails(details)
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)

	rows, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query blood requests")
	}
	out := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
