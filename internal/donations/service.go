package donations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeferralCode marks validation errors caused by a donation inside the
// deferral period.
const DeferralCode = "DEFERRAL_PERIOD"

// MaxUnitsPerDonation caps one recorded donation (double red cell apheresis).
const MaxUnitsPerDonation = 2

// Service records donations and feeds them into bank inventory.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*DonationDTO, error)
	ListForDonor(ctx context.Context, donorID uuid.UUID, limit int) ([]DonationDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Lock(ctx context.Context, bankID uuid.UUID, bloodType enums.BloodType) (func(), error)
	AdjustTx(ctx context.Context, tx *gorm.DB, input inventory.AdjustInput) (*inventory.AdjustResult, error)
}

// ServiceParams wires the donation service.
type ServiceParams struct {
	Repo      *Repository
	DB        *gorm.DB
	TxRunner  txRunner
	Locker    *keylock.Locker
	Inventory stockLedger
	Notifier  notifications.Notifier
	Deferral  time.Duration
	Logger    *logger.Logger
}

type service struct {
	repo      *Repository
	accounts  *accounts.Repository
	profiles  *profiles.Repository
	tx        txRunner
	locker    *keylock.Locker
	inventory stockLedger
	notifier  notifications.Notifier
	deferral  time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("database handle required")
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
	if params.Deferral <= 0 {
		return nil, fmt.Errorf("deferral period must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      params.Repo,
		accounts:  accounts.NewRepository(params.DB),
		profiles:  profiles.NewRepository(params.DB),
		tx:        params.TxRunner,
		locker:    params.Locker,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		deferral:  params.Deferral,
		logg:      logg,
		now:       db.Now,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*DonationDTO, error) {
	if err := validateRecord(input); err != nil {
		return nil, err
	}
	if !input.Actor.AdminOf(input.BankID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins of this bank may record donations")
	}

	unlockDonor, err := s.locker.Lock(ctx, "donor:"+input.DonorID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "waiting for donor lock")
	}
	defer unlockDonor()

	profile, err := s.donorProfile(ctx, input.DonorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if profile.LastDonationAt != nil {
		next := profile.LastDonationAt.Add(s.deferral)
		if now.Before(next) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor is still within the deferral period").
				WithDetails(map[string]any{
					"code":               DeferralCode,
					"last_donation_at":   profile.LastDonationAt.UTC(),
					"next_eligible_date": next.UTC(),
				})
		}
	}

	unlockStock, err := s.inventory.Lock(ctx, input.BankID, profile.BloodType)
	if err != nil {
		return nil, err
	}
	defer unlockStock()

	donation := &models.Donation{
		ID:         uuid.New(),
		DonorID:    input.DonorID,
		BankID:     input.BankID,
		BloodType:  profile.BloodType,
		Units:      input.Units,
		RecordedBy: input.Actor.AccountID,
		DonatedAt:  now,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, donation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create donation")
		}
		if _, err := s.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
			BankID:    input.BankID,
			BloodType: profile.BloodType,
			Delta:     input.Units,
			Reason:    enums.AdjustmentReasonDonation,
			Actor:     input.Actor,
		}); err != nil {
			return err
		}
		if err := s.profiles.WithTx(tx).RecordDonation(ctx, input.DonorID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donor profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	id := donation.ID
	queued := s.notifier.Notify(ctx, input.DonorID, notifications.Event{
		Kind:     enums.NotificationKindDonation,
		EntityID: &id,
		Title:    "Thank you for donating",
		Message: fmt.Sprintf("Your donation of %d unit(s) of %s was recorded. You can donate again after %s.",
			donation.Units, donation.BloodType, now.Add(s.deferral).Format("2006-01-02")),
	})
	if !queued {
		s.logg.Warn(s.logg.WithField(ctx, "donation_id", id.String()), "donation notification dropped")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"donation_id": donation.ID.String(),
		"donor_id":    donation.DonorID.String(),
		"bank_id":     donation.BankID.String(),
		"blood_type":  donation.BloodType.String(),
		"units":       donation.Units,
	}), "donation recorded")

	dto := FromModel(*donation)
	return &dto, nil
}

func (s *service) donorProfile(ctx context.Context, donorID uuid.UUID) (*models.Profile, error) {
	account, err := s.accounts.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donor account")
	}
	if account.Role != enums.RoleDonor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is not a donor").
			WithDetails(map[string]any{"role": account.Role})
	}
	profile, err := s.profiles.Get(ctx, donorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donor profile")
	}
	if profile == nil || !profile.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor profile must declare a blood type")
	}
	return profile, nil
}

func validateRecord(input RecordInput) error {
	details := map[string]string{}
	if input.DonorID == uuid.Nil {
		details["donor_id"] = "is required"
	}
	if input.BankID == uuid.Nil {
		details["bank_id"] = "is required"
	}
	if input.Units <= 0 || input.Units > MaxUnitsPerDonation {
		details["units"] = fmt.Sprintf("must be between 1 and %d", MaxUnitsPerDonation)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid donation").WithDetails(details)
	}
	return nil
}

func (s *service) ListForDonor(ctx context.Context, donorID uuid.UUID, limit int) ([]DonationDTO, error) {
	if donorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id required")
	}
	rows, err := s.repo.ListByDonor(ctx, donorID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donations")
	}
	out := make([]DonationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}
