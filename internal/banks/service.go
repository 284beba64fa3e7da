package banks

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/location"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages blood bank registration.
type Service interface {
	RegisterBank(ctx context.Context, actor auth.Actor, input RegisterInput) (*BankDTO, error)
	GetBank(ctx context.Context, id uuid.UUID) (*BankDTO, error)
	ListBanks(ctx context.Context, city string) ([]BankDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db   txRunner
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the bank service. repo serves reads; writes bind fresh
// repositories to the transaction.
func NewService(dbRunner txRunner, repo *Repository, logg *logger.Logger) (Service, error) {
	if dbRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("banks repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{db: dbRunner, repo: repo, logg: logg, now: db.Now}, nil
}

func (s *service) RegisterBank(ctx context.Context, actor auth.Actor, input RegisterInput) (*BankDTO, error) {
	if actor.Role != enums.RoleBloodBankAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only blood bank admins may register a bank")
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	bank := &models.BloodBank{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(input.Name),
		LicenseNumber: strings.ToUpper(strings.TrimSpace(input.LicenseNumber)),
		LicenseExpiry: input.LicenseExpiry.UTC(),
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Email:         accounts.NormalizeEmail(input.Email),
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		City:          strings.TrimSpace(input.City),
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		accountRepo := accounts.NewRepository(tx)
		account, err := accountRepo.FindByID(ctx, actor.AccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load admin account")
		}
		if account.BankID != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "admin is already linked to a bank").
				WithDetails(map[string]any{"bank_id": account.BankID})
		}

		if err := s.repo.WithTx(tx).Create(ctx, bank); err != nil {
			if db.IsUniqueViolation(err, "blood_banks_license_number_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "license number already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bank")
		}

		linked, err := accountRepo.LinkBank(ctx, actor.AccountID, bank.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link admin to bank")
		}
		if !linked {
			return pkgerrors.New(pkgerrors.CodeConflict, "admin is already linked to a bank")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"bank_id":  bank.ID.String(),
		"admin_id": actor.AccountID.String(),
	}), "blood bank registered")
	return FromModel(bank), nil
}

func (s *service) GetBank(ctx context.Context, id uuid.UUID) (*BankDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank id required")
	}
	bank, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bank")
	}
	if bank == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bank not found")
	}
	return FromModel(bank), nil
}

func (s *service) ListBanks(ctx context.Context, city string) ([]BankDTO, error) {
	rows, err := s.repo.List(ctx, strings.TrimSpace(city))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list banks")
	}
	out := make([]BankDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) validate(input RegisterInput) error {
	details := map[string]string{}
	required := map[string]string{
		"name":           input.Name,
		"license_number": input.LicenseNumber,
		"contact_person": input.ContactPerson,
		"address":        input.Address,
		"city":           input.City,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "is required"
		}
	}
	if input.LicenseExpiry.IsZero() {
		details["license_expiry"] = "is required"
	} else if !input.LicenseExpiry.After(s.now()) {
		details["license_expiry"] = "must be in the future"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		details["email"] = "must be a valid email"
	}
	if !types.ValidPhone(input.Phone) {
		details["phone"] = fmt.Sprintf("must contain at least %d digits", types.MinPhoneDigits)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		details["location"] = "latitude and longitude must be provided together"
	} else if input.Latitude != nil && !(location.Point{Lat: *input.Latitude, Lng: *input.Longitude}).Valid() {
		details["location"] = "coordinates out of range"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid bank registration").WithDetails(details)
	}
	return nil
}
