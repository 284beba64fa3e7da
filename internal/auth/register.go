package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth/session"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService handles the sign-up transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	return &registerService{
		db:          params.DB,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the account and its directory profile in one transaction,
// then signs the caller in.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := accounts.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": req.Role})
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if err := security.CheckPolicy(req.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet policy").
			WithDetails(map[string]any{"password": err.Error()})
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var account *models.Account
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		accountRepo := accounts.NewRepository(tx)
		profileRepo := profiles.NewRepository(tx)

		if _, err := accountRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check account email")
		}

		created, err := accountRepo.Create(ctx, accounts.CreateAccountDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Role:         req.Role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "accounts_email_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
		}

		if err := profileRepo.Upsert(ctx, &models.Profile{
			AccountID: created.ID,
			FullName:  fullName,
			Available: true,
			UpdatedAt: db.Now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
		account = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := db.Now()
	accessID := session.NewAccessID()
	accessToken, err := mintFor(s.jwtCfg, now, account, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.session.Generate(ctx, account.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      accounts.FromModel(account),
	}, nil
}
