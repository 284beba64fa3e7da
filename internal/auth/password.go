package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/security"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const resetTokenBytes = 32

// PasswordService issues and redeems password reset tokens.
type PasswordService interface {
	Forgot(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	Reset(ctx context.Context, req ResetPasswordRequest) error
}

type resetTokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	PasswordResetKey(digest string) string
}

// PasswordServiceParams bundles the dependencies of the reset flow.
type PasswordServiceParams struct {
	Accounts       *accounts.Repository
	Tokens         resetTokenStore
	SessionManager sessionManager
	PasswordConfig config.PasswordConfig

	// ExposeToken returns the raw token in the forgot response. Only for
	// environments without an outbound mailer.
	ExposeToken bool
	Logger      *logger.Logger
}

type passwordService struct {
	accounts    *accounts.Repository
	tokens      resetTokenStore
	session     sessionManager
	passwordCfg config.PasswordConfig
	exposeToken bool
	logg        *logger.Logger
}

// NewPasswordService validates params and builds the reset flow.
func NewPasswordService(params PasswordServiceParams) (PasswordService, error) {
	switch {
	case params.Accounts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account repository required")
	case params.Tokens == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reset token store required")
	case params.SessionManager == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	case params.PasswordConfig.ResetTokenTTL <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reset token ttl must be positive")
	}
	return &passwordService{
		accounts:    params.Accounts,
		tokens:      params.Tokens,
		session:     params.SessionManager,
		passwordCfg: params.PasswordConfig,
		exposeToken: params.ExposeToken,
		logg:        params.Logger,
	}, nil
}

// Forgot stores a single-use token for the account behind the email. The
// response is the same whether or not the email is registered.
func (s *passwordService) Forgot(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	email := accounts.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	resp := &ForgotPasswordResponse{Accepted: true}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	token, err := newResetToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	key := s.tokens.PasswordResetKey(digestToken(token))
	if err := s.tokens.Set(ctx, key, account.ID.String(), s.passwordCfg.ResetTokenTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "account_id", account.ID.String())
		s.logg.Info(logCtx, "password reset token issued")
	}
	if s.exposeToken {
		resp.ResetToken = token
	}
	return resp, nil
}

// Reset redeems the token once, stores the new hash and ends every session
// of the account.
func (s *passwordService) Reset(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if err := security.CheckPolicy(req.NewPassword, s.passwordCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet policy").
			WithDetails(map[string]any{"password": err.Error()})
	}

	raw, err := s.tokens.GetDel(ctx, s.tokens.PasswordResetKey(digestToken(token)))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	updated, err := s.accounts.UpdatePasswordHash(ctx, accountID, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	revoked, err := s.session.RevokeAccount(ctx, accountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"account_id":       accountID.String(),
			"revoked_sessions": revoked,
		})
		s.logg.Info(logCtx, "password reset completed")
	}
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// digestToken keeps raw tokens out of Redis.
func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
