package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	pkgAuth "github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth/session"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "bloodlink",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 600,
}

// fast argon params keep the suite quick
var testPassword = config.PasswordConfig{
	MinLength:        6,
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type memorySessions struct {
	mu       sync.Mutex
	tokens   map[string]string
	accounts map[string]uuid.UUID
}

func newMemorySessions() *memorySessions {
	return &memorySessions{tokens: map[string]string{}, accounts: map[string]uuid.UUID{}}
}

func (m *memorySessions) Generate(_ context.Context, accountID uuid.UUID, accessID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := "rt-" + uuid.NewString()
	m.tokens[accessID] = token
	m.accounts[accessID] = accountID
	return token, nil
}

func (m *memorySessions) Rotate(_ context.Context, oldAccessID, provided string) (session.Rotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.tokens[oldAccessID]; !ok || stored != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	accountID := m.accounts[oldAccessID]
	delete(m.tokens, oldAccessID)
	delete(m.accounts, oldAccessID)
	next := session.Rotation{AccessID: session.NewAccessID(), RefreshToken: "rt-" + uuid.NewString(), AccountID: accountID}
	m.tokens[next.AccessID] = next.RefreshToken
	m.accounts[next.AccessID] = accountID
	return next, nil
}

func (m *memorySessions) Revoke(_ context.Context, accessID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, accessID)
	delete(m.accounts, accessID)
	return nil
}

func (m *memorySessions) RevokeAccount(_ context.Context, accountID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for accessID, owner := range m.accounts {
		if owner == accountID {
			delete(m.tokens, accessID)
			delete(m.accounts, accessID)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) has(accessID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[accessID]
	return ok
}

type authFixture struct {
	client   *db.Client
	sessions *memorySessions
	login    Service
	register RegisterService
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	client := dbtest.New(t)
	sessions := newMemorySessions()
	login, err := NewService(ServiceParams{
		AccountRepo:    accounts.NewRepository(client.DB()),
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)
	register, err := NewRegisterService(RegisterServiceParams{
		DB:             client,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	require.NoError(t, err)
	return authFixture{client: client, sessions: sessions, login: login, register: register}
}

func TestRegisterCreatesAccountProfileAndSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.register.Register(ctx, RegisterRequest{
		Email: "Donor@Example.com", Password: "hunter22", Role: enums.RoleDonor, FullName: "Dee Donor",
	})
	require.NoError(t, err)
	assert.Equal(t, "donor@example.com", resp.Account.Email)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Account.ID, claims.AccountID)
	assert.Equal(t, enums.RoleDonor, claims.Role)
	assert.Nil(t, claims.BankID)
	assert.True(t, f.sessions.has(claims.ID))

	profile, err := profiles.NewRepository(f.client.DB()).Get(ctx, resp.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Dee Donor", profile.FullName)
	assert.True(t, profile.Available)
}

func TestRegisterRejectsDuplicateEmailAndWeakPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.register.Register(ctx, RegisterRequest{Email: "a@b.io", Password: "secret1", Role: enums.RoleRequester, FullName: "A"})
	require.NoError(t, err)

	_, err = f.register.Register(ctx, RegisterRequest{Email: "A@B.io", Password: "secret1", Role: enums.RoleDonor, FullName: "B"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = f.register.Register(ctx, RegisterRequest{Email: "c@b.io", Password: "12345", Role: enums.RoleDonor, FullName: "C"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.register.Register(ctx, RegisterRequest{Email: "d@b.io", Password: "secret1", Role: "nurse", FullName: "D"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestLoginChecksCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.register.Register(ctx, RegisterRequest{Email: "admin@bank.org", Password: "bankpass", Role: enums.RoleBloodBankAdmin, FullName: "Admin"})
	require.NoError(t, err)

	_, err = f.login.Login(ctx, LoginRequest{Email: "admin@bank.org", Password: "wrong-pass"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	_, err = f.login.Login(ctx, LoginRequest{Email: "nobody@bank.org", Password: "bankpass"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	resp, err := f.login.Login(ctx, LoginRequest{Email: " ADMIN@bank.org ", Password: "bankpass"})
	require.NoError(t, err)
	require.NotNil(t, resp.Account.LastLoginAt)
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleBloodBankAdmin, claims.Role)
}

func TestRefreshRotatesAndPicksUpBankLink(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.register.Register(ctx, RegisterRequest{Email: "admin@bank.org", Password: "bankpass", Role: enums.RoleBloodBankAdmin, FullName: "Admin"})
	require.NoError(t, err)

	bankID := uuid.New()
	linked, err := accounts.NewRepository(f.client.DB()).LinkBank(ctx, reg.Account.ID, bankID)
	require.NoError(t, err)
	require.True(t, linked)

	refreshed, err := f.login.Refresh(ctx, RefreshRequest{AccessToken: reg.AccessToken, RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.BankID)
	assert.Equal(t, bankID, *claims.BankID)

	// the old refresh token is single use
	_, err = f.login.Refresh(ctx, RefreshRequest{AccessToken: reg.AccessToken, RefreshToken: reg.RefreshToken})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg, err := f.register.Register(ctx, RegisterRequest{Email: "r@x.io", Password: "secret1", Role: enums.RoleRequester, FullName: "R"})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, reg.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.login.Logout(ctx, claims.ID))
	assert.False(t, f.sessions.has(claims.ID))
	assert.Error(t, f.login.Logout(ctx, ""))
}
