package banks

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bankFixture struct {
	svc      Service
	accounts *accounts.Repository
}

func newBankFixture(t *testing.T) bankFixture {
	t.Helper()
	client := dbtest.New(t)
	svc, err := NewService(client, NewRepository(client.DB()), nil)
	require.NoError(t, err)
	return bankFixture{svc: svc, accounts: accounts.NewRepository(client.DB())}
}

func (f bankFixture) admin(t *testing.T) auth.Actor {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), accounts.CreateAccountDTO{
		Email: uuid.NewString() + "@bank.test", PasswordHash: "h", Role: enums.RoleBloodBankAdmin,
	})
	require.NoError(t, err)
	return auth.Actor{AccountID: acct.ID, Role: acct.Role}
}

func validInput(license string) RegisterInput {
	return RegisterInput{
		Name:          "Central Blood Bank",
		LicenseNumber: license,
		LicenseExpiry: time.Now().AddDate(1, 0, 0),
		ContactPerson: "Dr. Okafor",
		Email:         "contact@central.example",
		Phone:         "+234 801 234 5678",
		Address:       "12 Marina Road",
		City:          "Lagos",
	}
}

func TestRegisterBankLinksAdmin(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	bank, err := f.svc.RegisterBank(ctx, admin, validInput("lic-001"))
	require.NoError(t, err)
	assert.Equal(t, "LIC-001", bank.LicenseNumber)

	acct, err := f.accounts.FindByID(ctx, admin.AccountID)
	require.NoError(t, err)
	require.NotNil(t, acct.BankID)
	assert.Equal(t, bank.ID, *acct.BankID)

	got, err := f.svc.GetBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, "Central Blood Bank", got.Name)

	_, err = f.svc.RegisterBank(ctx, admin, validInput("LIC-002"))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRegisterBankRejectsDuplicateLicense(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterBank(ctx, f.admin(t), validInput("LIC-9"))
	require.NoError(t, err)

	second := f.admin(t)
	_, err = f.svc.RegisterBank(ctx, second, validInput("lic-9"))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	acct, err := f.accounts.FindByID(ctx, second.AccountID)
	require.NoError(t, err)
	assert.Nil(t, acct.BankID, "failed registration must not link the admin")
}

func TestRegisterBankValidatesAndAuthorizes(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	donor := auth.Actor{AccountID: uuid.New(), Role: enums.RoleDonor}
	_, err := f.svc.RegisterBank(ctx, donor, validInput("X"))
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	bad := validInput("X")
	bad.Phone = "12345"
	bad.LicenseExpiry = time.Now().AddDate(-1, 0, 0)
	bad.Email = "nope"
	_, err = f.svc.RegisterBank(ctx, f.admin(t), bad)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "phone")
	assert.Contains(t, details, "license_expiry")
	assert.Contains(t, details, "email")
}

func TestGetBankNotFound(t *testing.T) {
	f := newBankFixture(t)
	_, err := f.svc.GetBank(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListBanksByCity(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()
	_, err := f.svc.RegisterBank(ctx, f.admin(t), validInput("A-1"))
	require.NoError(t, err)
	abuja := validInput("A-2")
	abuja.City = "Abuja"
	_, err = f.svc.RegisterBank(ctx, f.admin(t), abuja)
	require.NoError(t, err)

	all, err := f.svc.ListBanks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	lagos, err := f.svc.ListBanks(ctx, "lagos")
	require.NoError(t, err)
	require.Len(t, lagos, 1)
}
