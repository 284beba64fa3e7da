package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateNormalizesEmail(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateAccountDTO{Email: "  Ada@Example.COM ", PasswordHash: "h", Role: enums.RoleDonor})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Create(ctx, CreateAccountDTO{Email: "ada@example.com", PasswordHash: "h", Role: enums.RoleRequester})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryLinkBankOnlyOnce(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()

	admin, err := repo.Create(ctx, CreateAccountDTO{Email: "admin@bank.org", PasswordHash: "h", Role: enums.RoleBloodBankAdmin})
	require.NoError(t, err)

	bankID := uuid.New()
	linked, err := repo.LinkBank(ctx, admin.ID, bankID)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repo.LinkBank(ctx, admin.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, linked)

	admins, err := repo.ListAdminsByBank(ctx, bankID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].ID)
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()

	account, err := repo.Create(ctx, CreateAccountDTO{Email: "d@x.io", PasswordHash: "h", Role: enums.RoleDonor})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, at))

	reloaded, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
}

func TestRepositoryUpdatePasswordHash(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	ctx := context.Background()

	donor, err := repo.Create(ctx, CreateAccountDTO{Email: "donor@example.com", PasswordHash: "old", Role: enums.RoleDonor})
	require.NoError(t, err)

	updated, err := repo.UpdatePasswordHash(ctx, donor.ID, "new")
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.FindByID(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", found.PasswordHash)

	updated, err = repo.UpdatePasswordHash(ctx, uuid.New(), "new")
	require.NoError(t, err)
	assert.False(t, updated)
}
