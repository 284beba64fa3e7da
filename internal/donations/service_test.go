package donations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/banks"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deferral = 56 * 24 * time.Hour

type countingNotifier struct {
	mu         sync.Mutex
	recipients []uuid.UUID
	kinds      []enums.NotificationKind
}

func (n *countingNotifier) Notify(_ context.Context, recipientID uuid.UUID, event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, recipientID)
	n.kinds = append(n.kinds, event.Kind)
	return true
}

type fixture struct {
	svc       *service
	client    *db.Client
	inventory inventory.Service
	notifier  *countingNotifier
	bankID    uuid.UUID
	admin     auth.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	locker := keylock.New()
	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:       inventory.NewRepository(client.DB()),
		Banks:      banks.NewRepository(client.DB()),
		TxRunner:   client,
		Locker:     locker,
		Thresholds: config.InventoryConfig{CriticalMax: 2, LowMax: 5},
	})
	require.NoError(t, err)

	notifier := &countingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(client.DB()),
		DB:        client.DB(),
		TxRunner:  client,
		Locker:    locker,
		Inventory: ledger,
		Notifier:  notifier,
		Deferral:  deferral,
	})
	require.NoError(t, err)

	bankID := uuid.New()
	dbtest.SeedBank(t, client, bankID)
	return fixture{
		svc:       svc.(*service),
		client:    client,
		inventory: ledger,
		notifier:  notifier,
		bankID:    bankID,
		admin:     auth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin, BankID: &bankID},
	}
}

func (f fixture) account(t *testing.T, role enums.Role, bt enums.BloodType) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := accounts.NewRepository(f.client.DB()).Create(ctx, accounts.CreateAccountDTO{
		ID: id, Email: id.String() + "@example.com", PasswordHash: "x", Role: role,
	})
	require.NoError(t, err)
	require.NoError(t, profiles.NewRepository(f.client.DB()).Upsert(ctx, &models.Profile{
		AccountID: id, FullName: "Donor " + id.String()[:8], BloodType: bt, Available: true,
	}))
	return id
}

func (f fixture) units(t *testing.T, bt enums.BloodType) int {
	t.Helper()
	level, err := f.inventory.LevelOf(context.Background(), f.bankID, bt)
	require.NoError(t, err)
	return level.Units
}

func TestRecordIncrementsInventoryAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	donor := f.account(t, enums.RoleDonor, enums.BloodTypeONeg)

	donation, err := f.svc.Record(ctx, RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: f.admin})
	require.NoError(t, err)
	assert.Equal(t, enums.BloodTypeONeg, donation.BloodType)
	assert.Equal(t, f.admin.AccountID, donation.RecordedBy)
	assert.Equal(t, 1, f.units(t, enums.BloodTypeONeg))

	history, err := f.inventory.History(ctx, f.bankID, enums.BloodTypeONeg, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.AdjustmentReasonDonation, history[0].Reason)

	profile, err := profiles.NewRepository(f.client.DB()).Get(ctx, donor)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.DonationCount)
	require.NotNil(t, profile.LastDonationAt)

	list, err := f.svc.ListForDonor(ctx, donor, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, donation.ID, list[0].ID)

	assert.Equal(t, []uuid.UUID{donor}, f.notifier.recipients)
	assert.Equal(t, []enums.NotificationKind{enums.NotificationKindDonation}, f.notifier.kinds)
}

func TestSecondDonationWithinDeferralFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	donor := f.account(t, enums.RoleDonor, enums.BloodTypeAPos)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }

	_, err := f.svc.Record(ctx, RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: f.admin})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(deferral - time.Hour) }
	_, err = f.svc.Record(ctx, RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: f.admin})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DeferralCode, details["code"])
	next, ok := details["next_eligible_date"].(time.Time)
	require.True(t, ok)
	assert.True(t, start.Add(deferral).Equal(next))
	assert.Equal(t, 1, f.units(t, enums.BloodTypeAPos))

	f.svc.now = func() time.Time { return start.Add(deferral) }
	_, err = f.svc.Record(ctx, RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: f.admin})
	require.NoError(t, err)
	assert.Equal(t, 2, f.units(t, enums.BloodTypeAPos))
}

func TestRecordRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	donor := f.account(t, enums.RoleDonor, enums.BloodTypeBPos)
	requester := f.account(t, enums.RoleRequester, enums.BloodTypeBPos)
	noType := f.account(t, enums.RoleDonor, "")
	otherBank := uuid.New()
	outsider := auth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin, BankID: &otherBank}

	cases := []struct {
		name  string
		input RecordInput
		code  pkgerrors.Code
	}{
		{"zero units", RecordInput{DonorID: donor, BankID: f.bankID, Units: 0, Actor: f.admin}, pkgerrors.CodeValidation},
		{"too many units", RecordInput{DonorID: donor, BankID: f.bankID, Units: 3, Actor: f.admin}, pkgerrors.CodeValidation},
		{"other bank admin", RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: outsider}, pkgerrors.CodeForbidden},
		{"donor records self", RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: auth.Actor{AccountID: donor, Role: enums.RoleDonor}}, pkgerrors.CodeForbidden},
		{"unknown donor", RecordInput{DonorID: uuid.New(), BankID: f.bankID, Units: 1, Actor: f.admin}, pkgerrors.CodeNotFound},
		{"not a donor", RecordInput{DonorID: requester, BankID: f.bankID, Units: 1, Actor: f.admin}, pkgerrors.CodeValidation},
		{"no blood type", RecordInput{DonorID: noType, BankID: f.bankID, Units: 1, Actor: f.admin}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Record(ctx, tc.input)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
	assert.Equal(t, 0, f.units(t, enums.BloodTypeBPos))
	assert.Empty(t, f.notifier.recipients)
}

func TestConcurrentRecordsForSameDonorOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	donor := f.account(t, enums.RoleDonor, enums.BloodTypeOPos)

	errs := make([]error, 3)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Record(context.Background(), RecordInput{DonorID: donor, BankID: f.bankID, Units: 1, Actor: f.admin})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.units(t, enums.BloodTypeOPos))
}
