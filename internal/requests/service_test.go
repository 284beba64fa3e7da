package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/banks"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bloodlink-backend/pkg/errors"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentEvent struct {
	recipient uuid.UUID
	event     notifications.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID uuid.UUID, event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{recipient: recipientID, event: event})
	return true
}

func (n *recordingNotifier) sent() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

type fixture struct {
	svc       Service
	repo      *Repository
	client    *db.Client
	inventory inventory.Service
	notifier  *recordingNotifier
	registry  *prometheus.Registry
	bankID    uuid.UUID
	admin     auth.Actor
	requester auth.Actor
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

	reg := prometheus.NewRegistry()
	notifier := &recordingNotifier{}
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		TxRunner:  client,
		Locker:    locker,
		Inventory: ledger,
		Notifier:  notifier,
		Metrics:   metrics.NewLifecycleMetrics(reg),
	})
	require.NoError(t, err)

	bankID := uuid.New()
	dbtest.SeedBank(t, client, bankID)
	return fixture{
		svc:       svc,
		repo:      repo,
		client:    client,
		inventory: ledger,
		notifier:  notifier,
		registry:  reg,
		bankID:    bankID,
		admin:     auth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin, BankID: &bankID},
		requester: auth.Actor{AccountID: uuid.New(), Role: enums.RoleRequester},
	}
}

func (f fixture) stock(t *testing.T, bt enums.BloodType, units int) {
	t.Helper()
	ctx := context.Background()
	unlock, err := f.inventory.Lock(ctx, f.bankID, bt)
	require.NoError(t, err)
	defer unlock()
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.inventory.AdjustTx(ctx, tx, inventory.AdjustInput{
			BankID: f.bankID, BloodType: bt, Delta: units,
			Reason: enums.AdjustmentReasonDonation, Actor: f.admin,
		})
		return err
	}))
}

func (f fixture) units(t *testing.T, bt enums.BloodType) int {
	t.Helper()
	level, err := f.inventory.LevelOf(context.Background(), f.bankID, bt)
	require.NoError(t, err)
	return level.Units
}

func (f fixture) create(t *testing.T, bt enums.BloodType, units int) *RequestDTO {
	t.Helper()
	req, err := f.svc.Create(context.Background(), validInput(f.requester, bt, units))
	require.NoError(t, err)
	return req
}

func (f fixture) move(id uuid.UUID, target enums.RequestStatus) (*RequestDTO, error) {
	return f.svc.Transition(context.Background(), TransitionInput{RequestID: id, Target: target, Actor: f.admin})
}

func validInput(actor auth.Actor, bt enums.BloodType, units int) CreateInput {
	return CreateInput{
		PatientName:   "Jane Roe",
		BloodType:     bt,
		Units:         units,
		Hospital:      "City General",
		Urgency:       enums.UrgencyHigh,
		ContactNumber: "+1 555 010 0000",
		NeededBy:      time.Now().Add(48 * time.Hour),
		Actor:         actor,
	}
}

func TestCreateStoresPendingRequest(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, enums.BloodTypeAPos, 3)

	assert.Equal(t, enums.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.Version)
	assert.Equal(t, f.requester.AccountID, req.RequesterID)
	assert.Nil(t, req.BankID)

	stored, err := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)
	assert.Equal(t, "City General", stored.Hospital)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
	}{
		{"zero units", func(in *CreateInput) { in.Units = 0 }, "units"},
		{"negative units", func(in *CreateInput) { in.Units = -2 }, "units"},
		{"bad blood type", func(in *CreateInput) { in.BloodType = "C+" }, "blood_type"},
		{"bad urgency", func(in *CreateInput) { in.Urgency = "urgent" }, "urgency"},
		{"past deadline", func(in *CreateInput) { in.NeededBy = time.Now().Add(-time.Hour) }, "needed_by"},
		{"missing patient", func(in *CreateInput) { in.PatientName = "  " }, "patient_name"},
		{"missing hospital", func(in *CreateInput) { in.Hospital = "" }, "hospital"},
		{"short phone", func(in *CreateInput) { in.ContactNumber = "12345" }, "contact_number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput(f.requester, enums.BloodTypeOPos, 1)
			tc.mutate(&input)
			_, err := f.svc.Create(ctx, input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}
}

func TestCreateRoleAndDuplicateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, validInput(f.admin, enums.BloodTypeOPos, 1))
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	donor := auth.Actor{AccountID: uuid.New(), Role: enums.RoleDonor}
	_, err = f.svc.Create(ctx, validInput(donor, enums.BloodTypeOPos, 1))
	require.NoError(t, err)

	id := uuid.New()
	input := validInput(f.requester, enums.BloodTypeOPos, 1)
	input.ID = &id
	first, err := f.svc.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	_, err = f.svc.Create(ctx, input)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestTransitionHappyPathConsumesStock(t *testing.T) {
	f := newFixture(t)
	f.stock(t, enums.BloodTypeBPos, 5)
	req := f.create(t, enums.BloodTypeBPos, 3)

	approved, err := f.move(req.ID, enums.RequestStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.BankID)
	assert.Equal(t, f.bankID, *approved.BankID)
	assert.Equal(t, 2, approved.Version)
	assert.Equal(t, 5, f.units(t, enums.BloodTypeBPos))

	completed, err := f.move(req.ID, enums.RequestStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCompleted, completed.Status)
	assert.Equal(t, 3, completed.Version)
	assert.Equal(t, 2, f.units(t, enums.BloodTypeBPos))

	history, err := f.inventory.History(context.Background(), f.bankID, enums.BloodTypeBPos, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, enums.AdjustmentReasonRequestCompleted, history[0].Reason)
	assert.Equal(t, -3, history[0].Delta)
	require.NotNil(t, history[0].RequestID)
	assert.Equal(t, req.ID, *history[0].RequestID)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	for _, s := range sent {
		assert.Equal(t, f.requester.AccountID, s.recipient)
		assert.Equal(t, enums.NotificationKindRequestStatus, s.event.Kind)
		require.NotNil(t, s.event.EntityID)
		assert.Equal(t, req.ID, *s.event.EntityID)
	}
}

func TestTransitionRejectsSkippingAndReplays(t *testing.T) {
	f := newFixture(t)
	f.stock(t, enums.BloodTypeAPos, 10)
	req := f.create(t, enums.BloodTypeAPos, 1)

	_, err := f.move(req.ID, enums.RequestStatusCompleted)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
	assert.Equal(t, 10, f.units(t, enums.BloodTypeAPos))

	_, err = f.move(req.ID, enums.RequestStatusPending)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		RequestID: req.ID, Target: enums.RequestStatusRejected, Actor: f.admin, Reason: "no matching donors",
	})
	require.NoError(t, err)

	_, err = f.move(req.ID, enums.RequestStatusRejected)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))
	_, err = f.move(req.ID, enums.RequestStatusApproved)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, pkgerrors.CodeOf(err))

	stored, err := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectionReason)
	assert.Equal(t, "no matching donors", *stored.RejectionReason)
}

func TestTransitionPermissions(t *testing.T) {
	f := newFixture(t)
	f.stock(t, enums.BloodTypeAPos, 10)
	req := f.create(t, enums.BloodTypeAPos, 1)
	ctx := context.Background()

	unlinked := auth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin}
	for _, actor := range []auth.Actor{f.requester, unlinked, {AccountID: uuid.New(), Role: enums.RoleDonor}} {
		_, err := f.svc.Transition(ctx, TransitionInput{RequestID: req.ID, Target: enums.RequestStatusApproved, Actor: actor})
		assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err), actor.Role)
	}

	_, err := f.move(req.ID, enums.RequestStatusApproved)
	require.NoError(t, err)

	otherBank := uuid.New()
	outsider := auth.Actor{AccountID: uuid.New(), Role: enums.RoleBloodBankAdmin, BankID: &otherBank}
	_, err = f.svc.Transition(ctx, TransitionInput{RequestID: req.ID, Target: enums.RequestStatusCompleted, Actor: outsider})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	assert.Equal(t, 10, f.units(t, enums.BloodTypeAPos))

	_, err = f.move(uuid.New(), enums.RequestStatusApproved)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCompleteWithShortStockLeavesEverythingUnchanged(t *testing.T) {
	f := newFixture(t)
	f.stock(t, enums.BloodTypeONeg, 1)
	req := f.create(t, enums.BloodTypeONeg, 2)

	_, err := f.move(req.ID, enums.RequestStatusApproved)
	require.NoError(t, err)

	_, err = f.move(req.ID, enums.RequestStatusCompleted)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, details["requested"])
	assert.Equal(t, 1, details["available"])

	assert.Equal(t, 1, f.units(t, enums.BloodTypeONeg))
	stored, err := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, stored.Status)
	assert.Equal(t, 2, stored.Version)

	history, err := f.inventory.History(context.Background(), f.bankID, enums.BloodTypeONeg, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConcurrentCompletesSucceedOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, enums.BloodTypeABPos, 4)
	req := f.create(t, enums.BloodTypeABPos, 2)
	_, err := f.move(req.ID, enums.RequestStatusApproved)
	require.NoError(t, err)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.move(req.ID, enums.RequestStatusCompleted)
		}(i)
	}
	wg.Wait()

	succeeded, invalid := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.Is(err, pkgerrors.CodeInvalidTransition):
			invalid++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 2, f.units(t, enums.BloodTypeABPos))
}

func TestStaleVersionUpdateIsRefused(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, enums.BloodTypeAPos, 1)
	ctx := context.Background()

	moved, err := f.repo.UpdateStatus(ctx, statusUpdate{
		ID: req.ID, From: enums.RequestStatusPending, Version: req.Version + 1,
		To: enums.RequestStatusApproved, At: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = f.repo.UpdateStatus(ctx, statusUpdate{
		ID: req.ID, From: enums.RequestStatusPending, Version: req.Version,
		To: enums.RequestStatusApproved, At: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestQueryOrdersByDeadlineThenUrgency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	mk := func(neededBy time.Time, urgency enums.Urgency, bt enums.BloodType) uuid.UUID {
		input := validInput(f.requester, bt, 1)
		input.NeededBy = neededBy
		input.Urgency = urgency
		req, err := f.svc.Create(ctx, input)
		require.NoError(t, err)
		return req.ID
	}
	later := mk(base.Add(time.Hour), enums.UrgencyHigh, enums.BloodTypeAPos)
	low := mk(base, enums.UrgencyLow, enums.BloodTypeAPos)
	high := mk(base, enums.UrgencyHigh, enums.BloodTypeONeg)
	medium := mk(base, enums.UrgencyMedium, enums.BloodTypeAPos)

	all, err := f.svc.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uuid.UUID{high, medium, low, later}, ids)

	bt := enums.BloodTypeAPos
	filtered, err := f.svc.Query(ctx, QueryFilter{BloodType: &bt, Limit: 2})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, medium, filtered[0].ID)
	assert.Equal(t, low, filtered[1].ID)

	to := base.Add(30 * time.Minute)
	windowed, err := f.svc.Query(ctx, QueryFilter{NeededTo: &to})
	require.NoError(t, err)
	assert.Len(t, windowed, 3)

	_, err = f.move(high, enums.RequestStatusApproved)
	require.NoError(t, err)
	approved := enums.RequestStatusApproved
	byStatus, err := f.svc.Query(ctx, QueryFilter{Status: &approved, BankID: &f.bankID})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, high, byStatus[0].ID)
}

func TestQueryRejectsBadFilter(t *testing.T) {
	f := newFixture(t)
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := f.svc.Query(context.Background(), QueryFilter{NeededFrom: &from, NeededTo: &to})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	bad := enums.RequestStatus("lost")
	_, err = f.svc.Query(context.Background(), QueryFilter{Status: &bad})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestTransitionMetricsRecordOutcome(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, enums.BloodTypeAPos, 1)
	_, _ = f.move(req.ID, enums.RequestStatusCompleted)
	_, err := f.move(req.ID, enums.RequestStatusApproved)
	require.NoError(t, err)

	families, err := f.registry.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "bloodlink_request_transitions_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			outcomes[labels["target"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), outcomes["completed/INVALID_TRANSITION"])
	assert.Equal(t, float64(1), outcomes["approved/ok"])
}
