package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCriticalSource struct {
	levels []inventory.Level
	err    error
}

func (f fakeCriticalSource) Critical(context.Context) ([]inventory.Level, error) {
	return f.levels, f.err
}

type fakeAdminDirectory map[uuid.UUID][]models.Account

func (f fakeAdminDirectory) ListAdminsByBank(_ context.Context, bankID uuid.UUID) ([]models.Account, error) {
	return f[bankID], nil
}

type capturedNotification struct {
	recipient uuid.UUID
	event     notifications.Event
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []capturedNotification
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID uuid.UUID, event notifications.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, capturedNotification{recipient: recipientID, event: event})
	return true
}

type memoryDeduper struct {
	keys map[string]bool
}

func (m *memoryDeduper) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryDeduper) LockKey(name string) string { return "bl:lock:" + name }

func TestCriticalStockJobNotifiesBankAdmins(t *testing.T) {
	bankA, bankB := uuid.New(), uuid.New()
	adminA1, adminA2 := uuid.New(), uuid.New()
	source := fakeCriticalSource{levels: []inventory.Level{
		{BankID: bankA, BloodType: enums.BloodTypeONeg, Units: 1, Level: enums.StockLevelCritical},
		{BankID: bankB, BloodType: enums.BloodTypeABPos, Units: 0, Level: enums.StockLevelCritical},
	}}
	admins := fakeAdminDirectory{bankA: {{ID: adminA1}, {ID: adminA2}}}
	notifier := &fakeNotifier{}

	job, err := NewCriticalStockJob(CriticalStockJobParams{
		Logger: logger.Nop(), Inventory: source, Admins: admins, Notifier: notifier,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, notifier.sent, 2)
	recipients := []uuid.UUID{notifier.sent[0].recipient, notifier.sent[1].recipient}
	assert.ElementsMatch(t, []uuid.UUID{adminA1, adminA2}, recipients)
	ev := notifier.sent[0].event
	assert.Equal(t, enums.NotificationKindStockAlert, ev.Kind)
	require.NotNil(t, ev.EntityID)
	assert.Equal(t, bankA, *ev.EntityID)
	assert.Contains(t, ev.Message, "O-")
}

func TestCriticalStockJobSuppressesRepeatAlerts(t *testing.T) {
	bank := uuid.New()
	source := fakeCriticalSource{levels: []inventory.Level{{BankID: bank, BloodType: enums.BloodTypeBNeg, Units: 2}}}
	admins := fakeAdminDirectory{bank: {{ID: uuid.New()}}}
	notifier := &fakeNotifier{}

	job, err := NewCriticalStockJob(CriticalStockJobParams{
		Logger: logger.Nop(), Inventory: source, Admins: admins, Notifier: notifier, Deduper: &memoryDeduper{},
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, notifier.sent, 1)
}

func TestCriticalStockJobPropagatesErrors(t *testing.T) {
	job, err := NewCriticalStockJob(CriticalStockJobParams{
		Logger:    logger.Nop(),
		Inventory: fakeCriticalSource{err: errors.New("db down")},
		Admins:    fakeAdminDirectory{},
		Notifier:  &fakeNotifier{},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func TestNewCriticalStockJobRequiresDeps(t *testing.T) {
	_, err := NewCriticalStockJob(CriticalStockJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
