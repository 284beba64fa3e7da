package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/db/models"
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/google/uuid"
)

const defaultAlertCooldown = 12 * time.Hour

type criticalStockSource interface {
	Critical(ctx context.Context) ([]inventory.Level, error)
}

type bankAdminDirectory interface {
	ListAdminsByBank(ctx context.Context, bankID uuid.UUID) ([]models.Account, error)
}

// alertDeduper suppresses repeated alerts for the same stock pair.
type alertDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	LockKey(name string) string
}

// CriticalStockJobParams wires the critical stock alert job. Deduper is
// optional; without it every cycle alerts again.
type CriticalStockJobParams struct {
	Logger    *logger.Logger
	Inventory criticalStockSource
	Admins    bankAdminDirectory
	Notifier  notifications.Notifier
	Deduper   alertDeduper
	Cooldown  time.Duration
}

type criticalStockJob struct {
	logg      *logger.Logger
	inventory criticalStockSource
	admins    bankAdminDirectory
	notifier  notifications.Notifier
	deduper   alertDeduper
	cooldown  time.Duration
}

func NewCriticalStockJob(params CriticalStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	cooldown := params.Cooldown
	if cooldown <= 0 {
		cooldown = defaultAlertCooldown
	}
	return &criticalStockJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		admins:    params.Admins,
		notifier:  params.Notifier,
		deduper:   params.Deduper,
		cooldown:  cooldown,
	}, nil
}

func (j *criticalStockJob) Name() string { return JobCriticalStock }

func (j *criticalStockJob) Run(ctx context.Context) error {
	levels, err := j.inventory.Critical(ctx)
	if err != nil {
		return fmt.Errorf("critical stock: %w", err)
	}

	byBank := map[uuid.UUID][]inventory.Level{}
	var order []uuid.UUID
	for _, level := range levels {
		if _, ok := byBank[level.BankID]; !ok {
			order = append(order, level.BankID)
		}
		byBank[level.BankID] = append(byBank[level.BankID], level)
	}

	var alerts, suppressed int
	for _, bankID := range order {
		admins, err := j.admins.ListAdminsByBank(ctx, bankID)
		if err != nil {
			return fmt.Errorf("list admins for bank %s: %w", bankID, err)
		}
		if len(admins) == 0 {
			continue
		}
		for _, level := range byBank[bankID] {
			fresh, err := j.claim(ctx, level)
			if err != nil {
				return err
			}
			if !fresh {
				suppressed++
				continue
			}
			bank := level.BankID
			event := notifications.Event{
				Kind:     enums.NotificationKindStockAlert,
				EntityID: &bank,
				Title:    fmt.Sprintf("%s stock critical", level.BloodType),
				Message:  fmt.Sprintf("Only %d unit(s) of %s left in inventory.", level.Units, level.BloodType),
			}
			for _, admin := range admins {
				if j.notifier.Notify(ctx, admin.ID, event) {
					alerts++
				}
			}
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"critical_pairs": len(levels),
		"alerts_queued":  alerts,
		"suppressed":     suppressed,
	}), "critical stock scan complete")
	return nil
}

func (j *criticalStockJob) claim(ctx context.Context, level inventory.Level) (bool, error) {
	if j.deduper == nil {
		return true, nil
	}
	key := j.deduper.LockKey(fmt.Sprintf("stock-alert:%s:%s", level.BankID, level.BloodType))
	ok, err := j.deduper.SetNX(ctx, key, level.Units, j.cooldown)
	if err != nil {
		return false, fmt.Errorf("claim stock alert: %w", err)
	}
	return ok, nil
}
