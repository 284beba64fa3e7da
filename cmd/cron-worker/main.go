package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/banks"
	"github.com/angelmondragon/bloodlink-backend/internal/cron"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/instance"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/angelmondragon/bloodlink-backend/pkg/migrate"
	"github.com/angelmondragon/bloodlink-backend/pkg/redis"
)

const drainTimeout = 10 * time.Second

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("job", "", "comma separated job names to run (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	gormDB := dbClient.DB()
	notificationRepo := notifications.NewRepository(gormDB)

	// No socket hub in this process; alerts are persisted and read from the inbox.
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:      notificationRepo,
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
		Metrics:   metrics.NewDispatcherMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	dispatcher.Start()

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:       inventory.NewRepository(gormDB),
		Banks:      banks.NewRepository(gormDB),
		TxRunner:   dbClient,
		Locker:     keylock.New(),
		Thresholds: cfg.Inventory,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	criticalStock, err := cron.NewCriticalStockJob(cron.CriticalStockJobParams{
		Logger:    logg,
		Inventory: inventoryService,
		Admins:    accounts.NewRepository(gormDB),
		Notifier:  dispatcher,
		Deduper:   redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create critical stock job", err)
		os.Exit(1)
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationRepo,
		Retention:  cfg.Notifications.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(criticalStock, cleanup)
	if err == nil {
		registry, err = registry.Select(strings.Split(*only, ",")...)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to build cron job registry", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockName, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"once":     *once,
		"jobs":     registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		var report cron.CycleReport
		report, err = service.RunOnce(ctx)
		if report.Skipped {
			logg.Warn(ctx, "cron lock held elsewhere; one-shot run did nothing")
		}
	} else {
		err = service.Run(ctx)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if drainErr := dispatcher.Close(drainCtx); drainErr != nil {
		logg.Error(ctx, "notification dispatcher drain", drainErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
