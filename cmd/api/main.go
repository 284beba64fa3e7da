package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/bloodlink-backend/api/controllers"
	"github.com/angelmondragon/bloodlink-backend/api/routes"
	"github.com/angelmondragon/bloodlink-backend/internal/accounts"
	"github.com/angelmondragon/bloodlink-backend/internal/auth"
	"github.com/angelmondragon/bloodlink-backend/internal/banks"
	"github.com/angelmondragon/bloodlink-backend/internal/donations"
	"github.com/angelmondragon/bloodlink-backend/internal/inventory"
	"github.com/angelmondragon/bloodlink-backend/internal/notifications"
	"github.com/angelmondragon/bloodlink-backend/internal/profiles"
	"github.com/angelmondragon/bloodlink-backend/internal/reports"
	"github.com/angelmondragon/bloodlink-backend/internal/requests"
	"github.com/angelmondragon/bloodlink-backend/pkg/auth/session"
	"github.com/angelmondragon/bloodlink-backend/pkg/config"
	"github.com/angelmondragon/bloodlink-backend/pkg/db"
	"github.com/angelmondragon/bloodlink-backend/pkg/instance"
	"github.com/angelmondragon/bloodlink-backend/pkg/keylock"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/angelmondragon/bloodlink-backend/pkg/migrate"
	"github.com/angelmondragon/bloodlink-backend/pkg/redis"
	"github.com/angelmondragon/bloodlink-backend/pkg/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gormDB := dbClient.DB()
	bankRepo := banks.NewRepository(gormDB)
	locker := keylock.New()
	hub := ws.NewHub()

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:      notifications.NewRepository(gormDB),
		Pusher:    hub,
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
		Metrics:   metrics.NewDispatcherMetrics(registry),
		Logger:    logg,
	})
	requireResource(ctx, logg, "notification dispatcher", err)
	dispatcher.Start()

	authService, err := auth.NewService(auth.ServiceParams{
		AccountRepo:    accounts.NewRepository(gormDB),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	passwordService, err := auth.NewPasswordService(auth.PasswordServiceParams{
		Accounts:       accounts.NewRepository(gormDB),
		Tokens:         redisClient,
		SessionManager: sessionManager,
		PasswordConfig: cfg.Password,
		ExposeToken:    cfg.App.IsDev(),
		Logger:         logg,
	})
	requireResource(ctx, logg, "password service", err)

	profileService, err := profiles.NewService(profiles.NewRepository(gormDB), cfg.Donations.DeferralPeriod())
	requireResource(ctx, logg, "profiles service", err)

	bankService, err := banks.NewService(dbClient, bankRepo, logg)
	requireResource(ctx, logg, "banks service", err)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:       inventory.NewRepository(gormDB),
		Banks:      bankRepo,
		TxRunner:   dbClient,
		Locker:     locker,
		Thresholds: cfg.Inventory,
		Metrics:    metrics.NewLedgerMetrics(registry),
		Logger:     logg,
	})
	requireResource(ctx, logg, "inventory service", err)

	requestService, err := requests.NewService(requests.ServiceParams{
		Repo:      requests.NewRepository(gormDB),
		TxRunner:  dbClient,
		Locker:    locker,
		Inventory: inventoryService,
		Notifier:  dispatcher,
		Metrics:   metrics.NewLifecycleMetrics(registry),
		Logger:    logg,
	})
	requireResource(ctx, logg, "requests service", err)

	donationService, err := donations.NewService(donations.ServiceParams{
		Repo:      donations.NewRepository(gormDB),
		DB:        gormDB,
		TxRunner:  dbClient,
		Locker:    locker,
		Inventory: inventoryService,
		Notifier:  dispatcher,
		Deferral:  cfg.Donations.DeferralPeriod(),
		Logger:    logg,
	})
	requireResource(ctx, logg, "donations service", err)

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	requireResource(ctx, logg, "notifications service", err)

	reportService, err := reports.NewService(reports.NewRepository(gormDB))
	requireResource(ctx, logg, "reports service", err)

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Pingers:       map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
		Redis:         redisClient,
		Sessions:      sessionManager,
		Gatherer:      registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		Hub:           hub,
		Upgrader:      ws.NewUpgrader(cfg.CORS.AllowedOrigins),
		Auth:          authService,
		Register:      registerService,
		Password:      passwordService,
		Profiles:      profileService,
		Banks:         bankService,
		Requests:      requestService,
		Inventory:     inventoryService,
		Donations:     donationService,
		Notifications: notificationService,
		Reports:       reportService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logg.Error(ctx, "notification dispatcher drain", err)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
