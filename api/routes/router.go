package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bloodlink-backend/api/controllers"
	"github.com/angelmondragon/bloodlink-backend/api/middleware"
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
	"github.com/angelmondragon/bloodlink-backend/pkg/enums"
	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"github.com/angelmondragon/bloodlink-backend/pkg/redis"
	"github.com/angelmondragon/bloodlink-backend/pkg/ws"
)

// Deps carries everything the HTTP surface needs. Nil services answer with
// INTERNAL_ERROR; a nil Redis disables rate limits and idempotency.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Pingers     map[string]controllers.Pinger
	Redis       *redis.Client
	Sessions    session.AccessSessionChecker
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Hub         *ws.Hub
	Upgrader    *websocket.Upgrader

	Auth          auth.Service
	Register      auth.RegisterService
	Password      auth.PasswordService
	Profiles      profiles.Service
	Banks         banks.Service
	Requests      requests.Service
	Inventory     inventory.Service
	Donations     donations.Service
	Notifications notifications.Service
	Reports       reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Pingers))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if d.Redis != nil {
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), d.Redis, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), d.Redis, logg)).
				Post("/register", controllers.AuthRegister(d.Register, logg))
			r.With(middleware.AuthRateLimit(middleware.ForgotPasswordRateLimitPolicy(cfg.AuthRateLimit), d.Redis, logg)).
				Post("/password/forgot", controllers.AuthForgotPassword(d.Password, logg))
		} else {
			r.Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/register", controllers.AuthRegister(d.Register, logg))
			r.Post("/password/forgot", controllers.AuthForgotPassword(d.Password, logg))
		}
		r.Post("/password/reset", controllers.AuthResetPassword(d.Password, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		if d.Redis != nil {
			r.Use(middleware.Idempotency(d.Redis, logg))
		}

		adminOnly := middleware.RequireRole(logg, enums.RoleBloodBankAdmin)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/me", controllers.GetMyProfile(d.Profiles, logg))
			r.Put("/me", controllers.UpdateMyProfile(d.Profiles, logg))
		})
		r.Get("/donors", controllers.SearchDonors(d.Profiles, logg))
		r.Get("/donors/{donorId}", controllers.GetDonor(d.Profiles, logg))

		r.Route("/banks", func(r chi.Router) {
			r.Get("/", controllers.ListBanks(d.Banks, logg))
			r.With(adminOnly).Post("/", controllers.RegisterBank(d.Banks, logg))
			r.Get("/{bankId}", controllers.GetBank(d.Banks, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleRequester, enums.RoleDonor)).
				Post("/", controllers.CreateRequest(d.Requests, logg))
			r.Get("/", controllers.ListRequests(d.Requests, logg))
			r.Get("/{requestId}", controllers.GetRequest(d.Requests, logg))
			r.With(adminOnly).Patch("/{requestId}", controllers.TransitionRequest(d.Requests, logg))
		})

		r.Route("/inventory/{bankId}", func(r chi.Router) {
			r.Get("/", controllers.InventoryLevels(d.Inventory, logg))
			r.Get("/{bloodType}/history", controllers.InventoryHistory(d.Inventory, logg))
			r.With(adminOnly).Post("/{bloodType}/adjust", controllers.AdjustInventory(d.Inventory, logg))
		})

		r.Route("/donations", func(r chi.Router) {
			r.With(adminOnly).Post("/", controllers.RecordDonation(d.Donations, logg))
			r.Get("/", controllers.ListDonations(d.Donations, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Get("/ws", controllers.NotificationSocket(d.Hub, d.Upgrader, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
		})

		r.With(adminOnly).Get("/reports/requests", controllers.RequestSummary(d.Reports, logg))
	})

	return r
}
