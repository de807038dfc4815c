package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/handler"
	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/token"
	"github.com/V4T54L/tabletop/internal/usecase"
)

// Services bundles what the public router dispatches to.
type Services struct {
	Provisioner  *usecase.Provisioner
	Login        *usecase.LoginService
	Menu         *usecase.MenuService
	Users        *usecase.UserService
	Settings     *usecase.SettingsService
	Admin        *usecase.AdminUseCase
	Resolver     middleware.ScopeResolver
	Issuer       *token.Issuer
	LoginLimiter *middleware.IPRateLimiter
}

// NewRouter creates and configures the public HTTP router.
func NewRouter(cfg *config.Config, logger *zap.Logger, m *metrics.APIMetrics, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.APIKeyHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.Logging(logger, m))
	r.Use(chimw.Recoverer)

	instanceHandler := handler.NewInstanceHandler(svc.Provisioner, logger)
	loginHandler := handler.NewLoginHandler(svc.Login, logger)
	menuHandler := handler.NewMenuHandler(svc.Menu, logger)
	settingsHandler := handler.NewSettingsHandler(svc.Settings, svc.Menu, logger)
	userHandler := handler.NewUserHandler(svc.Users, logger)
	adminHandler := handler.NewAdminHandler(svc.Admin, logger)

	r.Get("/health", adminHandler.HealthCheck)
	r.Post("/instances/create", instanceHandler.Create)

	r.Route("/login", func(r chi.Router) {
		if svc.LoginLimiter != nil {
			r.Use(svc.LoginLimiter.Middleware)
		}
		r.Post("/check", loginHandler.Check)
		r.Post("/complete", loginHandler.Complete)
	})

	// Tenant scoped routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant(svc.Resolver, cfg.DefaultAPIKey, logger))
		r.Use(middleware.Session(svc.Issuer, cfg.RequireSessionToken))

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", menuHandler.List)
			r.Post("/", menuHandler.Create)
			r.Get("/category/{category}", menuHandler.ListByCategory)
			r.Get("/check-name", menuHandler.CheckName)
			r.Get("/check-code", menuHandler.CheckCode)
			r.Put("/{id}", menuHandler.Update)
			r.Delete("/{id}", menuHandler.Delete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/generate-code", settingsHandler.GenerateCode)
			r.Get("/{type}", settingsHandler.Get)
			r.Put("/{type}", settingsHandler.Upsert)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Get("/export/csv", userHandler.ExportCSV)
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
			r.Post("/{id}/re-enable", userHandler.ReEnable)
			r.Delete("/{id}/permanent", userHandler.Purge)
		})
	})

	return gzhttp.GzipHandler(r)
}
