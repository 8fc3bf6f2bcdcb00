package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/prompthub/internal/api/handlers"
	"github.com/hugh/prompthub/internal/api/middleware"
	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/contract"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/prompt"
	"github.com/hugh/prompthub/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB            *gorm.DB
	Redis         *redis.Client
	Logger        *slog.Logger
	Authenticator *auth.Authenticator
	AuthService   *auth.Service
	Permissions   *permission.Engine
	Contracts     *contract.Service
	Prompts       *prompt.Service
	Cookie        handlers.CookieSettings
	// AllowedOrigins for CORS; empty allows the local dev origins.
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(metrics.Instrument)

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Cookie, cfg.Logger)
	contractHandler := handlers.NewContractHandler(cfg.Contracts, cfg.Logger)
	permissionHandler := handlers.NewPermissionHandler(cfg.Permissions, cfg.Logger)
	promptHandler := handlers.NewPromptHandler(cfg.Prompts, cfg.Logger)

	requireAuth := middleware.Auth(cfg.Authenticator, cfg.Cookie.Secure, cfg.Logger)
	// Every contract and membership operation needs one of these roles.
	contractGate := middleware.RequireRole(cfg.Permissions, cfg.Logger,
		permission.RoleContract, permission.RoleUser, permission.RoleAdmin)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Get("/activate", authHandler.Activate)
			r.Post("/activate", authHandler.Activate)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.Me)
			r.Put("/me/password", authHandler.ChangePassword)
			r.Put("/me/profile", authHandler.UpdateProfile)

			r.Route("/contracts", func(r chi.Router) {
				r.Use(contractGate)
				r.Post("/", contractHandler.Create)
				r.Get("/mine", contractHandler.Mine)
				r.Put("/{id}", contractHandler.Update)
				r.Delete("/{id}", contractHandler.Destroy)

				r.Route("/{id}/members", func(r chi.Router) {
					r.Get("/", contractHandler.ListMembers)
					r.Post("/", contractHandler.AddMember)
					r.Post("/signup", authHandler.SignupMember)
					r.Get("/{accountID}", contractHandler.ShowMember)
					r.Delete("/{accountID}", contractHandler.RemoveMember)
				})
			})

			r.Route("/members", func(r chi.Router) {
				r.Use(contractGate)
				r.Get("/", contractHandler.ListOwnMembers)
				r.Get("/{accountID}", contractHandler.ShowOwnMember)
				r.Delete("/{accountID}", contractHandler.RemoveOwnMember)
			})

			r.Route("/accounts/{id}/permissions", func(r chi.Router) {
				r.Get("/", permissionHandler.Show)
				r.Post("/", permissionHandler.Grant)
				r.Put("/", permissionHandler.Replace)
				r.Delete("/", permissionHandler.Revoke)
			})

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", promptHandler.List)
				r.Post("/", promptHandler.Create)
				r.Get("/{id}", promptHandler.Get)
				r.Put("/{id}", promptHandler.Update)
				r.Delete("/{id}", promptHandler.Delete)
				r.Post("/{id}/like", promptHandler.Like)
				r.Delete("/{id}/like", promptHandler.Unlike)
				r.Post("/{id}/bookmark", promptHandler.Bookmark)
				r.Delete("/{id}/bookmark", promptHandler.Unbookmark)
			})
		})
	})

	return &Router{r}
}

// Handler returns the router wrapped in a server span per request when a
// service name is configured.
func (rt *Router) Handler(serviceName string) http.Handler {
	if serviceName == "" {
		return rt
	}
	return otelhttp.NewHandler(rt, serviceName,
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
