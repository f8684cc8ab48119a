package api

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/rateboard/internal/api/handlers"
	"github.com/hugh/rateboard/internal/api/middleware"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/permission"
	"github.com/hugh/rateboard/internal/web"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

// AuthService is what the router needs from the account service.
type AuthService interface {
	auth.Authenticator
	auth.MembershipFinder
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	Tokens         auth.TokenService
	AuthService    AuthService
	InviteService  *invite.Service
	Pages          *web.Pages
	StaticFS       fs.FS
	Cookie         handlers.CookieConfig
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	gate := middleware.NewGate(cfg.Tokens, cfg.AuthService, cfg.Logger)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Cookie, cfg.Logger)
	orgHandler := handlers.NewOrganizationHandler(cfg.DB, cfg.InviteService, cfg.Logger)
	criteriaHandler := handlers.NewCriteriaHandler(cfg.DB, cfg.Logger)
	pageHandler := handlers.NewPageHandler(cfg.AuthService, cfg.Pages, cfg.Logger)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/accept-invite", authHandler.AcceptInvite)

		r.With(gate.Authenticated()).Get("/auth/whoami", authHandler.WhoAmI)

		r.Route("/organization/{id}", func(r chi.Router) {
			r.Route("/criteria", func(r chi.Router) {
				r.With(gate.RequireOrg(permission.CriteriaRead)).Get("/", criteriaHandler.List)
				r.With(gate.RequireOrg(permission.CriteriaCreate, permission.OrganizationAll)).Post("/", criteriaHandler.Create)
				r.With(gate.RequireOrg(permission.CriteriaUpdate, permission.OrganizationAll)).Patch("/{criteriaId}", criteriaHandler.Update)
				r.With(gate.RequireOrg(permission.CriteriaDelete, permission.OrganizationAll)).Delete("/{criteriaId}", criteriaHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireOrg(permission.OrganizationAll, permission.OrganizationInvite))
				r.Post("/invite", orgHandler.Invite)
				r.Post("/invite/resend", orgHandler.ResendInvite)
			})

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireOrg(permission.UserAll, permission.UserAssignAssigned))
				r.Get("/members/employees", orgHandler.Employees)
				r.Get("/members/supervisors", orgHandler.Supervisors)
			})
		})
	})

	// Web pages
	r.Get("/login", pageHandler.Login)
	r.Get("/sign-up", pageHandler.SignUp)
	r.Get("/accept-invite", pageHandler.AcceptInvite)
	r.With(gate.Authenticated()).Get("/", pageHandler.Home)

	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return &Router{r}
}
