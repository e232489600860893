package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/api/middleware"
	"github.com/rudrark0109/sync-chat/internal/chat"
	"github.com/rudrark0109/sync-chat/internal/handlers"
	"github.com/rudrark0109/sync-chat/internal/store"
	"github.com/rudrark0109/sync-chat/internal/ws"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Logger         zerolog.Logger
	Store          store.DataStore
	Sessions       store.Sessions
	Redis          *store.RedisStore // optional; nil disables rate limiting
	Hub            *ws.Hub
	ChatRouter     *chat.Router
	SessionTTL     time.Duration
	AllowedOrigins []string // browser origins allowed to send the session cookie
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024)) // 16KB max body
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (no-op without Redis)
	var redisClient *redis.Client
	if deps.Redis != nil {
		redisClient = deps.Redis.Client()
	}
	limiter := middleware.NewRateLimiter(redisClient, deps.Logger)
	r.Use(limiter.Middleware)

	// CORS - browser clients carry the session cookie, which rules out a
	// wildcard origin: credentialed responses require concrete origins.
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler and auth middleware
	h := handlers.NewHandler(deps.Store, deps.Sessions, deps.Hub, deps.SessionTTL, deps.Logger)
	auth := middleware.NewAuthMiddleware(deps.Store, deps.Sessions)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	var redisPinger handlers.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	r.Get("/health", h.Health(redisPinger))
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/api/users", h.ListUsers)

	// Authenticated routes (require session cookie)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/api/conversations", h.ListConversations)
		r.Get("/api/messages/{peerID}", h.GetMessages)
		r.Get("/ws", ws.ServeWS(deps.Hub, deps.ChatRouter, deps.Logger))
	})

	return r
}
