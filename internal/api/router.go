package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/fuomag9/colive-web/internal/websocket"
)

// NewRouter creates the HTTP router serving the pages and the hand-off socket
func NewRouter(d *Deps, handoff *websocket.HandoffServer, limiter *RateLimiter) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware(cfg))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if limiter == nil {
		limiter = NewRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}

	// Pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Get("/", HandleLanding(d))

		// Link redemption and password submission
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(limiter, cfg.Brand.DefaultLanguage))

			r.Get("/auth/callback", HandleAuthCallback(d))
			r.Get("/reset", HandleResetLink(d))
			r.Post("/reset", HandleResetSubmit(d))
		})
	})

	// Hand-off WebSocket endpoint
	r.Get(HandoffSocketPath, handoff.HandleWebSocket)

	// Health check
	r.Get("/health", HandleHealth())

	return otelhttp.NewHandler(r, "colive-web",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}
