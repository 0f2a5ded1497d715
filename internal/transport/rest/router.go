package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/auth"
	"github.com/gracechapel/church-backend/internal/livestatus"
	"github.com/gracechapel/church-backend/internal/payment"
	"github.com/gracechapel/church-backend/internal/sermon"
	"github.com/gracechapel/church-backend/internal/transport/middleware"
	"github.com/gracechapel/church-backend/internal/transport/swagger"
)

// RegisterAllRoutes wires the full HTTP surface. The callback route is
// deliberately outside the guest-token group: the gateway cannot carry our
// bearer token.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	cfg *internal.Config,
	authHandler *auth.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
	sermonHandler *sermon.Handler,
	liveHandler *livestatus.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if authHandler != nil {
			r.Get("/auth/guest-token", authHandler.GuestToken)
		}

		if paymentHandler != nil {
			r.Route("/mpesa", func(mr chi.Router) {
				// Gateway webhook: unauthenticated, always reachable.
				if webhookHandler != nil {
					mr.Post("/callback", webhookHandler.HandleCallback)
				}

				// Client-facing payment routes behind the guest token.
				mr.Group(func(pr chi.Router) {
					if authHandler != nil {
						pr.Use(auth.GuestMiddleware(cfg.Security.GuestTokenSecret, logger))
					}

					pr.With(middleware.RateLimitByIP(
						cfg.RateLimit.StkPushRequests,
						cfg.RateLimit.StkPushWindow,
					)).Post("/stkpush", paymentHandler.STKPush)

					pr.Get("/status/{checkoutId}", paymentHandler.Status)
				})
			})
		}

		if sermonHandler != nil {
			r.Route("/sermons", func(sr chi.Router) {
				sr.Get("/", sermonHandler.List)
				sr.Post("/refresh", sermonHandler.Refresh)
			})
		}

		if liveHandler != nil {
			r.Get("/live-status", liveHandler.Status)
		}
	})
}
