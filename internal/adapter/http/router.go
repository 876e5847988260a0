package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/merchledger/internal/adapter/http/handler"
	"github.com/iho/merchledger/internal/adapter/http/middleware"
	"github.com/iho/merchledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler           *handler.AuthHandler
	InfoHandler           *handler.InfoHandler
	LedgerHandler         *handler.LedgerHandler
	CatalogHandler        *handler.CatalogHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler
	TokenVerifier         middleware.TokenVerifier
	IdempotencyStore      usecase.IdempotencyStore
	RateLimiter           *middleware.RateLimiter
	Metrics               middleware.HTTPObserver
	MetricsHandler        http.Handler
	Logger                zerolog.Logger
	IdempotencyTTL        time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth", cfg.AuthHandler.Login)
		r.Get("/catalog", cfg.CatalogHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))

			r.Get("/info", cfg.InfoHandler.Info)
			r.Get("/ledger/consistency", cfg.ReconciliationHandler.Consistency)

			// Mutations replay stored responses for a repeated Idempotency-Key.
			r.Group(func(r chi.Router) {
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
				}

				r.Post("/sendCoin", cfg.LedgerHandler.SendCoin)
				r.Get("/buy/{item}", cfg.LedgerHandler.Buy)
			})
		})
	})

	return r
}
