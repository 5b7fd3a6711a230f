package main

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/josh-kwaku/backoffice/api"
	"github.com/josh-kwaku/backoffice/internal/config"
	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/diagnostics"
	"github.com/josh-kwaku/backoffice/internal/handler"
	"github.com/josh-kwaku/backoffice/internal/middleware"
	"github.com/josh-kwaku/backoffice/internal/provider"
	"github.com/josh-kwaku/backoffice/internal/repository"
	"github.com/josh-kwaku/backoffice/internal/service"
)

// A refresh walks three feeds with retries and pacing, and diagnostics may
// live-check every flagged record or pause between apply batches, so both get
// far more time than ordinary requests.
const (
	requestTimeout     = 30 * time.Second
	refreshTimeout     = 5 * time.Minute
	diagnosticsTimeout = 5 * time.Minute
)

type routerDeps struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	kv        *sql.DB
	creds     *credential.Store
	client    *provider.Client
	cache     *provider.ResponseCache
	movements *service.MovementsService
	diag      *diagnostics.Service
	payables  *repository.AccountPayableRepository
	employees *repository.EmployeeRepository
	providers *repository.ServiceProviderRepository
	boletos   *repository.BoletoRepository
	replays   *repository.IdempotencyRepository
}

func newRouter(d routerDeps) chi.Router {
	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database":    d.db,
		"credentials": d.kv,
	})
	creds := handler.NewCredentialHandler(d.creds, d.client, d.cache)
	movements := handler.NewMovementsHandler(d.movements, d.creds, d.cfg.Location())
	diag := handler.NewDiagnosticsHandler(d.diag, d.creds)

	r := chi.NewRouter()
	r.Use(middleware.Tracing)
	r.Use(middleware.Logging(d.logger))
	r.Use(middleware.Recovery)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}))

	r.Get("/health", health.Liveness)
	r.Get("/ready", health.Readiness)
	r.Get("/docs", handler.ServeDocs("/docs/openapi.yaml"))
	r.Get("/docs/openapi.yaml", handler.ServeOpenAPI(api.OpenAPI))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.cfg.JWTSecret))
		r.Use(middleware.Idempotency(d.replays))

		r.With(chimw.Timeout(refreshTimeout)).Post("/movements/refresh", movements.Refresh)
		r.With(chimw.Timeout(diagnosticsTimeout)).Post("/diagnostics/scan", diag.Scan)
		r.With(chimw.Timeout(diagnosticsTimeout)).Post("/diagnostics/apply", diag.Apply)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))

			r.Get("/credential", creds.Get)
			r.Put("/credential", creds.Put)
			r.Delete("/credential", creds.Delete)
			r.Post("/credential/test", creds.Test)

			r.Get("/movements", movements.List)
			r.Get("/movements/indicators", movements.Indicators)
			r.Get("/movements/integrity", movements.Integrity)
			r.Get("/movements/progress", movements.Progress)

			r.Get("/diagnostics", diag.List)

			handler.NewAccountPayableHandler(d.payables).Routes(r)
			handler.NewEmployeeHandler(d.employees).Routes(r)
			handler.NewServiceProviderHandler(d.providers).Routes(r)
			handler.NewBoletoHandler(d.boletos).Routes(r)
		})
	})

	return r
}
