package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josh-kwaku/backoffice/internal/collector"
	"github.com/josh-kwaku/backoffice/internal/config"
	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/diagnostics"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/provider"
	"github.com/josh-kwaku/backoffice/internal/repository"
	"github.com/josh-kwaku/backoffice/internal/scheduler"
	"github.com/josh-kwaku/backoffice/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("backoffice api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init("backoffice-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeS) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		applied, err := repository.Migrate(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", "versions", applied)
	}

	kv, err := credential.OpenKV(ctx, cfg.CredentialDBPath)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer kv.Close()
	creds := credential.NewStore(kv)

	cache := provider.NewResponseCache(cfg.CacheTTL, cfg.CacheMaxAge, cfg.CacheSweepInterval, time.Now)
	// The client waits a little longer than the proxy so the proxy's own
	// upstream timeout is what gets reported.
	client := provider.NewClient(provider.Config{
		ProxyURL:           cfg.ProxyURL,
		Timeout:            cfg.ProviderTimeout + 5*time.Second,
		Retries:            cfg.RetryMax,
		RetryBaseDelay:     cfg.RetryBaseDelay,
		RateLimitRetries:   cfg.RateLimitRetryMax,
		RateLimitBaseDelay: cfg.RateLimitBaseDelay,
	}, cache, logger)

	pages := collector.New(client, collector.Config{
		PageSize:         cfg.CollectPageSize,
		MaxPages:         cfg.CollectMaxPages,
		EmptyStreakLimit: cfg.CollectEmptyStreak,
		Pacing:           cfg.CollectPacing,
	}, logger)

	operations := repository.NewOperationRepository(db)
	movements := service.NewMovementsService(pages, operations, cfg.Location(), logger)
	diag := diagnostics.NewService(operations, client, diagnostics.Config{
		WindowDays: cfg.DiagWindowDays,
		BatchSize:  cfg.DiagBatchSize,
		BatchPause: cfg.DiagBatchPause,
	}, logger, diagnostics.OnApplied(movements.Invalidate))

	jobs := scheduler.New(logger, 10*time.Minute)
	if err := jobs.Add(cfg.DiagScanCron, scheduler.DiagnosticsScanJob{Diagnostics: diag, Credentials: creds}); err != nil {
		return err
	}
	if err := jobs.Add(cfg.RefreshCron, scheduler.RefreshJob{Movements: movements, Credentials: creds}); err != nil {
		return err
	}
	if err := jobs.Add(cfg.CacheSweepCron, scheduler.CacheSweepJob{Cache: cache}); err != nil {
		return err
	}
	replays := repository.NewIdempotencyRepository(db)
	if err := jobs.Add(cfg.CacheSweepCron, scheduler.IdempotencySweepJob{Store: replays}); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		kv:        kv,
		creds:     creds,
		client:    client,
		cache:     cache,
		movements: movements,
		diag:      diag,
		payables:  repository.NewAccountPayableRepository(db),
		employees: repository.NewEmployeeRepository(db),
		providers: repository.NewServiceProviderRepository(db),
		boletos:   repository.NewBoletoRepository(db),
		replays:   replays,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      refreshTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
