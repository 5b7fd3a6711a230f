package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/josh-kwaku/backoffice/internal/diagnostics"
	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/service"
)

type credentialSource interface {
	Load(ctx context.Context) (string, error)
}

type scanner interface {
	Scan(ctx context.Context, opts diagnostics.ScanOptions) ([]domain.Diagnostic, error)
}

type refresher interface {
	Refresh(ctx context.Context, apiKey string) (service.RefreshSummary, error)
}

type sweeper interface {
	Sweep() int
}

type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// DiagnosticsScanJob re-evaluates stuck card operations so the pending list
// is current when an operator opens it. Live checks run only when a
// credential is stored.
type DiagnosticsScanJob struct {
	Diagnostics scanner
	Credentials credentialSource
}

func (j DiagnosticsScanJob) Name() string { return "diagnostics-scan" }

func (j DiagnosticsScanJob) Run(ctx context.Context) error {
	opts := diagnostics.ScanOptions{}
	key, err := j.Credentials.Load(ctx)
	switch {
	case err == nil:
		opts.Credential = key
		opts.LiveCheck = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("load credential: %w", err)
	}

	diags, err := j.Diagnostics.Scan(ctx, opts)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("diagnostics scan", "flagged", len(diags), "live_check", opts.LiveCheck)
	return nil
}

type RefreshJob struct {
	Movements   refresher
	Credentials credentialSource
}

func (j RefreshJob) Name() string { return "movements-refresh" }

func (j RefreshJob) Run(ctx context.Context) error {
	key, err := j.Credentials.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		logging.FromContext(ctx).Debug("no credential stored, skipping refresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	summary, err := j.Movements.Refresh(ctx, key)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		return nil
	}
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("scheduled refresh", "operations", summary.Operations, "persisted", summary.Persisted)
	return nil
}

type CacheSweepJob struct {
	Cache sweeper
}

func (j CacheSweepJob) Name() string { return "cache-sweep" }

func (j CacheSweepJob) Run(ctx context.Context) error {
	if n := j.Cache.Sweep(); n > 0 {
		logging.FromContext(ctx).Info("cache swept", "removed", n)
	}
	return nil
}

// IdempotencySweepJob drops replay entries past their TTL.
type IdempotencySweepJob struct {
	Store expiredCleaner
}

func (j IdempotencySweepJob) Name() string { return "idempotency-sweep" }

func (j IdempotencySweepJob) Run(ctx context.Context) error {
	n, err := j.Store.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("IdempotencySweepJob: %w", err)
	}
	if n > 0 {
		logging.FromContext(ctx).Info("idempotency entries expired", "removed", n)
	}
	return nil
}
