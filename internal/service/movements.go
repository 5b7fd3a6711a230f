package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/josh-kwaku/backoffice/internal/collector"
	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/filter"
	"github.com/josh-kwaku/backoffice/internal/indicator"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/mapper"
	"github.com/josh-kwaku/backoffice/internal/merge"
)

const (
	FeedOrders   = "/core/v5/orders"
	FeedPayables = "/core/v5/payables"
	FeedCharges  = "/core/v5/charges"

	reloadWindowDays = 90
	reloadLimit      = 5000
)

type Progress struct {
	Running   bool      `json:"running"`
	Feed      string    `json:"feed"`
	Page      int       `json:"page"`
	Collected int       `json:"collected"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FeedSummary struct {
	Records int
	Pages   int
	Skipped int
	Success bool
	Error   string
}

type RefreshSummary struct {
	Feeds        map[string]FeedSummary
	Operations   int
	Transactions int
	Persisted    int
	Integrity    merge.IntegrityReport
	StartedAt    time.Time
	FinishedAt   time.Time
}

type snapshot struct {
	ops         []domain.BalanceOperation
	txs         []domain.Transaction
	integrity   merge.IntegrityReport
	refreshedAt time.Time
	stale       bool
}

// MovementsService owns the session's collected operations. Refresh replaces
// the whole set; readers always see a complete snapshot.
type MovementsService struct {
	collector pageCollector
	store     operationStore
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger

	refreshing atomic.Bool

	mu       sync.RWMutex
	current  snapshot
	progress Progress
}

func NewMovementsService(c pageCollector, store operationStore, loc *time.Location, logger *slog.Logger) *MovementsService {
	if loc == nil {
		loc = time.UTC
	}
	return &MovementsService{
		collector: c,
		store:     store,
		loc:       loc,
		now:       time.Now,
		log:       logging.Component(logger, "movements"),
		current:   snapshot{stale: true},
	}
}

// Refresh collects orders, payables and charges in sequence, merges them,
// persists the operations and swaps in the new set. Only one refresh runs at
// a time.
func (s *MovementsService) Refresh(ctx context.Context, apiKey string) (RefreshSummary, error) {
	if err := credential.Validate(apiKey); err != nil {
		return RefreshSummary{}, fmt.Errorf("Refresh: %w", err)
	}
	if !s.refreshing.CompareAndSwap(false, true) {
		return RefreshSummary{}, fmt.Errorf("Refresh: %w", domain.ErrRefreshInProgress)
	}
	defer s.refreshing.Store(false)
	defer s.setProgress(Progress{Running: false, Message: "idle"})

	log := logging.FromContext(ctx)
	summary := RefreshSummary{Feeds: make(map[string]FeedSummary, 3), StartedAt: s.now()}

	orderRes, err := s.collect(ctx, FeedOrders, apiKey)
	if err != nil {
		return summary, fmt.Errorf("Refresh: orders: %w", err)
	}
	orders, skipped := mapper.DecodeOrders(orderRes.Records)
	summary.Feeds[FeedOrders] = feedSummary(orderRes, skipped)

	payableRes, err := s.collect(ctx, FeedPayables, apiKey)
	if err != nil {
		return summary, fmt.Errorf("Refresh: payables: %w", err)
	}
	payables, skipped := mapper.DecodePayables(payableRes.Records)
	summary.Feeds[FeedPayables] = feedSummary(payableRes, skipped)

	chargeRes, err := s.collect(ctx, FeedCharges, apiKey)
	if err != nil {
		return summary, fmt.Errorf("Refresh: charges: %w", err)
	}
	charges, skipped := mapper.DecodeCharges(chargeRes.Records)
	summary.Feeds[FeedCharges] = feedSummary(chargeRes, skipped)

	if !orderRes.Success && !payableRes.Success && !chargeRes.Success {
		return summary, fmt.Errorf("Refresh: every feed failed: %w", firstErr(orderRes.Err, payableRes.Err, chargeRes.Err))
	}

	ops := merge.Merge(mapper.MapOrders(orders), mapper.MapPayables(payables))
	txs := mapper.MapTransactions(charges)

	report := merge.CheckIntegrity(ops)
	if err := report.Err(); err != nil {
		log.Warn("integrity check found problems", "error", err)
	}

	persisted, err := s.store.UpsertMany(ctx, ops)
	if err != nil {
		return summary, fmt.Errorf("Refresh: %w", err)
	}

	summary.Operations = len(ops)
	summary.Transactions = len(txs)
	summary.Persisted = persisted
	summary.Integrity = report
	summary.FinishedAt = s.now()

	s.mu.Lock()
	s.current = snapshot{ops: ops, txs: txs, integrity: report, refreshedAt: summary.FinishedAt}
	s.mu.Unlock()

	log.Info("movements refreshed",
		"operations", summary.Operations,
		"transactions", summary.Transactions,
		"persisted", summary.Persisted,
		"duration_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	)
	return summary, nil
}

// collect returns an error only when the run was aborted for a reason that
// would fail every other feed too.
func (s *MovementsService) collect(ctx context.Context, feed, apiKey string) (collector.Result, error) {
	res := s.collector.Collect(ctx, collector.Request{
		Endpoint:   feed,
		Credential: apiKey,
		OnProgress: func(page, total int, message string) {
			s.setProgress(Progress{Running: true, Feed: feed, Page: page, Collected: total, Message: message})
		},
	})
	if res.Err != nil && (ctx.Err() != nil ||
		errors.Is(res.Err, domain.ErrCredentialRejected) ||
		errors.Is(res.Err, domain.ErrCredentialInvalid)) {
		return res, res.Err
	}
	return res, nil
}

func (s *MovementsService) setProgress(p Progress) {
	p.UpdatedAt = s.now()
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

func (s *MovementsService) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Invalidate marks the set stale so the next read reloads it from the store,
// picking up corrections written by diagnostics.
func (s *MovementsService) Invalidate() {
	s.mu.Lock()
	s.current.stale = true
	s.mu.Unlock()
}

func (s *MovementsService) snapshot(ctx context.Context) (snapshot, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if !cur.stale {
		return cur, nil
	}

	stored, err := s.store.ListSince(ctx, s.now().AddDate(0, 0, -reloadWindowDays), reloadLimit)
	if err != nil {
		return snapshot{}, fmt.Errorf("reload: %w", err)
	}
	ops := make([]domain.BalanceOperation, len(stored))
	for i, so := range stored {
		ops[i] = so.BalanceOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A refresh may have landed while the store was being read.
	if !s.current.stale {
		return s.current, nil
	}
	s.current = snapshot{
		ops:         ops,
		txs:         s.current.txs,
		integrity:   merge.CheckIntegrity(ops),
		refreshedAt: s.now(),
	}
	return s.current, nil
}

func (s *MovementsService) Operations(ctx context.Context, opts domain.FilterOptions) (filter.Result, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return filter.Result{}, fmt.Errorf("Operations: %w", err)
	}
	return filter.Apply(snap.ops, snap.txs, opts), nil
}

func (s *MovementsService) Indicators(ctx context.Context, opts domain.FilterOptions) (domain.FinancialIndicators, error) {
	res, err := s.Operations(ctx, opts)
	if err != nil {
		return domain.FinancialIndicators{}, fmt.Errorf("Indicators: %w", err)
	}
	return indicator.Calculate(res.Operations, res.Transactions, s.now(), s.loc), nil
}

func (s *MovementsService) Integrity(ctx context.Context) (merge.IntegrityReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return merge.IntegrityReport{}, fmt.Errorf("Integrity: %w", err)
	}
	return snap.integrity, nil
}

func (s *MovementsService) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.refreshedAt
}

func feedSummary(res collector.Result, skipped int) FeedSummary {
	fs := FeedSummary{
		Records: len(res.Records) - skipped,
		Pages:   res.PagesFetched,
		Skipped: skipped,
		Success: res.Success,
	}
	if res.Err != nil {
		fs.Error = res.Err.Error()
	}
	return fs
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return domain.ErrUpstreamUnavailable
}
