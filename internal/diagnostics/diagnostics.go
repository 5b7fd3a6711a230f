// Package diagnostics finds card operations stuck in waiting_funds and
// applies operator-approved status corrections to the data store.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/provider"
)

const (
	LiveCheckConfidence = 95
	SuggestedStatus     = domain.StatusPaid
)

type Store interface {
	FindStuckCardOperations(ctx context.Context, since time.Time) ([]domain.StoredOperation, error)
	ApplyStatusCorrections(ctx context.Context, batch []domain.StatusCorrection) error
}

// StatusChecker is satisfied by *provider.Client.
type StatusChecker interface {
	LiveStatus(ctx context.Context, apiKey string, source domain.OperationSource, id string) (string, error)
}

type Config struct {
	WindowDays int
	BatchSize  int
	BatchPause time.Duration
}

func DefaultConfig() Config {
	return Config{WindowDays: 30, BatchSize: 10, BatchPause: 1500 * time.Millisecond}
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithSleep(fn provider.SleepFunc) Option {
	return func(s *Service) { s.sleep = fn }
}

// OnApplied registers a callback run after corrections reach the store.
func OnApplied(fn func()) Option {
	return func(s *Service) { s.onApplied = fn }
}

type Service struct {
	store     Store
	checker   StatusChecker
	cfg       Config
	now       func() time.Time
	sleep     provider.SleepFunc
	onApplied func()
	log       *slog.Logger

	// run serializes Scan and Apply; mu guards pending.
	run     sync.Mutex
	mu      sync.Mutex
	pending []domain.Diagnostic
}

func NewService(store Store, checker StatusChecker, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	s := &Service{
		store:     store,
		checker:   checker,
		cfg:       cfg,
		now:       time.Now,
		sleep:     provider.SleepContext,
		onApplied: func() {},
		log:       logging.Component(logger, "diagnostics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RuleConfidence scores an operation by how long it has been waiting.
// Zero means it is too recent to flag.
func RuleConfidence(age time.Duration) int {
	switch {
	case age > 48*time.Hour:
		return 90
	case age > 24*time.Hour:
		return 85
	case age > 6*time.Hour:
		return 75
	}
	return 0
}

type ScanOptions struct {
	Credential string
	LiveCheck  bool
}

// Scan evaluates candidates from the store and replaces the pending list
// with the result. When ctx ends mid-scan the diagnostics computed so far
// are kept and returned together with the error.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) ([]domain.Diagnostic, error) {
	s.run.Lock()
	defer s.run.Unlock()

	now := s.now()
	since := now.AddDate(0, 0, -s.cfg.WindowDays)

	candidates, err := s.store.FindStuckCardOperations(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}

	liveCheck := opts.LiveCheck && s.checker != nil && opts.Credential != ""
	var (
		out     []domain.Diagnostic
		scanErr error
	)

scan:
	for _, op := range candidates {
		if err := ctx.Err(); err != nil {
			scanErr = fmt.Errorf("Scan: %w", err)
			break
		}

		age := now.Sub(op.CreatedAt)
		d := domain.Diagnostic{
			ExternalID:         op.ID,
			Source:             op.Source,
			Amount:             op.Amount,
			CreatedAt:          op.CreatedAt,
			CurrentStatus:      op.Status,
			HoursSinceCreation: age.Hours(),
			State:              domain.DiagnosticFlagged,
		}

		if liveCheck {
			status, err := s.checker.LiveStatus(ctx, opts.Credential, op.Source, op.ID)
			switch {
			case err == nil:
				if status == op.Status {
					continue
				}
				d.APIStatus = &status
				d.SuggestedStatus = status
				d.Confidence = LiveCheckConfidence
				d.IsAnomaly = true
				if err := advance(&d, domain.DiagnosticAPIChecked, domain.DiagnosticSuggested); err != nil {
					return nil, fmt.Errorf("Scan: %w", err)
				}
				out = append(out, d)
				continue
			case ctx.Err() != nil:
				scanErr = fmt.Errorf("Scan: %w", ctx.Err())
				break scan
			case errors.Is(err, domain.ErrCredentialRejected) || errors.Is(err, domain.ErrCredentialInvalid):
				s.log.Warn("live check disabled for the rest of the scan", "error", err)
				liveCheck = false
			default:
				s.log.Warn("live check failed, using age rule", "external_id", op.ID, "error", err)
			}
		}

		conf := RuleConfidence(age)
		if conf == 0 {
			continue
		}
		d.SuggestedStatus = SuggestedStatus
		d.Confidence = conf
		d.IsAnomaly = true
		if err := advance(&d, domain.DiagnosticRuleOnly, domain.DiagnosticSuggested); err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		out = append(out, d)
	}

	s.mu.Lock()
	s.pending = append([]domain.Diagnostic(nil), out...)
	s.mu.Unlock()

	if scanErr != nil {
		s.log.Warn("diagnostics scan interrupted", "candidates", len(candidates), "flagged", len(out), "error", scanErr)
		return out, scanErr
	}
	s.log.Info("diagnostics scan finished", "candidates", len(candidates), "flagged", len(out))
	return out, nil
}

// Pending returns a copy of the diagnostics from the last scan.
func (s *Service) Pending() []domain.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Diagnostic(nil), s.pending...)
}

type ApplyOptions struct {
	// ExternalIDs selects diagnostics explicitly. When empty, every
	// diagnostic at or above MinConfidence is selected.
	ExternalIDs   []string
	MinConfidence int
}

type ApplyResult struct {
	Selected    int
	Applied     int
	Failed      int
	Batches     int
	Diagnostics []domain.Diagnostic
}

// Apply writes the selected corrections in fixed-size batches, one store
// transaction per batch, pausing between batches. A failed batch is counted
// and skipped; earlier batches stay committed.
func (s *Service) Apply(ctx context.Context, opts ApplyOptions) (ApplyResult, error) {
	s.run.Lock()
	defer s.run.Unlock()

	diags := s.Pending()
	selected := selectDiagnostics(diags, opts)

	var res ApplyResult
	res.Selected = len(selected)
	if len(selected) == 0 {
		res.Diagnostics = diags
		return res, nil
	}

	corrections := make([]domain.StatusCorrection, 0, len(selected))
	for _, i := range selected {
		corrections = append(corrections, domain.StatusCorrection{
			Source:     diags[i].Source,
			ExternalID: diags[i].ExternalID,
			Status:     diags[i].SuggestedStatus,
		})
	}

	// corrections[k] belongs to diags[selected[k]].
	applied := make(map[int]bool, len(corrections))
	var runErr error

	for start := 0; start < len(corrections); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(corrections))
		batch := corrections[start:end]

		if start > 0 && s.cfg.BatchPause > 0 {
			if err := s.sleep(ctx, s.cfg.BatchPause); err != nil {
				res.Failed += len(corrections) - start
				runErr = fmt.Errorf("Apply: %w", err)
				break
			}
		}

		res.Batches++
		if err := s.store.ApplyStatusCorrections(ctx, batch); err != nil {
			res.Failed += len(batch)
			s.log.Error("correction batch failed", "batch", res.Batches, "size", len(batch), "error", err)
			continue
		}
		res.Applied += len(batch)
		for _, i := range selected[start:end] {
			applied[i] = true
		}
		s.log.Info("correction batch applied", "batch", res.Batches, "size", len(batch))
	}

	isSelected := make(map[int]bool, len(selected))
	for _, i := range selected {
		isSelected[i] = true
	}
	for i := range diags {
		d := &diags[i]
		if d.State != domain.DiagnosticSuggested {
			continue
		}
		switch {
		case applied[i]:
			_ = d.Advance(domain.DiagnosticApplied)
		case !isSelected[i]:
			_ = d.Advance(domain.DiagnosticRejected)
		}
	}
	res.Diagnostics = diags

	s.mu.Lock()
	if res.Failed == 0 {
		s.pending = nil
	} else {
		s.pending = diags
	}
	s.mu.Unlock()

	if res.Applied > 0 {
		s.onApplied()
	}

	s.log.Info("corrections finished",
		"selected", res.Selected,
		"applied", res.Applied,
		"failed", res.Failed,
		"batches", res.Batches,
	)
	return res, runErr
}

func selectDiagnostics(diags []domain.Diagnostic, opts ApplyOptions) []int {
	var ids map[string]bool
	if len(opts.ExternalIDs) > 0 {
		ids = make(map[string]bool, len(opts.ExternalIDs))
		for _, id := range opts.ExternalIDs {
			ids[id] = true
		}
	}

	var out []int
	for i, d := range diags {
		if d.State != domain.DiagnosticSuggested {
			continue
		}
		if ids != nil {
			if ids[d.ExternalID] {
				out = append(out, i)
			}
			continue
		}
		if d.Confidence >= opts.MinConfidence {
			out = append(out, i)
		}
	}
	return out
}

func advance(d *domain.Diagnostic, states ...domain.DiagnosticState) error {
	for _, st := range states {
		if err := d.Advance(st); err != nil {
			return err
		}
	}
	return nil
}
