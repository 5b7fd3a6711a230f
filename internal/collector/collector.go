// Package collector walks the provider's paginated list endpoints.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

// Fetcher is satisfied by *provider.Client. Retry and backoff live there.
type Fetcher interface {
	Request(ctx context.Context, endpoint, apiKey string) (json.RawMessage, error)
}

type Config struct {
	PageSize         int
	MaxPages         int
	EmptyStreakLimit int
	Pacing           time.Duration
}

func DefaultConfig() Config {
	return Config{
		PageSize:         100,
		MaxPages:         50,
		EmptyStreakLimit: 3,
		Pacing:           150 * time.Millisecond,
	}
}

type ProgressFunc func(page, total int, message string)

type Request struct {
	Endpoint   string
	Credential string
	// PageSize and MaxPages override the collector's defaults when positive.
	PageSize   int
	MaxPages   int
	OnProgress ProgressFunc
}

type Result struct {
	Records      []json.RawMessage
	PagesFetched int
	Success      bool
	Err          error
}

type Collector struct {
	fetcher Fetcher
	cfg     Config
	log     *slog.Logger
}

func New(fetcher Fetcher, cfg Config, logger *slog.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		cfg:     cfg,
		log:     logging.Component(logger, "collector"),
	}
}

// Collect fetches pages sequentially from page 1. It stops on a short page,
// at the page limit, or after too many consecutive empty or failed pages.
// Failed pages are skipped unless the failure is a credential problem or the
// context is done, which abort the run.
func (c *Collector) Collect(ctx context.Context, req Request) Result {
	size := req.PageSize
	if size <= 0 {
		size = c.cfg.PageSize
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}
	streakLimit := c.cfg.EmptyStreakLimit
	if streakLimit <= 0 {
		streakLimit = 1
	}
	onProgress := req.OnProgress
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	limit := rate.Inf
	if c.cfg.Pacing > 0 {
		limit = rate.Every(c.cfg.Pacing)
	}
	limiter := rate.NewLimiter(limit, 1)

	log := c.log.With("endpoint", req.Endpoint)

	var (
		res     Result
		aborted bool
		streak  int
	)

	for page := 1; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = fmt.Errorf("Collect: page %d: %w", page, err)
			aborted = true
			break
		}

		items, err := c.fetchPage(ctx, req, page, size)
		if err != nil {
			res.Err = fmt.Errorf("Collect: page %d: %w", page, err)
			if isAbort(ctx, err) {
				log.Warn("collection aborted", "page", page, "error", err)
				onProgress(page, len(res.Records), "aborted")
				aborted = true
				break
			}
			log.Warn("page skipped", "page", page, "error", err)
		} else {
			res.Records = append(res.Records, items...)
			res.PagesFetched++
		}

		onProgress(page, len(res.Records), fmt.Sprintf("page %d: %d records so far", page, len(res.Records)))

		if err == nil && len(items) > 0 && len(items) < size {
			break
		}
		if page >= maxPages {
			log.Info("page limit reached", "max_pages", maxPages)
			break
		}
		if err != nil || len(items) == 0 {
			streak++
		} else {
			streak = 0
		}
		if streak >= streakLimit {
			log.Info("empty page streak reached", "streak", streak)
			break
		}
	}

	res.Success = !aborted && res.PagesFetched > 0
	log.Info("collection finished",
		"records", len(res.Records),
		"pages", res.PagesFetched,
		"success", res.Success,
	)
	return res
}

func (c *Collector) fetchPage(ctx context.Context, req Request, page, size int) ([]json.RawMessage, error) {
	endpoint, err := WithPage(req.Endpoint, page, size)
	if err != nil {
		return nil, err
	}
	body, err := c.fetcher.Request(ctx, endpoint, req.Credential)
	if err != nil {
		return nil, err
	}
	return DecodePage(body)
}

func isAbort(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, domain.ErrCredentialInvalid) ||
		errors.Is(err, domain.ErrCredentialRejected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WithPage merges page and size into the endpoint's query string.
func WithPage(endpoint string, page, size int) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("WithPage: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodePage accepts the provider's {"data": [...]} envelope or a bare array.
func DecodePage(body json.RawMessage) ([]json.RawMessage, error) {
	trimmed := firstNonSpace(body)
	if trimmed == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, unparsable(err)
		}
		return items, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, unparsable(err)
	}
	return envelope.Data, nil
}

func unparsable(err error) error {
	return &domain.ProviderError{Kind: domain.ErrResponseUnparsable, Details: err.Error()}
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
