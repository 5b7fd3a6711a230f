// Package provider talks to the payments provider through the server-side proxy.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

const PingEndpoint = "/core/v5/recipients?page=1&size=1"

type Config struct {
	ProxyURL           string
	Timeout            time.Duration
	Retries            int
	RetryBaseDelay     time.Duration
	RateLimitRetries   int
	RateLimitBaseDelay time.Duration
}

func DefaultConfig(proxyURL string) Config {
	return Config{
		ProxyURL:           proxyURL,
		Timeout:            25 * time.Second,
		Retries:            3,
		RetryBaseDelay:     time.Second,
		RateLimitRetries:   3,
		RateLimitBaseDelay: 2 * time.Second,
	}
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Client)

func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *ResponseCache
	sleep      SleepFunc
	log        *slog.Logger
}

// NewClient builds a client. cache may be nil, in which case every request
// goes to the network.
func NewClient(cfg Config, cache *ResponseCache, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		sleep:      SleepContext,
		log:        logging.Component(logger, "provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type proxyRequest struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey"`
}

type proxyErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Request returns the provider's JSON body for endpoint, served from the
// response cache when a fresh entry exists.
func (c *Client) Request(ctx context.Context, endpoint, apiKey string) (json.RawMessage, error) {
	if err := credential.Validate(apiKey); err != nil {
		return nil, fmt.Errorf("Request: %w", err)
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(apiKey, endpoint); ok {
			c.log.Debug("provider cache hit", "endpoint", endpoint)
			return body, nil
		}
	}

	return c.fetch(ctx, endpoint, apiKey)
}

// RequestFresh skips the cache read but still stores the response.
func (c *Client) RequestFresh(ctx context.Context, endpoint, apiKey string) (json.RawMessage, error) {
	if err := credential.Validate(apiKey); err != nil {
		return nil, fmt.Errorf("RequestFresh: %w", err)
	}
	return c.fetch(ctx, endpoint, apiKey)
}

func (c *Client) Ping(ctx context.Context, apiKey string) error {
	if _, err := c.RequestFresh(ctx, PingEndpoint, apiKey); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

func (c *Client) GetOrder(ctx context.Context, apiKey, id string) (json.RawMessage, error) {
	return c.RequestFresh(ctx, "/core/v5/orders/"+id, apiKey)
}

func (c *Client) GetCharge(ctx context.Context, apiKey, id string) (json.RawMessage, error) {
	return c.RequestFresh(ctx, "/core/v5/charges/"+id, apiKey)
}

func (c *Client) GetPayable(ctx context.Context, apiKey, id string) (json.RawMessage, error) {
	return c.RequestFresh(ctx, "/core/v5/payables/"+id, apiKey)
}

type statusBody struct {
	Status  string `json:"status"`
	Charges []struct {
		Status string `json:"status"`
	} `json:"charges"`
}

// LiveStatus fetches the provider's current status for a single record. For
// orders the first charge's status is authoritative when present.
func (c *Client) LiveStatus(ctx context.Context, apiKey string, source domain.OperationSource, id string) (string, error) {
	var (
		body json.RawMessage
		err  error
	)
	switch source {
	case domain.SourceOrders:
		body, err = c.GetOrder(ctx, apiKey, id)
	case domain.SourceCharges:
		body, err = c.GetCharge(ctx, apiKey, id)
	case domain.SourcePayables:
		body, err = c.GetPayable(ctx, apiKey, id)
	default:
		return "", fmt.Errorf("LiveStatus: unsupported source %q: %w", source, domain.ErrInvalidRequest)
	}
	if err != nil {
		return "", fmt.Errorf("LiveStatus: %w", err)
	}

	var sb statusBody
	if err := json.Unmarshal(body, &sb); err != nil {
		return "", fmt.Errorf("LiveStatus: %w", &domain.ProviderError{Kind: domain.ErrResponseUnparsable, Status: http.StatusOK, Details: err.Error()})
	}
	if len(sb.Charges) > 0 && sb.Charges[0].Status != "" {
		return sb.Charges[0].Status, nil
	}
	return sb.Status, nil
}

// fetch runs one logical request. Rate-limit and transient failures each get
// their own exponential retry budget; every other failure is returned at once.
func (c *Client) fetch(ctx context.Context, endpoint, apiKey string) (json.RawMessage, error) {
	rateLimited := newSchedule(c.cfg.RateLimitBaseDelay, c.cfg.RateLimitRetries)
	transient := newSchedule(c.cfg.RetryBaseDelay, c.cfg.Retries)

	for attempt := 1; ; attempt++ {
		body, err := c.do(ctx, endpoint, apiKey, attempt)
		if err == nil {
			if c.cache != nil {
				c.cache.Set(apiKey, endpoint, body)
			}
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch: %w", ctxErr)
		}

		var schedule backoff.BackOff
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			schedule = rateLimited
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			schedule = transient
		default:
			return nil, fmt.Errorf("fetch: %w", err)
		}

		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			return nil, fmt.Errorf("fetch: retries exhausted after %d attempts: %w", attempt, err)
		}

		c.log.Warn("provider request retrying",
			"endpoint", endpoint,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
	}
}

func (c *Client) do(ctx context.Context, endpoint, apiKey string, attempt int) (json.RawMessage, error) {
	payload, err := json.Marshal(proxyRequest{Endpoint: endpoint, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("do: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("do: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("provider request failed",
			"endpoint", endpoint,
			"attempt", attempt,
			"credential", credential.Mask(apiKey),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, &domain.ProviderError{Kind: domain.ErrUpstreamUnavailable, Details: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrUpstreamUnavailable, Status: resp.StatusCode, Details: err.Error()}
	}

	c.log.Info("provider response received",
		"endpoint", endpoint,
		"attempt", attempt,
		"status", resp.StatusCode,
		"credential", credential.Mask(apiKey),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(body) {
			return nil, &domain.ProviderError{Kind: domain.ErrResponseUnparsable, Status: resp.StatusCode, Details: "response body is not valid JSON"}
		}
		return json.RawMessage(body), nil
	}

	return nil, &domain.ProviderError{
		Kind:    Classify(resp.StatusCode),
		Status:  resp.StatusCode,
		Details: errorDetails(body),
	}
}

// Classify maps a proxy response status to the provider error taxonomy.
func Classify(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrCredentialRejected
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return domain.ErrRequestMalformed
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusBadGateway:
		return domain.ErrResponseUnparsable
	case status == http.StatusRequestTimeout || status >= 500:
		return domain.ErrUpstreamUnavailable
	default:
		return domain.ErrRequestMalformed
	}
}

func errorDetails(body []byte) string {
	var pe proxyErrorBody
	if err := json.Unmarshal(body, &pe); err == nil {
		if pe.Details != "" {
			return pe.Details
		}
		if pe.Error != "" {
			return pe.Error
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}

func newSchedule(base time.Duration, retries int) backoff.BackOff {
	if retries < 0 {
		retries = 0
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = base << uint(retries)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(retries))
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
