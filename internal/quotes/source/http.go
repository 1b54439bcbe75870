package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/quotes"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/resilience"
)

const maxCollectionBytes = 32 << 20

// HTTP fetches a JSON quote collection from a remote URL. Transient failures
// are retried with backoff; repeated failures trip a circuit breaker so a
// dead upstream is not hammered on every reload.
type HTTP struct {
	url     string
	client  *http.Client
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewHTTP builds an HTTP source from cfg. onBreakerChange may be nil.
func NewHTTP(cfg config.SourceConfig, onBreakerChange func(name string, from, to resilience.State)) *HTTP {
	return &HTTP{
		url:     cfg.URL,
		client:  &http.Client{},
		timeout: cfg.FetchTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay,
		},
		breaker: resilience.NewCircuitBreaker("quote-source-http", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerErrors,
			ResetTimeout:     cfg.BreakerReset,
			OnStateChange:    onBreakerChange,
		}),
		logger: slog.Default().With("component", "http-source", "url", cfg.URL),
	}
}

func (h *HTTP) Name() string { return "http:" + h.url }

// BreakerState exposes the circuit state for status reporting.
func (h *HTTP) BreakerState() resilience.State { return h.breaker.GetState() }

func (h *HTTP) Fetch(ctx context.Context) ([]quotes.RawRecord, error) {
	var records []quotes.RawRecord
	err := resilience.Retry(ctx, "fetch quotes", h.retry, func() error {
		return h.breaker.Execute(func() error {
			var attempt []quotes.RawRecord
			err := resilience.WithTimeout(ctx, h.timeout, "fetch quotes", func(ctx context.Context) error {
				recs, err := h.fetchOnce(ctx)
				attempt = recs
				return err
			})
			if err == nil {
				records = attempt
			}
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}
	h.logger.Debug("fetched quote collection", "records", len(records))
	return records, nil
}

func (h *HTTP) fetchOnce(ctx context.Context) ([]quotes.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return nil, resilience.Permanent(fmt.Errorf("upstream returned %d", resp.StatusCode))
	}

	recs, err := DecodeCollection(io.LimitReader(resp.Body, maxCollectionBytes))
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	return recs, nil
}
