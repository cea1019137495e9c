package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrCheckUnavailable indicates the AI content check could not produce a
// verdict (unreachable, timed out, or answered garbage). The submission
// pipeline must surface this as a dependency failure; it must never be
// softened into a default PASS.
var ErrCheckUnavailable = errors.New("ai content check unavailable")

// Checker produces a moderation verdict for user-submitted text.
type Checker interface {
	Check(ctx context.Context, req CheckRequest) (*Verdict, error)
}

// ClientOptions configures the HTTP checker.
type ClientOptions struct {
	// BaseURL is the companion service root; the check endpoint is
	// BaseURL + "/moderation/check".
	BaseURL string
	// Timeout bounds a single check attempt end to end.
	Timeout time.Duration
	// MaxRetries caps retry attempts on transient transport errors.
	// HTTP 4xx responses are never retried.
	MaxRetries uint64
	// RPS and Burst shape the outbound token bucket that protects the
	// companion service (and the bill) from submission storms.
	RPS   float64
	Burst int
}

// Client calls the AI companion's content-check endpoint over HTTP.
//
// The call is the only blocking external dependency on the submission path,
// so it carries a bounded timeout, an outbound token bucket, and a short
// exponential-backoff retry for transient transport errors.
type Client struct {
	http    *http.Client
	baseURL string
	retries uint64
	bucket  *rate.Limiter
	log     zerolog.Logger
}

// NewClient constructs an HTTP checker. Zero-valued options get safe
// defaults (5s timeout, 2 retries, 10 rps / burst 20).
func NewClient(opt ClientOptions, log zerolog.Logger) *Client {
	if opt.Timeout <= 0 {
		opt.Timeout = 5 * time.Second
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.RPS <= 0 {
		opt.RPS = 10
	}
	if opt.Burst <= 0 {
		opt.Burst = 20
	}
	return &Client{
		http:    &http.Client{Timeout: opt.Timeout},
		baseURL: opt.BaseURL,
		retries: opt.MaxRetries,
		bucket:  rate.NewLimiter(rate.Limit(opt.RPS), opt.Burst),
		log:     log,
	}
}

// Check submits text for moderation and returns the verdict. Any failure to
// obtain a well-formed verdict is reported as ErrCheckUnavailable (wrapped
// with the cause) so callers can distinguish dependency failure from a
// negative verdict.
func (c *Client) Check(ctx context.Context, req CheckRequest) (*Verdict, error) {
	if err := c.bucket.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrCheckUnavailable, err)
	}

	var verdict *Verdict
	attempt := func() error {
		v, err := c.doOnce(ctx, payload)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		c.log.Error().Err(err).Msg("ai content check failed")
		if errors.Is(err, ErrCheckUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}
	return verdict, nil
}

// doOnce performs a single HTTP attempt. Permanent failures (malformed
// responses, client errors) abort the retry loop.
func (c *Client) doOnce(ctx context.Context, payload []byte) (*Verdict, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/moderation/check", bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport error: retryable.
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("upstream rejected check: %d %s", resp.StatusCode, body))
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode verdict: %w", err))
	}
	switch v.Decision {
	case DecisionPass, DecisionFlagged, DecisionBlocked, DecisionSkipped:
	default:
		return nil, backoff.Permanent(fmt.Errorf("unknown decision %q", v.Decision))
	}
	return &v, nil
}
