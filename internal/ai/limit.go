package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Limits bounds how a Client talks to its upstream.
type Limits struct {
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond  float64
	Burst          int
	MaxRetries     int
	InitialBackoff time.Duration
}

type limitedClient struct {
	next    Client
	limiter *rate.Limiter
	limits  Limits
}

// WithLimits wraps c with a token-bucket limiter and bounded exponential
// retry for retryable upstream failures.
func WithLimits(c Client, l Limits) Client {
	limit := rate.Inf
	if l.RatePerSecond > 0 {
		limit = rate.Limit(l.RatePerSecond)
	}
	if l.Burst <= 0 {
		l.Burst = 1
	}
	if l.InitialBackoff <= 0 {
		l.InitialBackoff = 500 * time.Millisecond
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 0
	}
	return &limitedClient{
		next:    c,
		limiter: rate.NewLimiter(limit, l.Burst),
		limits:  l,
	}
}

func (c *limitedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := c.do(ctx, "embed", func() error {
		v, err := c.next.Embed(ctx, texts)
		out = v
		return err
	})
	return out, err
}

func (c *limitedClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.do(ctx, "generate", func() error {
		s, err := c.next.Generate(ctx, prompt)
		out = s
		return err
	})
	return out, err
}

func (c *limitedClient) Dim() int { return c.next.Dim() }

func (c *limitedClient) do(ctx context.Context, op string, call func() error) error {
	attempt := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.limits.InitialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.limits.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := call()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retryable upstream failure")
		return err
	}, policy)
}

// Retryable reports whether err is a transient upstream status (429 or 5xx).
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return retryableStatus(ge.Code)
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return retryableStatus(ae.StatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
