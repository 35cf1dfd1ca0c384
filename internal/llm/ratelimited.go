package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/common"
)

// RateLimitedClient wraps a Provider with pacing and bounded retries.
// Throttling responses back off exponentially up to a cap; malformed answers
// retry a few times with linear backoff. Exhausting either budget surfaces
// the typed sentinel so callers can tell "retry later" from "bad input".
type RateLimitedClient struct {
	provider     Provider
	logger       *slog.Logger
	sleep        func(context.Context, time.Duration) error
	jitter       func() time.Duration
	lastCall     time.Time
	minInterval  time.Duration
	baseDelay    time.Duration
	maxThrottled int
	maxMalformed int
	mu           sync.Mutex
}

// NewRateLimitedClient creates a rate-limited client around a provider.
func NewRateLimitedClient(provider Provider, cfg Config, logger *slog.Logger) *RateLimitedClient {
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 1200 * time.Millisecond
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	maxThrottled := cfg.MaxThrottled
	if maxThrottled <= 0 {
		maxThrottled = 4
	}
	maxMalformed := cfg.MaxMalformed
	if maxMalformed <= 0 {
		maxMalformed = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RateLimitedClient{
		provider:     provider,
		logger:       logger,
		minInterval:  minInterval,
		baseDelay:    baseDelay,
		maxThrottled: maxThrottled,
		maxMalformed: maxMalformed,
		sleep:        sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
		},
	}
}

// Call sends one prompt, enforcing the minimum inter-call interval and the
// retry budgets. It never returns partial data as success.
func (c *RateLimitedClient) Call(ctx context.Context, prompt string) (json.RawMessage, error) {
	throttled := 0
	malformed := 0

	for {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		raw, err := c.provider.Complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}

		switch {
		case errors.Is(err, common.ErrRateLimited):
			throttled++
			if throttled > c.maxThrottled {
				return nil, fmt.Errorf("%w: retry budget exhausted after %d attempts", common.ErrRateLimited, throttled)
			}
			delay := c.baseDelay*(1<<uint(throttled-1)) + c.jitter()
			c.logger.Warn("extraction service throttled, backing off",
				"attempt", throttled,
				"max_attempts", c.maxThrottled,
				"delay", delay)
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}

		case errors.Is(err, common.ErrMalformedResponse):
			malformed++
			if malformed > c.maxMalformed {
				return nil, fmt.Errorf("%w: giving up after %d attempts", common.ErrMalformedResponse, malformed)
			}
			delay := c.baseDelay * time.Duration(malformed)
			c.logger.Warn("malformed extraction response, retrying",
				"attempt", malformed,
				"max_attempts", c.maxMalformed,
				"delay", delay,
				"error", err)
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}

		default:
			return nil, err
		}
	}
}

// pace sleeps the remainder of the minimum inter-call interval. The last-call
// timestamp is taken before the network attempt so failures count too.
func (c *RateLimitedClient) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Duration(0)
	if !c.lastCall.IsZero() {
		if elapsed := time.Since(c.lastCall); elapsed < c.minInterval {
			wait = c.minInterval - elapsed
		}
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		return c.sleep(ctx, wait)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
