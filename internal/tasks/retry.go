package tasks

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/sources"
)

const (
	// maxBackoff caps any single exponential backoff sleep.
	maxBackoff = 10 * time.Second
	// maxAdaptiveDelay caps the base delay growth caused by rate limiting.
	maxAdaptiveDelay = 5 * time.Second
	// rateLimitGrowth multiplies the base delay on every 429.
	rateLimitGrowth = 1.5
)

// Retrier wraps source calls with exponential backoff, jitter and adaptive
// slowdown on rate limiting.
//
// The base delay is shared, mutable state: a 429 from any source grows it
// for every later call in the run. Each run should construct its own
// Retrier.
type Retrier struct {
	mu         sync.Mutex
	delay      time.Duration
	maxRetries int

	jitter func() time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a controller with the given base delay and attempt
// ceiling.
func NewRetrier(delay time.Duration, maxRetries int) *Retrier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Retrier{
		delay:      delay,
		maxRetries: maxRetries,
		jitter:     defaultJitter,
		sleep:      shared.SleepContext,
	}
}

// defaultJitter draws uniformly from [100ms, 500ms].
func defaultJitter() time.Duration {
	return time.Duration(100+rand.IntN(401)) * time.Millisecond
}

// Delay returns the current adaptive base delay.
func (r *Retrier) Delay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delay
}

// slowDown grows the shared base delay after a 429. The growth persists for
// the rest of the run.
func (r *Retrier) slowDown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	grown := time.Duration(float64(r.delay) * rateLimitGrowth)
	if grown > maxAdaptiveDelay {
		grown = maxAdaptiveDelay
	}
	r.delay = grown
}

// Do runs fn until it yields a non-empty result or the attempt ceiling is
// reached. Attempt 0 runs immediately; attempt k first sleeps
// min(delay*2^k + jitter, 10s). Source errors never escape: rate limiting
// grows the shared delay and honors Retry-After, other failures sleep
// delay*(attempt+1) before the next try. Exhaustion returns the empty
// string.
func (r *Retrier) Do(ctx context.Context, fn func() (string, error)) string {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.Delay()*(1<<attempt) + r.jitter()
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			if r.sleep(ctx, backoff) != nil {
				return ""
			}
		}

		result, err := fn()
		if err != nil {
			if retryAfter, limited := sources.RateLimited(err); limited {
				r.slowDown()
				wait := parseRetryAfter(retryAfter)
				if wait <= 0 {
					wait = 2 * r.Delay()
				}
				if r.sleep(ctx, wait) != nil {
					return ""
				}
			} else if attempt < r.maxRetries-1 {
				if r.sleep(ctx, r.Delay()*time.Duration(attempt+1)) != nil {
					return ""
				}
			}
			continue
		}

		if result != "" {
			return result
		}
	}

	return ""
}

// parseRetryAfter converts a Retry-After header value in seconds; zero when
// absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
