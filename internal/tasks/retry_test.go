package tasks

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mcunha/tunelink/internal/sources"
)

// instrument replaces the retrier's sleep and jitter with deterministic
// recorders and returns the recorded sleep durations.
func instrument(r *Retrier, jitter time.Duration) *[]time.Duration {
	slept := &[]time.Duration{}
	r.jitter = func() time.Duration { return jitter }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return slept
}

func TestRetrierDo(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the first non-empty result", func(t *testing.T) {
		r := NewRetrier(time.Second, 3)
		slept := instrument(r, 0)

		got := r.Do(ctx, func() (string, error) { return "hit", nil })
		if got != "hit" {
			t.Errorf("Do() = %q, want %q", got, "hit")
		}
		if len(*slept) != 0 {
			t.Errorf("slept %v before first attempt", *slept)
		}
	})

	t.Run("backs off exponentially between attempts", func(t *testing.T) {
		r := NewRetrier(time.Second, 3)
		slept := instrument(r, 100*time.Millisecond)

		calls := 0
		got := r.Do(ctx, func() (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection reset")
			}
			return "hit", nil
		})
		if got != "hit" {
			t.Errorf("Do() = %q, want %q", got, "hit")
		}
		if calls != 3 {
			t.Fatalf("fn called %d times, want 3", calls)
		}

		// failure on attempt 0 sleeps delay*1, attempt 1 starts with
		// backoff delay*2+jitter, fails and sleeps delay*2, attempt 2
		// starts with delay*4+jitter.
		want := []time.Duration{
			time.Second,
			2*time.Second + 100*time.Millisecond,
			2 * time.Second,
			4*time.Second + 100*time.Millisecond,
		}
		if len(*slept) != len(want) {
			t.Fatalf("slept %v, want %v", *slept, want)
		}
		for i, d := range want {
			if (*slept)[i] != d {
				t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], d)
			}
		}
	})

	t.Run("caps any single backoff at ten seconds", func(t *testing.T) {
		r := NewRetrier(4*time.Second, 3)
		slept := instrument(r, 500*time.Millisecond)

		r.Do(ctx, func() (string, error) { return "", nil })

		// attempt 1 backoff would be 8.5s, attempt 2 would be 16.5s.
		if len(*slept) != 2 {
			t.Fatalf("slept %v, want 2 backoffs", *slept)
		}
		if (*slept)[1] != 10*time.Second {
			t.Errorf("second backoff = %v, want cap of 10s", (*slept)[1])
		}
	})

	t.Run("rate limiting grows the shared delay", func(t *testing.T) {
		r := NewRetrier(2*time.Second, 2)
		slept := instrument(r, 0)

		limited := &sources.StatusError{Code: http.StatusTooManyRequests, RetryAfter: "5"}
		got := r.Do(ctx, func() (string, error) { return "", limited })
		if got != "" {
			t.Errorf("Do() = %q, want empty on exhaustion", got)
		}

		if r.Delay() != 4500*time.Millisecond {
			t.Errorf("Delay() = %v, want 4.5s after two slowdowns", r.Delay())
		}
		// attempt 0 honors Retry-After, attempt 1 backs off from the grown
		// 3s base, then honors Retry-After again.
		if len(*slept) != 3 {
			t.Fatalf("slept %v, want 3 sleeps", *slept)
		}
		if (*slept)[0] != 5*time.Second {
			t.Errorf("sleep[0] = %v, want Retry-After of 5s", (*slept)[0])
		}
		if (*slept)[1] != 6*time.Second {
			t.Errorf("sleep[1] = %v, want 3s*2 backoff", (*slept)[1])
		}
	})

	t.Run("rate limiting without a header waits twice the delay", func(t *testing.T) {
		r := NewRetrier(time.Second, 1)
		slept := instrument(r, 0)

		r.Do(ctx, func() (string, error) {
			return "", &sources.StatusError{Code: http.StatusTooManyRequests}
		})

		if r.Delay() != 1500*time.Millisecond {
			t.Errorf("Delay() = %v, want 1.5s", r.Delay())
		}
		if len(*slept) != 1 || (*slept)[0] != 3*time.Second {
			t.Errorf("slept %v, want one 3s wait", *slept)
		}
	})

	t.Run("adaptive delay never grows past five seconds", func(t *testing.T) {
		r := NewRetrier(time.Second, 10)
		instrument(r, 0)

		r.Do(ctx, func() (string, error) {
			return "", &sources.StatusError{Code: http.StatusTooManyRequests}
		})

		if r.Delay() != maxAdaptiveDelay {
			t.Errorf("Delay() = %v, want cap of %v", r.Delay(), maxAdaptiveDelay)
		}
	})

	t.Run("exhaustion returns the empty string", func(t *testing.T) {
		r := NewRetrier(time.Second, 3)
		instrument(r, 0)

		calls := 0
		got := r.Do(ctx, func() (string, error) {
			calls++
			return "", nil
		})
		if got != "" {
			t.Errorf("Do() = %q, want empty", got)
		}
		if calls != 3 {
			t.Errorf("fn called %d times, want all 3 attempts", calls)
		}
	})

	t.Run("stops when the context is cancelled mid-sleep", func(t *testing.T) {
		r := NewRetrier(time.Second, 5)
		r.jitter = func() time.Duration { return 0 }
		r.sleep = func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}

		calls := 0
		got := r.Do(ctx, func() (string, error) {
			calls++
			return "", errors.New("unreachable host")
		})
		if got != "" {
			t.Errorf("Do() = %q, want empty", got)
		}
		if calls != 1 {
			t.Errorf("fn called %d times after cancellation, want 1", calls)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"5", 5 * time.Second},
		{"0", 0},
		{"", 0},
		{"soon", 0},
		{"-3", 0},
	}

	for _, tc := range tests {
		if got := parseRetryAfter(tc.value); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
