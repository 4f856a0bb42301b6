package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendsheet-go/pkg/trends"
)

func newTestController(policy Policy) (*Controller, *[]time.Duration) {
	c := New(policy)
	waits := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return c, waits
}

func TestDo_SuccessAfterFailures(t *testing.T) {
	c, waits := newTestController(Policy{
		MaxAttempts:       3,
		BaseDelay:         10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	attempts := 0
	err := c.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary upstream hiccup")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if len(*waits) != 2 {
		t.Errorf("Expected exactly 2 inter-attempt waits, got %d", len(*waits))
	}
}

func TestDo_Exhaustion(t *testing.T) {
	c, _ := newTestController(Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	attempts := 0
	err := c.Do(context.Background(), func() error {
		attempts++
		return errors.New("persistent failure")
	})

	if attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", attempts)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Expected 3 recorded attempts, got %d", exhausted.Attempts)
	}
	if exhausted.Unwrap() == nil {
		t.Error("Expected exhausted error to wrap the last failure")
	}
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	c, waits := newTestController(Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	attempts := 0
	err := c.Do(context.Background(), func() error {
		attempts++
		return &trends.ScalingError{Pivot: "base", Reason: "pivot mean is zero"}
	})

	if attempts != 1 {
		t.Errorf("Expected 1 attempt for fatal error, got %d", attempts)
	}
	if len(*waits) != 0 {
		t.Errorf("Expected no waits for fatal error, got %d", len(*waits))
	}
	var scaling *trends.ScalingError
	if !errors.As(err, &scaling) {
		t.Errorf("Expected the scaling error back unchanged, got %v", err)
	}
}

func TestDo_RateLimitUsesCooldown(t *testing.T) {
	c, waits := newTestController(Policy{
		MaxAttempts:       2,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
		RateLimitCooldown: time.Minute,
	})

	attempts := 0
	_ = c.Do(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return &trends.RateLimitError{}
		}
		return nil
	})

	if len(*waits) != 1 {
		t.Fatalf("Expected 1 wait, got %d", len(*waits))
	}
	if (*waits)[0] < time.Minute {
		t.Errorf("Expected rate limit cooldown of at least 1m, got %s", (*waits)[0])
	}
}

func TestDo_BackoffGrows(t *testing.T) {
	c, waits := newTestController(Policy{
		MaxAttempts:       3,
		BaseDelay:         100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	_ = c.Do(context.Background(), func() error {
		return errors.New("500 server error")
	})

	if len(*waits) != 2 {
		t.Fatalf("Expected 2 waits, got %d", len(*waits))
	}
	// Second wait is base*multiplier plus up to 10% jitter.
	if (*waits)[1] < 200*time.Millisecond {
		t.Errorf("Expected second wait >= 200ms, got %s", (*waits)[1])
	}
	if (*waits)[0] >= (*waits)[1] {
		t.Errorf("Expected backoff to grow: first %s, second %s", (*waits)[0], (*waits)[1])
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	c := New(Policy{
		MaxAttempts:       3,
		BaseDelay:         50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Do(ctx, func() error {
		return errors.New("failure while cancelling")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit typed", &trends.RateLimitError{}, KindRateLimited},
		{"rate limit string", errors.New("API returned status 429: slow down"), KindRateLimited},
		{"validation", &trends.ValidationError{Field: "keywords", Reason: "too many"}, KindFatal},
		{"scaling", &trends.ScalingError{Pivot: "a"}, KindFatal},
		{"alignment", &trends.AlignmentError{Reason: "length"}, KindFatal},
		{"no data", &trends.NoDataError{}, KindRetryable},
		{"upstream", &trends.UpstreamError{StatusCode: 502}, KindRetryable},
		{"auth string", errors.New("401 unauthorized"), KindFatal},
		{"unknown", errors.New("connection reset"), KindRetryable},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
