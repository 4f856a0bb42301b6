package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"trendsheet-go/pkg/logger"
)

// Policy is an immutable per-call-site retry configuration.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	RateLimitCooldown time.Duration
	CooldownJitter    time.Duration
	// InitialJitter desynchronizes concurrent cold-start callers; zero
	// disables the pre-attempt wait.
	InitialJitter time.Duration
}

// DefaultPolicy matches the fine-grained upstream leg: short backoff,
// long rate-limit cooldown.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		BaseDelay:         15 * time.Second,
		BackoffMultiplier: 2.0,
		RateLimitCooldown: 90 * time.Second,
		CooldownJitter:    30 * time.Second,
	}
}

// ExhaustedError wraps the last failure after the attempt budget ran out.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Controller runs fallible operations under a Policy. It is used on both
// legs of the system: coarse around client-to-server calls, fine around
// server-to-upstream calls.
type Controller struct {
	policy Policy
	sleep  func(ctx context.Context, d time.Duration) error
	log    *logger.Logger
}

// New creates a controller for the given policy.
func New(policy Policy) *Controller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffMultiplier <= 0 {
		policy.BackoffMultiplier = 2.0
	}
	return &Controller{
		policy: policy,
		sleep:  sleepCtx,
		log:    logger.GetLogger().WithField("component", "retry"),
	}
}

// Do runs op until it succeeds, a fatal error occurs, the context is
// cancelled, or the attempt budget is exhausted.
func (c *Controller) Do(ctx context.Context, op func() error) error {
	if c.policy.InitialJitter > 0 {
		jitter := time.Duration(rand.Int63n(int64(c.policy.InitialJitter)))
		c.log.WithField("wait", jitter.String()).Debug("Initial jitter before first attempt")
		if err := c.sleep(ctx, jitter); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		kind := Classify(err)
		attemptLog := c.log.WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": c.policy.MaxAttempts,
			"kind":         kind.String(),
		}).WithError(err)

		if kind == KindFatal {
			attemptLog.Warn("Non-retryable failure, giving up")
			return err
		}
		if attempt == c.policy.MaxAttempts {
			attemptLog.Warn("Attempt budget exhausted")
			break
		}

		wait := c.waitFor(kind, attempt)
		attemptLog.WithField("wait", wait.String()).Info("Attempt failed, backing off")
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: c.policy.MaxAttempts, Err: lastErr}
}

func (c *Controller) waitFor(kind Kind, attempt int) time.Duration {
	if kind == KindRateLimited {
		wait := c.policy.RateLimitCooldown
		if c.policy.CooldownJitter > 0 {
			wait += time.Duration(rand.Int63n(int64(c.policy.CooldownJitter)))
		}
		return wait
	}

	wait := float64(c.policy.BaseDelay)
	for i := 1; i < attempt; i++ {
		wait *= c.policy.BackoffMultiplier
	}
	// Up to 10% jitter so parallel callers spread out.
	if wait > 0 {
		wait += rand.Float64() * wait * 0.1
	}
	return time.Duration(wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
