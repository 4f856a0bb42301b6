package trends

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NoDataError means the upstream returned an empty result set.
type NoDataError struct {
	Keywords []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no trend data returned for keywords [%s]", strings.Join(e.Keywords, ", "))
}

// RateLimitError is the upstream's rate-limit signal. RetryAfter is zero
// when the upstream gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by upstream, retry after %s", e.RetryAfter)
	}
	return "rate limited by upstream"
}

// ScalingError means the pivot rescaling step could not be computed.
// Structural, never retried.
type ScalingError struct {
	Pivot  string
	Reason string
}

func (e *ScalingError) Error() string {
	return fmt.Sprintf("scaling failed on pivot %q: %s", e.Pivot, e.Reason)
}

// AlignmentError means the two group queries came back with different
// date axes. Structural, never retried.
type AlignmentError struct {
	Reason string
}

func (e *AlignmentError) Error() string {
	return "group date axes do not align: " + e.Reason
}

// UpstreamError wraps any other upstream failure.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
