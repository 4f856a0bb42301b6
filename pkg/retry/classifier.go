package retry

import (
	"errors"
	"strings"

	"trendsheet-go/pkg/trends"
)

// Kind is the retry-relevant classification of a failure.
type Kind int

const (
	// KindFatal errors are propagated immediately, no further attempts.
	KindFatal Kind = iota
	// KindRetryable errors wait out an exponential backoff before retry.
	KindRetryable
	// KindRateLimited errors wait out the long rate-limit cooldown.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRetryable:
		return "retryable"
	case KindRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// Classify maps an error onto its retry handling. Typed domain errors are
// checked first; the string fallback covers raw HTTP-status errors coming
// off the transport.
func Classify(err error) Kind {
	if err == nil {
		return KindRetryable
	}

	var rateLimit *trends.RateLimitError
	if errors.As(err, &rateLimit) {
		return KindRateLimited
	}

	var validation *trends.ValidationError
	var scaling *trends.ScalingError
	var alignment *trends.AlignmentError
	if errors.As(err, &validation) || errors.As(err, &scaling) || errors.As(err, &alignment) {
		return KindFatal
	}

	var noData *trends.NoDataError
	var upstream *trends.UpstreamError
	if errors.As(err, &noData) || errors.As(err, &upstream) {
		return KindRetryable
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return KindRateLimited
	}

	// Auth and client errors will not improve on retry.
	if strings.Contains(errStr, "400") || strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") || strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") {
		return KindFatal
	}

	// Network errors, timeouts and 5xx default to retryable.
	return KindRetryable
}
