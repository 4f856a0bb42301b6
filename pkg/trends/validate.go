package trends

import (
	"fmt"
	"unicode/utf8"
)

// Frequency-specific span limits. Daily queries past ~9 months come back
// from the provider at weekly resolution, so they are rejected up front.
const (
	MaxDailySpanDays   = 270
	MinWeeklySpanDays  = 7
	MinMonthlySpanDays = 30

	MaxKeywordLength = 100
)

// ValidateQuery checks a TrendQuery against the request limits. maxKeywords
// is the API-level cap on simultaneous terms (distinct from the engine's
// per-upstream-query width limit).
func ValidateQuery(q TrendQuery, maxKeywords int) error {
	if len(q.Keywords) == 0 {
		return &ValidationError{Field: "keywords", Reason: "at least one keyword is required"}
	}
	if len(q.Keywords) > maxKeywords {
		return &ValidationError{Field: "keywords", Reason: fmt.Sprintf("at most %d keywords allowed, got %d", maxKeywords, len(q.Keywords))}
	}

	seen := make(map[string]bool, len(q.Keywords))
	for _, kw := range q.Keywords {
		if kw == "" {
			return &ValidationError{Field: "keywords", Reason: "keywords must be non-empty"}
		}
		if utf8.RuneCountInString(kw) > MaxKeywordLength {
			return &ValidationError{Field: "keywords", Reason: fmt.Sprintf("keyword %q exceeds %d characters", kw, MaxKeywordLength)}
		}
		if seen[kw] {
			return &ValidationError{Field: "keywords", Reason: fmt.Sprintf("duplicate keyword %q", kw)}
		}
		seen[kw] = true
	}

	if !q.Timeframe.End.After(q.Timeframe.Start) {
		return &ValidationError{Field: "timeframe", Reason: "end date must be after start date"}
	}

	days := q.Timeframe.Days()
	switch q.Frequency {
	case FrequencyDaily:
		if days > MaxDailySpanDays {
			return &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("daily frequency supports at most %d days, got %d", MaxDailySpanDays, days)}
		}
	case FrequencyWeekly:
		if days < MinWeeklySpanDays {
			return &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("weekly frequency needs at least %d days, got %d", MinWeeklySpanDays, days)}
		}
	case FrequencyMonthly:
		if days < MinMonthlySpanDays {
			return &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("monthly frequency needs at least %d days, got %d", MinMonthlySpanDays, days)}
		}
	default:
		return &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", q.Frequency)}
	}

	return nil
}
