package trends

import (
	"fmt"
	"time"
)

// Frequency is the output granularity of a trend series. Weekly is the
// provider's native resolution; daily and monthly are derived from it.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency normalizes a user-supplied frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), nil
	}
	return "", &ValidationError{Field: "frequency", Reason: fmt.Sprintf("must be daily, weekly or monthly, got %q", s)}
}

// Timeframe is the inclusive date range of a query.
type Timeframe struct {
	Start time.Time
	End   time.Time
}

const dateLayout = "2006-01-02"

// String renders the provider wire format "YYYY-MM-DD YYYY-MM-DD".
func (tf Timeframe) String() string {
	return tf.Start.Format(dateLayout) + " " + tf.End.Format(dateLayout)
}

// Days returns the span length in calendar days.
func (tf Timeframe) Days() int {
	return int(tf.End.Sub(tf.Start).Hours() / 24)
}

// ParseTimeframe parses the wire format back into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	var startStr, endStr string
	if _, err := fmt.Sscanf(s, "%s %s", &startStr, &endStr); err != nil {
		return Timeframe{}, &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("expected \"YYYY-MM-DD YYYY-MM-DD\", got %q", s)}
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return Timeframe{}, &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("invalid start date %q", startStr)}
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return Timeframe{}, &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("invalid end date %q", endStr)}
	}
	return Timeframe{Start: start, End: end}, nil
}

// TrendQuery is a validated request for keyword popularity data.
type TrendQuery struct {
	Keywords  []string
	Timeframe Timeframe
	Frequency Frequency
	Geo       string
}

// BaseKeyword is the first keyword, used as the scaling pivot and as the
// reference column for incremental expansion.
func (q TrendQuery) BaseKeyword() string {
	if len(q.Keywords) == 0 {
		return ""
	}
	return q.Keywords[0]
}

// TrendSeries is a set of equally indexed keyword score sequences.
// Order preserves the request's column order; Values holds one score per
// date for each keyword.
type TrendSeries struct {
	Dates  []time.Time
	Order  []string
	Values map[string][]float64
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clone returns a deep copy of the series.
func (s *TrendSeries) Clone() *TrendSeries {
	out := &TrendSeries{
		Dates:  append([]time.Time(nil), s.Dates...),
		Order:  append([]string(nil), s.Order...),
		Values: make(map[string][]float64, len(s.Values)),
	}
	for k, v := range s.Values {
		out.Values[k] = append([]float64(nil), v...)
	}
	return out
}

// Check verifies the structural invariant: every keyword sequence has the
// same length as the date index.
func (s *TrendSeries) Check() error {
	for kw, vals := range s.Values {
		if len(vals) != len(s.Dates) {
			return fmt.Errorf("series %q has %d values for %d dates", kw, len(vals), len(s.Dates))
		}
	}
	return nil
}
