package engine

import (
	"time"

	"trendsheet-go/pkg/trends"
)

// Resample converts a series to the requested frequency. Weekly is the
// provider's native resolution and passes through unchanged; a series
// already at the target spacing likewise comes back identical.
func Resample(s *trends.TrendSeries, freq trends.Frequency) (*trends.TrendSeries, error) {
	switch freq {
	case trends.FrequencyDaily:
		return resampleDaily(s), nil
	case trends.FrequencyMonthly:
		return resampleMonthly(s), nil
	default:
		return s, nil
	}
}

// resampleDaily reindexes onto every calendar day between the first and
// last observed date, linearly interpolating between known points. Values
// at the original sample points are preserved exactly.
func resampleDaily(s *trends.TrendSeries) *trends.TrendSeries {
	if len(s.Dates) < 2 {
		return s
	}

	first, last := s.Dates[0], s.Dates[len(s.Dates)-1]
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	if len(days) == len(s.Dates) {
		return s
	}

	out := &trends.TrendSeries{
		Dates:  days,
		Order:  append([]string(nil), s.Order...),
		Values: make(map[string][]float64, len(s.Values)),
	}

	for _, kw := range s.Order {
		known := s.Values[kw]
		interp := make([]float64, len(days))
		seg := 0
		for i, d := range days {
			for seg < len(s.Dates)-2 && d.After(s.Dates[seg+1]) {
				seg++
			}
			left, right := s.Dates[seg], s.Dates[seg+1]
			switch {
			case d.Equal(left):
				interp[i] = known[seg]
			case d.Equal(right):
				interp[i] = known[seg+1]
			default:
				span := right.Sub(left).Hours()
				frac := d.Sub(left).Hours() / span
				interp[i] = known[seg] + (known[seg+1]-known[seg])*frac
			}
		}
		out.Values[kw] = interp
	}
	return out
}

// resampleMonthly averages observations per calendar month and relabels
// each bucket to the first of its month.
func resampleMonthly(s *trends.TrendSeries) *trends.TrendSeries {
	if len(s.Dates) == 0 {
		return s
	}

	type bucket struct {
		label time.Time
		sums  map[string]float64
		count int
	}

	var months []*bucket
	index := make(map[string]*bucket)
	for i, d := range s.Dates {
		key := d.Format("2006-01")
		b, ok := index[key]
		if !ok {
			b = &bucket{
				label: time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()),
				sums:  make(map[string]float64, len(s.Order)),
			}
			index[key] = b
			months = append(months, b)
		}
		for _, kw := range s.Order {
			b.sums[kw] += s.Values[kw][i]
		}
		b.count++
	}

	out := &trends.TrendSeries{
		Order:  append([]string(nil), s.Order...),
		Values: make(map[string][]float64, len(s.Values)),
	}
	for _, b := range months {
		out.Dates = append(out.Dates, b.label)
		for _, kw := range s.Order {
			out.Values[kw] = append(out.Values[kw], b.sums[kw]/float64(b.count))
		}
	}
	return out
}
