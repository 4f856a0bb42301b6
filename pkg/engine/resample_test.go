package engine

import (
	"testing"
	"time"

	"trendsheet-go/pkg/trends"
)

func TestResample_WeeklyIsIdentity(t *testing.T) {
	s := seriesFor([]string{"a"}, map[string][]float64{"a": {10, 20, 30}}, 3)

	out, err := Resample(s, trends.FrequencyWeekly)
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if out != s {
		t.Error("Expected weekly resampling to return the series unchanged")
	}
}

func TestResample_DailyPreservesOriginalPoints(t *testing.T) {
	s := seriesFor([]string{"a"}, map[string][]float64{"a": {10, 24, 30}}, 3)

	out, err := Resample(s, trends.FrequencyDaily)
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	// 3 weekly points spanning 14 days reindex onto 15 calendar days.
	if len(out.Dates) != 15 {
		t.Fatalf("Expected 15 daily points, got %d", len(out.Dates))
	}

	// Values at the original weekly sample points survive exactly.
	byDate := make(map[string]float64)
	for i, d := range out.Dates {
		byDate[d.Format("2006-01-02")] = out.Values["a"][i]
	}
	for i, d := range s.Dates {
		if got := byDate[d.Format("2006-01-02")]; got != s.Values["a"][i] {
			t.Errorf("Expected %v at %s, got %v", s.Values["a"][i], d.Format("2006-01-02"), got)
		}
	}

	// Midpoint between 10 and 24 interpolates halfway.
	mid := s.Dates[0].AddDate(0, 0, 3)
	want := 10 + (24-10)*(3.0/7.0)
	if got := byDate[mid.Format("2006-01-02")]; got != want {
		t.Errorf("Expected interpolated value %v at midweek, got %v", want, got)
	}
}

func TestResample_DailyOnDailyInputIsIdentity(t *testing.T) {
	s := &trends.TrendSeries{
		Order:  []string{"a"},
		Values: map[string][]float64{"a": {1, 2, 3}},
	}
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.Dates = append(s.Dates, start.AddDate(0, 0, i))
	}

	out, err := Resample(s, trends.FrequencyDaily)
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if out != s {
		t.Error("Expected a daily series to pass through daily resampling unchanged")
	}
}

func TestResample_MonthlyAveragesAndRelabels(t *testing.T) {
	s := &trends.TrendSeries{
		Order:  []string{"a"},
		Values: map[string][]float64{"a": {10, 20, 40, 60}},
		Dates: []time.Time{
			time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	out, err := Resample(s, trends.FrequencyMonthly)
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if len(out.Dates) != 2 {
		t.Fatalf("Expected 2 monthly points, got %d", len(out.Dates))
	}
	if out.Dates[0].Day() != 1 || out.Dates[1].Day() != 1 {
		t.Errorf("Expected first-of-month labels, got %v", out.Dates)
	}
	if out.Values["a"][0] != 15 {
		t.Errorf("Expected January average 15, got %v", out.Values["a"][0])
	}
	if out.Values["a"][1] != 50 {
		t.Errorf("Expected February average 50, got %v", out.Values["a"][1])
	}
}
