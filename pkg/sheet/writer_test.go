package sheet

import (
	"errors"
	"testing"
	"time"

	"trendsheet-go/pkg/trends"
)

func testSeries(values map[string][]float64, order []string, n int) *trends.TrendSeries {
	s := &trends.TrendSeries{
		Order:  order,
		Values: make(map[string][]float64),
	}
	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Dates = append(s.Dates, start.AddDate(0, 0, 7*i))
	}
	for kw, vals := range values {
		s.Values[kw] = append([]float64(nil), vals...)
	}
	return s
}

func TestWriteNew(t *testing.T) {
	ws := NewMemoryWorksheet()
	store := NewStateStore(ws)
	writer := NewWriter(ws, store)

	series := testSeries(map[string][]float64{
		"base":  {40, 50, 60},
		"other": {10, 20, 30},
	}, []string{"base", "other"}, 3)

	info, err := writer.WriteNew(series, "base")
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if info.LastColumn != 3 {
		t.Errorf("Expected last column 3 (date + 2 keywords), got %d", info.LastColumn)
	}
	if info.BaseAverage != 50 {
		t.Errorf("Expected base average 50, got %v", info.BaseAverage)
	}
	if info.DataRows != 3 {
		t.Errorf("Expected 3 data rows, got %d", info.DataRows)
	}

	if got := ws.Get(HeaderRow, 1); got != "date" {
		t.Errorf("Expected date header, got %q", got)
	}
	if got := ws.Get(HeaderRow, 2); got != "base" {
		t.Errorf("Expected base header, got %q", got)
	}
	if got := ws.Get(HeaderRow+1, 1); got != "2025-01-05" {
		t.Errorf("Expected first date cell 2025-01-05, got %q", got)
	}
	if got := ws.Get(HeaderRow+2, 3); got != "20" {
		t.Errorf("Expected second other value 20, got %q", got)
	}

	// The descriptor must be readable back, written as the final step.
	stored, err := store.LoadDataInfo()
	if err != nil || stored == nil {
		t.Fatalf("Expected stored data info, got %v, %v", stored, err)
	}
	if *stored != info {
		t.Errorf("Expected stored info %+v, got %+v", info, *stored)
	}
}

func TestWriteNew_ClearsPreviousTable(t *testing.T) {
	ws := NewMemoryWorksheet()
	store := NewStateStore(ws)
	writer := NewWriter(ws, store)

	// Leftover wide table from an earlier run.
	ws.Set(HeaderRow, 9, "stale")
	ws.Set(HeaderRow+5, 2, "stale")

	series := testSeries(map[string][]float64{"base": {10, 20}}, []string{"base"}, 2)
	if _, err := writer.WriteNew(series, "base"); err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if got := ws.Get(HeaderRow, 9); got != "" {
		t.Errorf("Expected stale header cleared, got %q", got)
	}
	if got := ws.Get(HeaderRow+5, 2); got != "" {
		t.Errorf("Expected stale row cleared, got %q", got)
	}
}

func TestWriteExpansion_RenormalizesAgainstBaseAverage(t *testing.T) {
	ws := NewMemoryWorksheet()
	store := NewStateStore(ws)
	writer := NewWriter(ws, store)

	// Existing table averaged 50 on base; fresh fetch averages 25, so
	// every fresh non-base value doubles.
	existing := DataInfo{LastColumn: 3, BaseAverage: 50, DataRows: 3}

	fresh := testSeries(map[string][]float64{
		"base": {20, 25, 30},
		"new1": {10, 15, 20},
	}, []string{"base", "new1"}, 3)

	info, err := writer.WriteExpansion(fresh, existing, "base")
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if info.LastColumn != 4 {
		t.Errorf("Expected last column to advance to 4, got %d", info.LastColumn)
	}
	if info.BaseAverage != 50 {
		t.Errorf("Expected base average untouched at 50, got %v", info.BaseAverage)
	}
	if info.DataRows != 3 {
		t.Errorf("Expected data rows untouched at 3, got %d", info.DataRows)
	}

	if got := ws.Get(HeaderRow, 4); got != "new1" {
		t.Errorf("Expected new column header at column 4, got %q", got)
	}
	wantScaled := []string{"20", "30", "40"}
	for i, want := range wantScaled {
		if got := ws.Get(HeaderRow+1+i, 4); got != want {
			t.Errorf("Expected doubled value %s at row %d, got %q", want, HeaderRow+1+i, got)
		}
	}

	// Existing columns are never touched by an expansion.
	if got := ws.Get(HeaderRow, 2); got != "" {
		t.Errorf("Expected existing columns untouched, found %q", got)
	}
}

func TestWriteExpansion_MissingBaseKeywordFails(t *testing.T) {
	ws := NewMemoryWorksheet()
	writer := NewWriter(ws, NewStateStore(ws))

	fresh := testSeries(map[string][]float64{"new1": {1, 2, 3}}, []string{"new1"}, 3)

	_, err := writer.WriteExpansion(fresh, DataInfo{LastColumn: 3, BaseAverage: 50, DataRows: 3}, "base")

	var scaling *trends.ScalingError
	if !errors.As(err, &scaling) {
		t.Fatalf("Expected ScalingError, got %v", err)
	}
}

func TestWriteExpansion_ZeroFreshMeanFails(t *testing.T) {
	ws := NewMemoryWorksheet()
	writer := NewWriter(ws, NewStateStore(ws))

	fresh := testSeries(map[string][]float64{
		"base": {0, 0, 0},
		"new1": {1, 2, 3},
	}, []string{"base", "new1"}, 3)

	_, err := writer.WriteExpansion(fresh, DataInfo{LastColumn: 3, BaseAverage: 50, DataRows: 3}, "base")

	var scaling *trends.ScalingError
	if !errors.As(err, &scaling) {
		t.Fatalf("Expected ScalingError, got %v", err)
	}
}

func TestNormalize_BaseBecomesStoredAverageExactly(t *testing.T) {
	fresh := testSeries(map[string][]float64{
		"base": {20, 30},
		"new1": {10, 40},
	}, []string{"base", "new1"}, 2)

	out, err := Normalize(fresh, DataInfo{BaseAverage: 50}, "base")
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	for _, v := range out.Values["base"] {
		if v != 50 {
			t.Errorf("Expected constant base fill of 50, got %v", out.Values["base"])
			break
		}
	}
	// Fresh base mean 25 -> scale 2.
	if out.Values["new1"][0] != 20 || out.Values["new1"][1] != 80 {
		t.Errorf("Expected doubled values [20 80], got %v", out.Values["new1"])
	}

	// Input series is left untouched.
	if fresh.Values["new1"][0] != 10 {
		t.Errorf("Expected input untouched, got %v", fresh.Values["new1"])
	}
}
