package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendsheet-go/pkg/session"
	"trendsheet-go/pkg/sheet"
	"trendsheet-go/pkg/trends"
)

type fakeService struct {
	readyErr error
	calls    int
	fetch    func(call int, q trends.TrendQuery) (*trends.TrendSeries, error)
}

func (f *fakeService) EnsureReady(ctx context.Context) error { return f.readyErr }

func (f *fakeService) FetchTrend(ctx context.Context, q trends.TrendQuery) (*trends.TrendSeries, error) {
	f.calls++
	return f.fetch(f.calls, q)
}

// weeklySeries builds n weekly points per keyword. The first keyword gets
// values 10,20,... so its mean is stable across calls.
func weeklySeries(keywords []string, n int) *trends.TrendSeries {
	s := &trends.TrendSeries{
		Order:  append([]string(nil), keywords...),
		Values: make(map[string][]float64),
	}
	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Dates = append(s.Dates, start.AddDate(0, 0, 7*i))
	}
	for j, kw := range keywords {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64((j + 1) * (i + 1) * 10)
		}
		s.Values[kw] = vals
	}
	return s
}

func configuredSheet(keywords ...string) *sheet.MemoryWorksheet {
	ws := sheet.NewMemoryWorksheet()
	for i, kw := range keywords {
		ws.Set(sheet.KeywordRow, sheet.KeywordStartCol+i, kw)
	}
	ws.Set(sheet.StartDateRow, sheet.ConfigValueCol, "2025-01-05")
	ws.Set(sheet.EndDateRow, sheet.ConfigValueCol, "2025-03-30")
	ws.Set(sheet.FrequencyRow, sheet.ConfigValueCol, "weekly")
	return ws
}

// seedSession plants a stored session and table descriptor as if a previous
// run completed.
func seedSession(t *testing.T, ws sheet.Worksheet, info sheet.DataInfo, keywords ...string) {
	t.Helper()
	store := sheet.NewStateStore(ws)
	err := store.Save(session.Config{
		Keywords:    keywords,
		StartDate:   time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		Frequency:   trends.FrequencyWeekly,
		BaseKeyword: keywords[0],
	})
	if err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}
	if err := store.SaveDataInfo(info); err != nil {
		t.Fatalf("Failed to seed data info: %v", err)
	}
}

func TestRun_FirstRunWritesNewTable(t *testing.T) {
	ws := configuredSheet("a", "b")
	svc := &fakeService{fetch: func(_ int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if svc.calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", svc.calls)
	}
	if got := ws.Get(sheet.HeaderRow, 1); got != "date" {
		t.Errorf("Expected date header, got %q", got)
	}
	if got := ws.Get(sheet.HeaderRow, 2); got != "a" {
		t.Errorf("Expected base keyword header, got %q", got)
	}

	stored, err := sheet.NewStateStore(ws).Load()
	if err != nil || stored == nil {
		t.Fatalf("Expected session saved after run, got %v, %v", stored, err)
	}
	if stored.BaseKeyword != "a" {
		t.Errorf("Expected base keyword a saved, got %q", stored.BaseKeyword)
	}
}

func TestRun_ServerNotReadyFailsBeforeFetch(t *testing.T) {
	ws := configuredSheet("a")
	svc := &fakeService{
		readyErr: errors.New("server still waking up"),
		fetch: func(_ int, q trends.TrendQuery) (*trends.TrendSeries, error) {
			return weeklySeries(q.Keywords, 3), nil
		},
	}

	if err := New(svc, ws, Config{}).Run(context.Background()); err == nil {
		t.Fatal("Expected error when server is not ready")
	}
	if svc.calls != 0 {
		t.Errorf("Expected no fetch against an unready server, got %d", svc.calls)
	}
}

func TestRun_UnchangedConfigIsNoop(t *testing.T) {
	ws := configuredSheet("a", "b")
	svc := &fakeService{fetch: func(_ int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected first run to succeed, got: %v", err)
	}
	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected second run to succeed, got: %v", err)
	}

	if svc.calls != 1 {
		t.Errorf("Expected no fetch for an unchanged configuration, got %d total", svc.calls)
	}
}

func TestRun_ForceRerunsUnchangedConfig(t *testing.T) {
	ws := configuredSheet("a", "b")
	svc := &fakeService{fetch: func(_ int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected first run to succeed, got: %v", err)
	}
	if err := New(svc, ws, Config{Force: true}).Run(context.Background()); err != nil {
		t.Fatalf("Expected forced rerun to succeed, got: %v", err)
	}

	if svc.calls != 2 {
		t.Errorf("Expected forced rerun to fetch again, got %d calls", svc.calls)
	}
}

func TestRun_SecondaryKeywordChangeExpands(t *testing.T) {
	ws := configuredSheet("a", "b")
	svc := &fakeService{fetch: func(_ int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected first run to succeed, got: %v", err)
	}

	// Swap the secondary keyword; the base stays.
	ws.Set(sheet.KeywordRow, sheet.KeywordStartCol+1, "c")

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected expansion run to succeed, got: %v", err)
	}

	if svc.calls != 2 {
		t.Errorf("Expected 2 fetches, got %d", svc.calls)
	}
	if got := ws.Get(sheet.HeaderRow, 3); got != "b" {
		t.Errorf("Expected existing column untouched, got %q", got)
	}
	if got := ws.Get(sheet.HeaderRow, 4); got != "c" {
		t.Errorf("Expected new column appended at column 4, got %q", got)
	}

	info, err := sheet.NewStateStore(ws).LoadDataInfo()
	if err != nil || info == nil {
		t.Fatalf("Expected data info after expansion, got %v, %v", info, err)
	}
	if info.LastColumn != 4 {
		t.Errorf("Expected last column advanced to 4, got %d", info.LastColumn)
	}
}

func TestRun_ExpansionFetchFailureFallsBackToNew(t *testing.T) {
	ws := configuredSheet("a", "c")
	seedSession(t, ws, sheet.DataInfo{LastColumn: 3, BaseAverage: 20, DataRows: 3}, "a", "b")

	svc := &fakeService{fetch: func(call int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		if call == 1 {
			return nil, &trends.UpstreamError{StatusCode: 502, Err: errors.New("bad gateway")}
		}
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected fallback to succeed, got: %v", err)
	}

	if svc.calls != 2 {
		t.Errorf("Expected failed expansion fetch plus fallback fetch, got %d calls", svc.calls)
	}
	if got := ws.Get(sheet.HeaderRow, 3); got != "c" {
		t.Errorf("Expected a fresh full table with column c, got %q", got)
	}
}

func TestRun_ExpansionWriteFailureFallsBackToNew(t *testing.T) {
	ws := configuredSheet("a", "c")
	seedSession(t, ws, sheet.DataInfo{LastColumn: 3, BaseAverage: 20, DataRows: 3}, "a", "b")

	svc := &fakeService{fetch: func(call int, q trends.TrendQuery) (*trends.TrendSeries, error) {
		if call == 1 {
			// Row count disagrees with the stored table, so the
			// expansion write is rejected.
			return weeklySeries(q.Keywords, 2), nil
		}
		return weeklySeries(q.Keywords, 3), nil
	}}

	if err := New(svc, ws, Config{}).Run(context.Background()); err != nil {
		t.Fatalf("Expected fallback to succeed, got: %v", err)
	}

	if svc.calls != 2 {
		t.Errorf("Expected rejected expansion plus fallback fetch, got %d calls", svc.calls)
	}

	info, err := sheet.NewStateStore(ws).LoadDataInfo()
	if err != nil || info == nil {
		t.Fatalf("Expected data info after fallback, got %v, %v", info, err)
	}
	if info.DataRows != 3 || info.LastColumn != 3 {
		t.Errorf("Expected rebuilt 3x3 table descriptor, got %+v", *info)
	}
}
