package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/session"
	"trendsheet-go/pkg/sheet"
	"trendsheet-go/pkg/trends"
)

// Service is the slice of the trend client the runner drives: the readiness
// probe and the fetch call. pkg/client's Client satisfies it.
type Service interface {
	EnsureReady(ctx context.Context) error
	FetchTrend(ctx context.Context, q trends.TrendQuery) (*trends.TrendSeries, error)
}

// Config holds the client-side run options.
type Config struct {
	Geo         string
	MaxKeywords int
	// Force reruns a SAME configuration as a full NEW analysis.
	Force bool
}

// Runner drives one synchronization pass: read the worksheet
// configuration, classify it against the previous session, fetch through
// the service, and materialize the result.
type Runner struct {
	client Service
	ws     sheet.Worksheet
	store  *sheet.StateStore
	writer *sheet.Writer
	config Config
	log    *logger.Logger
}

// New wires a runner over a worksheet and a service client.
func New(c Service, ws sheet.Worksheet, config Config) *Runner {
	if config.Geo == "" {
		config.Geo = "JP"
	}
	if config.MaxKeywords == 0 {
		config.MaxKeywords = sheet.KeywordCells
	}
	store := sheet.NewStateStore(ws)
	return &Runner{
		client: c,
		ws:     ws,
		store:  store,
		writer: sheet.NewWriter(ws, store),
		config: config,
		log:    logger.GetLogger().WithField("component", "runner"),
	}
}

// Run executes one synchronization pass and flushes the worksheet.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.client.EnsureReady(ctx); err != nil {
		return fmt.Errorf("server is not ready: %w", err)
	}

	query, err := r.readConfiguration()
	if err != nil {
		return err
	}
	if err := trends.ValidateQuery(query, r.config.MaxKeywords); err != nil {
		return err
	}

	previous, err := r.store.Load()
	if err != nil {
		r.log.WithError(err).Warn("Stored session is unreadable, treating as first run")
		previous = nil
	}

	decision := session.Decide(query, previous)
	r.log.WithFields(map[string]interface{}{
		"mode":   string(decision.Mode),
		"reason": decision.Reason,
	}).Info("Execution mode decided")

	switch decision.Mode {
	case session.ModeNew:
		err = r.runNew(ctx, query)
	case session.ModeExpand:
		err = r.runExpansion(ctx, query)
	case session.ModeSame:
		if r.config.Force {
			r.log.Info("Configuration unchanged, rerunning on request")
			err = r.runNew(ctx, query)
		} else {
			r.log.Info("Configuration unchanged, nothing to do")
			return nil
		}
	}
	if err != nil {
		return err
	}

	if err := r.ws.Flush(); err != nil {
		return fmt.Errorf("failed to persist worksheet: %w", err)
	}
	return nil
}

func (r *Runner) runNew(ctx context.Context, query trends.TrendQuery) error {
	r.log.WithField("keywords", query.Keywords).Info("Starting new analysis")

	series, err := r.client.FetchTrend(ctx, query)
	if err != nil {
		return fmt.Errorf("new analysis failed: %w", err)
	}

	if _, err := r.writer.WriteNew(series, query.BaseKeyword()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := r.store.Save(session.FromQuery(query)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.log.Info("New analysis completed")
	return nil
}

// runExpansion appends columns for the changed secondary keywords. Any
// failure before the table is touched, fetch included, falls back to a full
// new analysis rather than leaving the table half-written.
func (r *Runner) runExpansion(ctx context.Context, query trends.TrendQuery) error {
	r.log.WithField("keywords", query.Keywords).Info("Starting horizontal expansion")

	existing, err := r.store.LoadDataInfo()
	if err == nil && existing == nil {
		err = fmt.Errorf("no existing table descriptor found")
	}
	if err != nil {
		r.log.WithError(err).Warn("Expansion is not possible, falling back to new analysis")
		return r.runNew(ctx, query)
	}

	series, err := r.client.FetchTrend(ctx, query)
	if err != nil {
		r.log.WithError(err).Warn("Expansion fetch failed, falling back to new analysis")
		return r.runNew(ctx, query)
	}

	info, err := r.writer.WriteExpansion(series, *existing, query.BaseKeyword())
	if err != nil {
		r.log.WithError(err).Warn("Expansion write failed, falling back to new analysis")
		return r.runNew(ctx, query)
	}
	if err := r.store.Save(session.FromQuery(query)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.log.WithField("last_column", sheet.ColumnLetter(info.LastColumn)).Info("Expansion completed")
	return nil
}

// readConfiguration assembles a TrendQuery from the worksheet's input
// cells: keywords in B2:E2, dates in B3/B4, frequency in B5.
func (r *Runner) readConfiguration() (trends.TrendQuery, error) {
	raw := r.ws.GetRange(sheet.KeywordRow, sheet.KeywordStartCol, 1, sheet.KeywordCells)[0]
	keywords := trends.NormalizeKeywords(raw)

	start, err := parseDateCell(r.ws.Get(sheet.StartDateRow, sheet.ConfigValueCol))
	if err != nil {
		return trends.TrendQuery{}, &trends.ValidationError{Field: "start date", Reason: err.Error()}
	}
	end, err := parseDateCell(r.ws.Get(sheet.EndDateRow, sheet.ConfigValueCol))
	if err != nil {
		return trends.TrendQuery{}, &trends.ValidationError{Field: "end date", Reason: err.Error()}
	}

	freq, err := trends.ParseFrequency(strings.ToLower(strings.TrimSpace(r.ws.Get(sheet.FrequencyRow, sheet.ConfigValueCol))))
	if err != nil {
		return trends.TrendQuery{}, err
	}

	return trends.TrendQuery{
		Keywords:  keywords,
		Timeframe: trends.Timeframe{Start: start, End: end},
		Frequency: freq,
		Geo:       r.config.Geo,
	}, nil
}

func parseDateCell(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date cell is empty")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unreadable date %q", s)
}
