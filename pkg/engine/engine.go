package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/retry"
	"trendsheet-go/pkg/trends"
)

// Config holds the engine's tunables. WidthLimit is the upstream provider's
// cap on simultaneous terms per query; QueryGap is the mandatory pause
// between the two group queries of a split fetch.
type Config struct {
	WidthLimit     int
	QueryGap       time.Duration
	QueryGapJitter time.Duration
	Retry          retry.Policy
}

// DefaultConfig mirrors the provider's real limits: five terms per query,
// tens of seconds between back-to-back queries.
func DefaultConfig() Config {
	return Config{
		WidthLimit:     5,
		QueryGap:       20 * time.Second,
		QueryGapJitter: 10 * time.Second,
		Retry:          retry.DefaultPolicy(),
	}
}

// Engine turns a TrendQuery into a TrendSeries, splitting wide keyword sets
// into two pivot-sharing upstream queries and rescaling the second group so
// both halves share one magnitude scale.
type Engine struct {
	provider trends.Provider
	retrier  *retry.Controller
	config   Config
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger
}

// New creates an engine over the given provider. Zero config fields fall
// back to DefaultConfig.
func New(provider trends.Provider, config Config) *Engine {
	def := DefaultConfig()
	if config.WidthLimit < 2 {
		config.WidthLimit = def.WidthLimit
	}
	if config.QueryGap <= 0 {
		config.QueryGap = def.QueryGap
		config.QueryGapJitter = def.QueryGapJitter
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = def.Retry
	}
	return &Engine{
		provider: provider,
		retrier:  retry.New(config.Retry),
		config:   config,
		sleep:    sleepCtx,
		log:      logger.GetLogger().WithField("component", "engine"),
	}
}

// Fetch resolves the query into a series at the requested frequency.
func (e *Engine) Fetch(ctx context.Context, q trends.TrendQuery) (*trends.TrendSeries, error) {
	var raw *trends.TrendSeries
	var err error

	if len(q.Keywords) <= e.config.WidthLimit {
		raw, err = e.fetchGroup(ctx, q.Keywords, q.Timeframe, q.Geo)
	} else {
		raw, err = e.fetchSplit(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	series, err := Resample(raw, q.Frequency)
	if err != nil {
		return nil, err
	}
	if err := series.Check(); err != nil {
		return nil, fmt.Errorf("assembled series is inconsistent: %w", err)
	}
	return series, nil
}

// fetchSplit runs the two-query scaling protocol: group1 carries the first
// WidthLimit keywords, group2 re-carries the pivot plus the overflow, and
// group2's columns are rescaled by the ratio of the pivot means.
func (e *Engine) fetchSplit(ctx context.Context, q trends.TrendQuery) (*trends.TrendSeries, error) {
	pivot := q.Keywords[0]
	group1 := q.Keywords[:e.config.WidthLimit]
	group2 := append([]string{pivot}, q.Keywords[e.config.WidthLimit:]...)

	e.log.WithFields(map[string]interface{}{
		"pivot":  pivot,
		"group1": group1,
		"group2": group2,
	}).Info("Keyword set exceeds provider width, splitting into pivot groups")

	first, err := e.fetchGroup(ctx, group1, q.Timeframe, q.Geo)
	if err != nil {
		return nil, err
	}

	gap := e.config.QueryGap
	if e.config.QueryGapJitter > 0 {
		gap += time.Duration(rand.Int63n(int64(e.config.QueryGapJitter)))
	}
	e.log.WithField("wait", gap.String()).Info("Cooling down before second group query")
	if err := e.sleep(ctx, gap); err != nil {
		return nil, err
	}

	second, err := e.fetchGroup(ctx, group2, q.Timeframe, q.Geo)
	if err != nil {
		return nil, err
	}

	return stitch(first, second, pivot)
}

func (e *Engine) fetchGroup(ctx context.Context, keywords []string, tf trends.Timeframe, geo string) (*trends.TrendSeries, error) {
	var series *trends.TrendSeries
	err := e.retrier.Do(ctx, func() error {
		var fetchErr error
		series, fetchErr = e.provider.FetchInterest(ctx, keywords, tf, geo)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if len(series.Dates) == 0 {
		return nil, &trends.NoDataError{Keywords: keywords}
	}
	return series, nil
}

// stitch merges the two group series. Group1's columns, pivot included, are
// taken verbatim; group2's non-pivot columns are multiplied by the pivot
// mean ratio and rounded to the provider's integer granularity. Group2's
// own pivot column exists only to establish the ratio and is discarded.
func stitch(group1, group2 *trends.TrendSeries, pivot string) (*trends.TrendSeries, error) {
	if len(group1.Dates) != len(group2.Dates) {
		return nil, &trends.AlignmentError{
			Reason: fmt.Sprintf("group1 has %d points, group2 has %d", len(group1.Dates), len(group2.Dates)),
		}
	}
	for i := range group1.Dates {
		if !group1.Dates[i].Equal(group2.Dates[i]) {
			return nil, &trends.AlignmentError{
				Reason: fmt.Sprintf("date mismatch at index %d: %s vs %s",
					i, group1.Dates[i].Format("2006-01-02"), group2.Dates[i].Format("2006-01-02")),
			}
		}
	}

	pivotMean1 := trends.Mean(group1.Values[pivot])
	pivotMean2 := trends.Mean(group2.Values[pivot])
	if pivotMean2 == 0 {
		return nil, &trends.ScalingError{Pivot: pivot, Reason: "second group pivot mean is zero"}
	}
	scale := pivotMean1 / pivotMean2

	out := group1.Clone()
	for _, kw := range group2.Order {
		if kw == pivot {
			continue
		}
		scaled := make([]float64, len(group2.Values[kw]))
		for i, v := range group2.Values[kw] {
			scaled[i] = math.Round(v * scale)
		}
		out.Order = append(out.Order, kw)
		out.Values[kw] = scaled
	}
	return out, nil
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
