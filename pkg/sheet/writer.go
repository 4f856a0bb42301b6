package sheet

import (
	"fmt"
	"math"
	"strconv"

	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/trends"
)

// Writer materializes trend series into the worksheet's data area and owns
// the DataInfo descriptor.
type Writer struct {
	ws    Worksheet
	store *StateStore
	log   *logger.Logger
}

// NewWriter creates a writer over the worksheet and its state store.
func NewWriter(ws Worksheet, store *StateStore) *Writer {
	return &Writer{
		ws:    ws,
		store: store,
		log:   logger.GetLogger().WithField("component", "sheet_writer"),
	}
}

// WriteNew clears the data area and writes the full table: a header row of
// date plus keywords, one row per date. The returned DataInfo records the
// base keyword's mean as the anchor for later expansions.
func (w *Writer) WriteNew(series *trends.TrendSeries, baseKeyword string) (DataInfo, error) {
	base, ok := series.Values[baseKeyword]
	if !ok {
		return DataInfo{}, &trends.ScalingError{Pivot: baseKeyword, Reason: "series lacks base keyword"}
	}

	w.ws.ClearFrom(HeaderRow)

	header := make([]string, 0, len(series.Order)+1)
	header = append(header, "date")
	header = append(header, series.Order...)
	w.ws.SetRange(HeaderRow, 1, [][]string{header})

	rows := make([][]string, len(series.Dates))
	for i, d := range series.Dates {
		row := make([]string, 0, len(header))
		row = append(row, d.Format("2006-01-02"))
		for _, kw := range series.Order {
			row = append(row, formatScore(series.Values[kw][i]))
		}
		rows[i] = row
	}
	w.ws.SetRange(HeaderRow+1, 1, rows)

	info := DataInfo{
		LastColumn:  len(series.Order) + 1,
		BaseAverage: trends.Mean(base),
		DataRows:    len(series.Dates),
	}
	if err := w.store.SaveDataInfo(info); err != nil {
		return DataInfo{}, err
	}

	w.log.WithFields(map[string]interface{}{
		"columns": info.LastColumn,
		"rows":    info.DataRows,
	}).Info("Wrote new table")
	return info, nil
}

// WriteExpansion renormalizes a freshly fetched series against the
// existing table's base average and appends only its non-base columns,
// starting right of the current last column. Existing columns are never
// touched; BaseAverage and DataRows carry over unchanged.
func (w *Writer) WriteExpansion(series *trends.TrendSeries, existing DataInfo, baseKeyword string) (DataInfo, error) {
	if len(series.Dates) != existing.DataRows {
		return DataInfo{}, &trends.AlignmentError{
			Reason: fmt.Sprintf("fresh series has %d rows, table has %d", len(series.Dates), existing.DataRows),
		}
	}

	normalized, err := Normalize(series, existing, baseKeyword)
	if err != nil {
		return DataInfo{}, err
	}

	w.log.WithFields(map[string]interface{}{
		"base_keyword": baseKeyword,
		"fresh_mean":   trends.Mean(series.Values[baseKeyword]),
		"base_average": existing.BaseAverage,
	}).Info("Renormalized expansion against existing base average")

	var added []string
	for _, kw := range normalized.Order {
		if kw != baseKeyword {
			added = append(added, kw)
		}
	}
	if len(added) == 0 {
		return existing, nil
	}

	startCol := existing.LastColumn + 1
	w.ws.SetRange(HeaderRow, startCol, [][]string{added})

	rows := make([][]string, len(normalized.Dates))
	for i := range normalized.Dates {
		row := make([]string, 0, len(added))
		for _, kw := range added {
			row = append(row, formatScore(normalized.Values[kw][i]))
		}
		rows[i] = row
	}
	w.ws.SetRange(HeaderRow+1, startCol, rows)

	info := DataInfo{
		LastColumn:  startCol + len(added) - 1,
		BaseAverage: existing.BaseAverage,
		DataRows:    existing.DataRows,
	}
	if err := w.store.SaveDataInfo(info); err != nil {
		return DataInfo{}, err
	}

	w.log.WithFields(map[string]interface{}{
		"added_columns": len(added),
		"start_column":  ColumnLetter(startCol),
	}).Info("Expanded table")
	return info, nil
}

// Normalize rescales a fresh series so its base column becomes the stored
// base average exactly and every other column scales by the same ratio.
// Exposed for callers that need the normalized values without writing.
func Normalize(series *trends.TrendSeries, existing DataInfo, baseKeyword string) (*trends.TrendSeries, error) {
	base, ok := series.Values[baseKeyword]
	if !ok {
		return nil, &trends.ScalingError{Pivot: baseKeyword, Reason: "series lacks base keyword"}
	}
	freshMean := trends.Mean(base)
	if freshMean == 0 {
		return nil, &trends.ScalingError{Pivot: baseKeyword, Reason: "base mean is zero"}
	}

	scale := existing.BaseAverage / freshMean
	out := series.Clone()
	for _, kw := range out.Order {
		vals := out.Values[kw]
		for i := range vals {
			if kw == baseKeyword {
				vals[i] = existing.BaseAverage
			} else {
				vals[i] = math.Round(vals[i] * scale)
			}
		}
	}
	return out, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
