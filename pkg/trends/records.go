package trends

import (
	"encoding/json"
	"sort"
	"time"
)

// partialMarker is the provider-internal column flagging rows whose window
// is not yet complete. It never survives into a TrendSeries.
const partialMarker = "isPartial"

// Record is one row of the wire representation: a date plus one score per
// keyword.
type Record map[string]interface{}

// Records flattens a series into wire rows, keeping column order stable
// through Order.
func (s *TrendSeries) Records() []Record {
	records := make([]Record, 0, len(s.Dates))
	for i, d := range s.Dates {
		rec := Record{"date": d.Format(dateLayout)}
		for _, kw := range s.Order {
			rec[kw] = s.Values[kw][i]
		}
		records = append(records, rec)
	}
	return records
}

// SeriesFromRecords rebuilds a TrendSeries from wire rows. The date may be
// carried under "date" or "index"; the partial-data marker is dropped.
// keywordOrder fixes column order; pass nil to derive it from the first row
// (sorted, for determinism).
func SeriesFromRecords(records []Record, keywordOrder []string) (*TrendSeries, error) {
	if len(records) == 0 {
		return nil, &NoDataError{}
	}

	order := keywordOrder
	if order == nil {
		for key := range records[0] {
			if key == "date" || key == "index" || key == partialMarker {
				continue
			}
			order = append(order, key)
		}
		sort.Strings(order)
	}

	s := &TrendSeries{
		Order:  order,
		Values: make(map[string][]float64, len(order)),
	}
	for _, rec := range records {
		raw, ok := rec["date"]
		if !ok {
			raw, ok = rec["index"]
		}
		if !ok {
			return nil, &UpstreamError{Err: errMissingDate}
		}
		dateStr, ok := raw.(string)
		if !ok {
			return nil, &UpstreamError{Err: errMissingDate}
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, &UpstreamError{Err: err}
		}
		s.Dates = append(s.Dates, date)

		for _, kw := range order {
			s.Values[kw] = append(s.Values[kw], toFloat(rec[kw]))
		}
	}
	return s, nil
}

var errMissingDate = jsonError("record has no date or index field")

type jsonError string

func (e jsonError) Error() string { return string(e) }

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
