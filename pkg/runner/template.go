package runner

import (
	"trendsheet-go/pkg/sheet"
)

// CreateTemplate writes the worksheet skeleton: configuration labels,
// sample keywords and dates, and the data area marker. The state row is
// left empty so the first run classifies as NEW.
func CreateTemplate(ws sheet.Worksheet) error {
	ws.Set(1, 1, "Trend analysis")

	ws.Set(2, 1, "Keywords (up to 4)")
	ws.Set(3, 1, "Start date")
	ws.Set(4, 1, "End date")
	ws.Set(5, 1, "Frequency")

	ws.Set(2, 2, "タイミー")
	ws.Set(2, 3, "リクナビ")
	ws.Set(2, 4, "バイトル")

	ws.Set(3, 2, "2025-02-01")
	ws.Set(4, 2, "2025-03-31")
	ws.Set(5, 2, "weekly")

	ws.Set(7, 1, "Data output area (written from row 8)")

	return ws.Flush()
}

// ClearStoredData wipes the hidden session and data-info state, forcing
// the next run to start from scratch. The data table itself is left alone.
func ClearStoredData(ws sheet.Worksheet) error {
	if err := sheet.NewStateStore(ws).Clear(); err != nil {
		return err
	}
	return ws.Flush()
}
