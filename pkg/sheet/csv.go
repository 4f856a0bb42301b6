package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVWorksheet is a file-backed worksheet: the whole grid is loaded on
// open and written back on Flush. Good enough for the single synchronous
// caller this client is.
type CSVWorksheet struct {
	*MemoryWorksheet
	path string
}

// OpenCSVWorksheet loads the grid from path, starting empty if the file
// does not exist yet.
func OpenCSVWorksheet(path string) (*CSVWorksheet, error) {
	ws := &CSVWorksheet{
		MemoryWorksheet: NewMemoryWorksheet(),
		path:            path,
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open worksheet file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet file: %w", err)
	}

	for r, row := range rows {
		for c, value := range row {
			if value != "" {
				ws.Set(r+1, c+1, value)
			}
		}
	}
	return ws, nil
}

// Flush writes the grid back to disk atomically: full write to a temp
// file, then rename over the original.
func (ws *CSVWorksheet) Flush() error {
	rows := ws.LastRow()
	cols := ws.LastColumn()

	grid := ws.GetRange(1, 1, rows, cols)

	dir := filepath.Dir(ws.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create worksheet directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".worksheet-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp worksheet: %w", err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(grid); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write worksheet: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp worksheet: %w", err)
	}

	if err := os.Rename(tmpPath, ws.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace worksheet file: %w", err)
	}
	return nil
}
