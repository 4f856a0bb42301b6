package sheet

import "sync"

type cellKey struct {
	row, col int
}

// MemoryWorksheet is an in-memory grid, used by tests and as the base of
// the CSV-backed worksheet.
type MemoryWorksheet struct {
	mu     sync.RWMutex
	cells  map[cellKey]string
	maxRow int
	maxCol int
}

// NewMemoryWorksheet creates an empty grid.
func NewMemoryWorksheet() *MemoryWorksheet {
	return &MemoryWorksheet{cells: make(map[cellKey]string)}
}

func (ws *MemoryWorksheet) Get(row, col int) string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.cells[cellKey{row, col}]
}

func (ws *MemoryWorksheet) Set(row, col int, value string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.set(row, col, value)
}

func (ws *MemoryWorksheet) set(row, col int, value string) {
	if value == "" {
		delete(ws.cells, cellKey{row, col})
		return
	}
	ws.cells[cellKey{row, col}] = value
	if row > ws.maxRow {
		ws.maxRow = row
	}
	if col > ws.maxCol {
		ws.maxCol = col
	}
}

func (ws *MemoryWorksheet) GetRange(row, col, numRows, numCols int) [][]string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	out := make([][]string, numRows)
	for r := 0; r < numRows; r++ {
		out[r] = make([]string, numCols)
		for c := 0; c < numCols; c++ {
			out[r][c] = ws.cells[cellKey{row + r, col + c}]
		}
	}
	return out
}

func (ws *MemoryWorksheet) SetRange(row, col int, values [][]string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for r, rowValues := range values {
		for c, v := range rowValues {
			ws.set(row+r, col+c, v)
		}
	}
}

func (ws *MemoryWorksheet) ClearRange(row, col, numRows, numCols int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for r := 0; r < numRows; r++ {
		for c := 0; c < numCols; c++ {
			delete(ws.cells, cellKey{row + r, col + c})
		}
	}
}

func (ws *MemoryWorksheet) ClearFrom(row int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for key := range ws.cells {
		if key.row >= row {
			delete(ws.cells, key)
		}
	}
}

func (ws *MemoryWorksheet) LastRow() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	last := 0
	for key := range ws.cells {
		if key.row > last {
			last = key.row
		}
	}
	return last
}

func (ws *MemoryWorksheet) LastColumn() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	last := 0
	for key := range ws.cells {
		if key.col > last {
			last = key.col
		}
	}
	return last
}

func (ws *MemoryWorksheet) Flush() error { return nil }
