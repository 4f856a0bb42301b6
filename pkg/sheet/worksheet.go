package sheet

// Worksheet is the cell grid the client reads its configuration from and
// writes its results into. Rows and columns are 1-based, spreadsheet style.
// Implementations are not required to be safe for concurrent writers; the
// sync flow has exactly one.
type Worksheet interface {
	Get(row, col int) string
	Set(row, col int, value string)
	// GetRange reads a numRows x numCols block starting at (row, col).
	GetRange(row, col, numRows, numCols int) [][]string
	// SetRange writes a block of values starting at (row, col).
	SetRange(row, col int, values [][]string)
	// ClearRange empties a block without shrinking the grid.
	ClearRange(row, col, numRows, numCols int)
	// ClearFrom empties every cell at or below the given row.
	ClearFrom(row int)
	LastRow() int
	LastColumn() int
	// Flush persists the grid for file-backed implementations; in-memory
	// implementations treat it as a no-op.
	Flush() error
}

// ColumnLetter converts a 1-based column index to its spreadsheet letter
// form (1 -> A, 27 -> AA). Used only for operator-facing messages.
func ColumnLetter(col int) string {
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}
