package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trendsheet-go/pkg/session"
	"trendsheet-go/pkg/trends"
)

// Worksheet layout. Rows 1-5 are the user's configuration area, row 6 is
// the hidden state row, row 8 starts the data table.
const (
	KeywordRow      = 2
	KeywordStartCol = 2 // B2:E2
	KeywordCells    = 4
	StartDateRow    = 3
	EndDateRow      = 4
	FrequencyRow    = 5
	ConfigValueCol  = 2

	stateRow        = 6
	sessionStartCol = 2 // B6:F6 keywords, start, end, frequency, base
	sessionCells    = 5
	infoStartCol    = 8 // H6:J6 last column, base average, data rows
	infoCells       = 3

	HeaderRow = 8
)

const cellTimeLayout = time.RFC3339

// DataInfo summarizes the materialized table: the rightmost used column,
// the base keyword's mean at NEW time, and the row count. BaseAverage and
// DataRows describe the immutable base series and never change on
// expansion.
type DataInfo struct {
	LastColumn  int
	BaseAverage float64
	DataRows    int
}

// StateStore persists SessionConfig and DataInfo in the hidden state row.
// It satisfies session.Store for the session half.
type StateStore struct {
	ws Worksheet
}

// NewStateStore creates a store over the worksheet's state row.
func NewStateStore(ws Worksheet) *StateStore {
	return &StateStore{ws: ws}
}

// Load reads the previous session config; (nil, nil) when none is stored.
func (s *StateStore) Load() (*session.Config, error) {
	row := s.ws.GetRange(stateRow, sessionStartCol, 1, sessionCells)[0]
	if row[0] == "" {
		return nil, nil
	}

	keywords := trends.NormalizeKeywords(strings.Split(row[0], ","))
	start, err := parseCellTime(row[1])
	if err != nil {
		return nil, fmt.Errorf("stored start date is unreadable: %w", err)
	}
	end, err := parseCellTime(row[2])
	if err != nil {
		return nil, fmt.Errorf("stored end date is unreadable: %w", err)
	}

	base := row[4]
	if base == "" && len(keywords) > 0 {
		base = keywords[0]
	}

	return &session.Config{
		Keywords:    keywords,
		StartDate:   start,
		EndDate:     end,
		Frequency:   trends.Frequency(row[3]),
		BaseKeyword: base,
	}, nil
}

// Save overwrites the stored session config.
func (s *StateStore) Save(config session.Config) error {
	s.ws.SetRange(stateRow, sessionStartCol, [][]string{{
		strings.Join(config.Keywords, ","),
		config.StartDate.Format(cellTimeLayout),
		config.EndDate.Format(cellTimeLayout),
		string(config.Frequency),
		config.BaseKeyword,
	}})
	return nil
}

// Clear wipes both state regions, session and data info.
func (s *StateStore) Clear() error {
	s.ws.ClearRange(stateRow, sessionStartCol, 1, infoStartCol+infoCells-sessionStartCol)
	return nil
}

// LoadDataInfo reads the table descriptor; (nil, nil) when none is stored.
func (s *StateStore) LoadDataInfo() (*DataInfo, error) {
	row := s.ws.GetRange(stateRow, infoStartCol, 1, infoCells)[0]
	if row[0] == "" {
		return nil, nil
	}

	lastColumn, err := strconv.Atoi(row[0])
	if err != nil {
		return nil, fmt.Errorf("stored last column is unreadable: %w", err)
	}
	baseAverage, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return nil, fmt.Errorf("stored base average is unreadable: %w", err)
	}
	dataRows, err := strconv.Atoi(row[2])
	if err != nil {
		return nil, fmt.Errorf("stored row count is unreadable: %w", err)
	}

	return &DataInfo{LastColumn: lastColumn, BaseAverage: baseAverage, DataRows: dataRows}, nil
}

// SaveDataInfo overwrites the table descriptor. Callers invoke this as the
// final step of a write so data and descriptor are never observed out of
// order.
func (s *StateStore) SaveDataInfo(info DataInfo) error {
	s.ws.SetRange(stateRow, infoStartCol, [][]string{{
		strconv.Itoa(info.LastColumn),
		strconv.FormatFloat(info.BaseAverage, 'f', -1, 64),
		strconv.Itoa(info.DataRows),
	}})
	return nil
}

func parseCellTime(s string) (time.Time, error) {
	if t, err := time.Parse(cellTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
