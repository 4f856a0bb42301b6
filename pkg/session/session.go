package session

import (
	"sort"
	"time"

	"trendsheet-go/pkg/trends"
)

// Config is the last successfully applied query, persisted between runs so
// the next run can be classified against it. It is compared, never mutated.
type Config struct {
	Keywords    []string
	StartDate   time.Time
	EndDate     time.Time
	Frequency   trends.Frequency
	BaseKeyword string
}

// Store persists the session config. The worksheet-backed implementation
// lives in pkg/sheet; the core never touches spreadsheet cells directly.
type Store interface {
	Load() (*Config, error)
	Save(Config) error
	Clear() error
}

// Mode is the execution mode chosen for a run.
type Mode string

const (
	// ModeNew clears the table and refetches everything.
	ModeNew Mode = "NEW"
	// ModeExpand fetches only the current query and appends new columns.
	ModeExpand Mode = "EXPAND"
	// ModeSame is a no-op unless the caller forces a rerun.
	ModeSame Mode = "SAME"
)

// Decision is a mode plus the operator-facing reason it was chosen.
type Decision struct {
	Mode   Mode
	Reason string
}

// FromQuery builds the persistable config for a query.
func FromQuery(q trends.TrendQuery) Config {
	return Config{
		Keywords:    append([]string(nil), q.Keywords...),
		StartDate:   q.Timeframe.Start,
		EndDate:     q.Timeframe.End,
		Frequency:   q.Frequency,
		BaseKeyword: q.BaseKeyword(),
	}
}

// Decide classifies the current query against the previous session. The
// rules run in order: a missing session, a changed base keyword, or changed
// dates/frequency force a full refetch; a changed non-base keyword set is a
// horizontal expansion; anything else is unchanged.
func Decide(current trends.TrendQuery, previous *Config) Decision {
	if previous == nil {
		return Decision{Mode: ModeNew, Reason: "first run"}
	}

	if current.BaseKeyword() != previous.BaseKeyword {
		return Decision{Mode: ModeNew, Reason: "base keyword changed"}
	}

	if !current.Timeframe.Start.Equal(previous.StartDate) ||
		!current.Timeframe.End.Equal(previous.EndDate) ||
		current.Frequency != previous.Frequency {
		return Decision{Mode: ModeNew, Reason: "date range or frequency changed"}
	}

	if !sameSet(nonBase(current.Keywords), nonBase(previous.Keywords)) {
		return Decision{Mode: ModeExpand, Reason: "secondary keywords changed, expanding table"}
	}

	return Decision{Mode: ModeSame, Reason: "configuration unchanged"}
}

func nonBase(keywords []string) []string {
	if len(keywords) <= 1 {
		return nil
	}
	return keywords[1:]
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
