package epidemic

import (
	"fmt"
	"time"
)

// DateKind selects how a reporting instant is encoded in a series' rows.
type DateKind int

const (
	// CalendarDate keys rows by ISO calendar date, e.g. "2022-04-05".
	CalendarDate DateKind = iota
	// IsoWeek keys rows by ISO week-numbering year and week, e.g. "202214".
	IsoWeek
)

// Key encodes t the way rows of this kind are keyed. Two dates in the same
// ISO week share the same IsoWeek key.
func (k DateKind) Key(t time.Time) string {
	switch k {
	case IsoWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d%02d", year, week)
	default:
		return t.Format(DateLayout)
	}
}

func (k DateKind) String() string {
	if k == IsoWeek {
		return "iso-week"
	}
	return "calendar-date"
}

// DateLayout is the layout of calendar date keys and API date parameters.
const DateLayout = "2006-01-02"

// Series identifies one of the three upstream time series.
type Series string

const (
	Hospitalizations Series = "hospitalizations"
	Deaths           Series = "deaths"
	Symptoms         Series = "symptoms"
)

// DateKind reports how the series keys its rows.
func (s Series) DateKind() DateKind {
	if s == Symptoms {
		return CalendarDate
	}
	return IsoWeek
}

// RawRecord is one observation row of a source series. Vaccine and Severity
// are only populated for the adverse event series.
type RawRecord struct {
	AgeGroup string
	Region   string
	DateKey  string
	Value    int64
	Vaccine  string
	Severity string
}

// Snapshot maps a raw age group label to its cumulative count at one instant.
type Snapshot map[string]int64

// Empty reports whether no rows matched the instant.
func (s Snapshot) Empty() bool {
	return len(s) == 0
}

// SeriesDiff maps a raw age group label to end minus start.
type SeriesDiff map[string]int64

// Labels returns the keys of d in unspecified order.
func (d SeriesDiff) Labels() []string {
	out := make([]string, 0, len(d))
	for l := range d {
		out = append(out, l)
	}
	return out
}

// Comparison is the net change of all three series between two dates.
type Comparison struct {
	ID         string    `json:"id"`
	Region     string    `json:"region"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	ComputedAt time.Time `json:"computedAt"` // always UTC

	Hospitalizations SeriesDiff `json:"hospitalizations"`
	Deaths           SeriesDiff `json:"deaths"`
	Symptoms         SeriesDiff `json:"symptoms"`
}

// Diff returns the diff of the given series.
func (c Comparison) Diff(s Series) SeriesDiff {
	switch s {
	case Hospitalizations:
		return c.Hospitalizations
	case Deaths:
		return c.Deaths
	case Symptoms:
		return c.Symptoms
	default:
		return nil
	}
}
