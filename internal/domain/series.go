package domain

import (
	"time"

	"github.com/google/uuid"
)

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// SeriesScope selects which instances of a series an edit or delete targets.
type SeriesScope string

const (
	ScopeEntire   SeriesScope = "entire"
	ScopeFromDate SeriesScope = "from_date"
	ScopeSingle   SeriesScope = "single"
)

// Valid reports whether the scope is one of the known values.
func (s SeriesScope) Valid() bool {
	switch s {
	case ScopeEntire, ScopeFromDate, ScopeSingle:
		return true
	}
	return false
}

// BlockSeries is a recurrence template that expands into linked Block rows.
// StartDate/EndDate are civil dates (midnight UTC); StartHour/EndHour are
// display-zone hours shared by every instance.
type BlockSeries struct {
	ID       uuid.UUID
	Pattern  RecurrencePattern
	Weekdays []time.Weekday
	// StartDate and EndDate bound the expansion, both inclusive.
	// EndDate is mandatory: unbounded series are rejected.
	StartDate time.Time
	EndDate   time.Time
	Courts    []int
	StartHour int
	EndHour   int
	ReasonID  uuid.UUID
	// ReasonName is snapshotted like on Block.
	ReasonName string
	SubReason  string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

// Date normalizes a time to its civil date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpandDates deterministically expands the recurrence into the ordered civil
// dates the series covers. Daily covers every date in range; weekly only
// dates whose weekday is selected; monthly the start date's day-of-month,
// clamped to the last day of shorter months.
func (s BlockSeries) ExpandDates() ([]time.Time, error) {
	if s.EndDate.IsZero() {
		return nil, ErrSeriesMissingEndDate
	}
	start := Date(s.StartDate)
	end := Date(s.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidRecurrence
	}

	switch s.Pattern {
	case RecurrenceDaily:
		var dates []time.Time
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
		return dates, nil

	case RecurrenceWeekly:
		if len(s.Weekdays) == 0 {
			return nil, ErrInvalidRecurrence
		}
		selected := make(map[time.Weekday]bool, len(s.Weekdays))
		for _, wd := range s.Weekdays {
			selected[wd] = true
		}
		var dates []time.Time
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if selected[d.Weekday()] {
				dates = append(dates, d)
			}
		}
		return dates, nil

	case RecurrenceMonthly:
		day := start.Day()
		var dates []time.Time
		for y, m := start.Year(), start.Month(); ; {
			d := monthlyDate(y, m, day)
			if d.After(end) {
				break
			}
			if !d.Before(start) {
				dates = append(dates, d)
			}
			m++
			if m > time.December {
				m = time.January
				y++
			}
		}
		return dates, nil
	}
	return nil, ErrInvalidRecurrence
}

// monthlyDate clamps day to the last day of the given month.
func monthlyDate(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
