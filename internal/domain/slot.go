package domain

import (
	"fmt"
	"time"

	"github.com/woifh/tcz-server-sub001/internal/clock"
)

const (
	// Courts are numbered 1..6.
	MinCourt = 1
	MaxCourt = 6

	// Bookable starts run 06:00..20:00 local time; the last slot ends at 21:00.
	OpeningHour = 6
	ClosingHour = 21

	SlotDuration = time.Hour
)

// Slot is the canonical (court, hour-aligned start) reservation key.
// Start is always a UTC instant; the operating window is checked against
// the display zone. At most one active reservation exists per Slot.
type Slot struct {
	Court int
	Start time.Time
}

// NewSlot validates court and start and returns the canonical slot.
func NewSlot(court int, start time.Time, zone clock.Zone) (Slot, error) {
	if court < MinCourt || court > MaxCourt {
		return Slot{}, ErrInvalidCourt
	}
	start = start.UTC()
	if !start.Truncate(time.Hour).Equal(start) {
		return Slot{}, ErrInvalidTime
	}
	hour := zone.ToDisplay(start).Hour()
	if hour < OpeningHour || hour >= ClosingHour {
		return Slot{}, ErrInvalidTime
	}
	return Slot{Court: court, Start: start}, nil
}

// End is the exclusive end of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(SlotDuration)
}

// Equal compares slots by court and instant.
func (s Slot) Equal(o Slot) bool {
	return s.Court == o.Court && s.Start.Equal(o.Start)
}

// Key is a stable string form used for per-slot arbitration locks.
func (s Slot) Key() string {
	return fmt.Sprintf("slot:%d:%d", s.Court, s.Start.UTC().Unix())
}
