package clock

import (
	"fmt"
	"time"
)

// DefaultZoneName is the club's local time zone. All booking hours
// (opening times, block ranges) are expressed in this zone.
const DefaultZoneName = "Europe/Berlin"

// Zone converts between storage instants (UTC) and the fixed display zone.
type Zone struct {
	loc *time.Location
}

// NewZone loads a display zone by IANA name.
func NewZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load display zone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// MustZone is NewZone that panics on failure. Intended for package
// initialization and tests, where a missing tzdata entry is unrecoverable.
func MustZone(name string) Zone {
	z, err := NewZone(name)
	if err != nil {
		panic(err)
	}
	return z
}

// Location exposes the underlying *time.Location for formatting.
func (z Zone) Location() *time.Location {
	return z.loc
}

// ToDisplay renders a storage instant in the display zone.
// The instant is unchanged; only the wall-clock representation moves.
func (z Zone) ToDisplay(t time.Time) time.Time {
	return t.In(z.loc)
}

// FromDisplay interprets the wall-clock fields of t as display-zone local
// time and returns the corresponding UTC instant. FromDisplay(ToDisplay(x))
// equals x for every instant x.
func (z Zone) FromDisplay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), z.loc).UTC()
}

// At returns the UTC instant for the given display-zone date and hour.
func (z Zone) At(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, z.loc).UTC()
}
