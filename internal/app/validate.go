package app

import (
	"time"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

const (
	// ShortNoticeWindow is how close to the slot start a booking counts as
	// short-notice: the half-open window [start-15m, end).
	ShortNoticeWindow = 15 * time.Minute

	// CancellationWindow is the minimum notice for a member cancellation:
	// cancelling is rejected once now >= start-15m.
	//
	// The two windows being equal is what makes short-notice reservations
	// non-cancellable without a dedicated check: a short-notice booking is
	// created at or after start-15m, so every later cancel attempt already
	// falls inside the closed window.
	CancellationWindow = 15 * time.Minute

	maxRegularReservations     = 2
	maxShortNoticeReservations = 1
)

// Snapshot is the slice of state a single validation runs against. The
// arbiter builds it inside one transaction after acquiring the slot lock,
// so every rule sees the same consistent state.
type Snapshot struct {
	// SlotTaken is true when another active reservation occupies the slot.
	SlotTaken bool
	// Blocked is true when an administrative block intersects the slot.
	Blocked bool
	// RegularCount is the booked-for member's active, non-short-notice,
	// future reservations. Recomputed per call, never cached.
	RegularCount int
	// ShortNoticeCount is the member's active short-notice reservations.
	ShortNoticeCount int
}

// IsShortNotice classifies a candidate slot against a single now. The
// classification is computed once at creation and frozen on the reservation.
func IsShortNotice(slot domain.Slot, now time.Time) bool {
	return !now.Before(slot.Start.Add(-ShortNoticeWindow)) && now.Before(slot.End())
}

// ValidateSlotChange applies the conflict rules shared by create and modify
// (past booking, slot taken, blocked), in that order. Slot well-formedness
// is enforced earlier by domain.NewSlot.
func ValidateSlotChange(slot domain.Slot, snap Snapshot, now time.Time) error {
	if slot.Start.Before(now) && !IsShortNotice(slot, now) {
		return domain.ErrPastBooking
	}
	if snap.SlotTaken {
		return domain.ErrSlotTaken
	}
	if snap.Blocked {
		return domain.ErrBlocked
	}
	return nil
}

// ValidateCreate runs the full rule chain for a new reservation. First
// failure wins, so callers observe deterministic error precedence.
func ValidateCreate(slot domain.Slot, snap Snapshot, now time.Time) error {
	if err := ValidateSlotChange(slot, snap, now); err != nil {
		return err
	}
	if IsShortNotice(slot, now) {
		if snap.ShortNoticeCount >= maxShortNoticeReservations {
			return domain.ErrShortNoticeLimitExceeded
		}
		return nil
	}
	if snap.RegularCount >= maxRegularReservations {
		return domain.ErrRegularLimitExceeded
	}
	return nil
}

// ValidateCancel applies the member cancellation window. Short-notice
// reservations are rejected by the same window check, not a special case.
func ValidateCancel(res domain.Reservation, now time.Time) error {
	if !now.Before(res.Slot.Start.Add(-CancellationWindow)) {
		return domain.ErrCancellationWindowClosed
	}
	return nil
}
