package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	// Completed is never stored; it is derived from an active reservation
	// whose slot has ended. See EffectiveStatus.
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Reservation is a member's claim on a single slot.
type Reservation struct {
	ID        uuid.UUID
	Slot      Slot
	BookedFor uuid.UUID
	BookedBy  uuid.UUID
	Status    ReservationStatus
	// ShortNotice is classified once at creation and never recomputed.
	ShortNotice    bool
	OverrideReason string
	CancelReason   string
	CreatedAt      time.Time
	CancelledAt    *time.Time
}

// EffectiveStatus reclassifies an active reservation as completed once its
// slot has ended. Only the stored states active/cancelled are persisted.
func (r Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Status == ReservationStatusActive && !now.Before(r.Slot.End()) {
		return ReservationStatusCompleted
	}
	return r.Status
}
