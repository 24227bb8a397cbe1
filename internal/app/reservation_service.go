package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/woifh/tcz-server-sub001/internal/clock"
	"github.com/woifh/tcz-server-sub001/internal/domain"
	"github.com/woifh/tcz-server-sub001/internal/notify"
)

// ReservationRepository is the persistence surface the arbiter needs. All
// mutating calls happen inside WithTx; LockSlot serializes concurrent
// attempts on the same slot while leaving other slots untouched.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockSlot(ctx context.Context, slot domain.Slot) error
	ActiveOnSlot(ctx context.Context, slot domain.Slot, exclude uuid.UUID) (bool, error)
	BlockIntersects(ctx context.Context, slot domain.Slot) (bool, error)
	CountActiveRegular(ctx context.Context, member uuid.UUID, now time.Time) (int, error)
	CountActiveShortNotice(ctx context.Context, member uuid.UUID, now time.Time) (int, error)
	Create(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, slot domain.Slot) error
	Cancel(ctx context.Context, id uuid.UUID, cancelReason, overrideReason string, at time.Time) error
	ListActiveByMember(ctx context.Context, member uuid.UUID, now time.Time) ([]domain.Reservation, error)
}

// AuditRecorder appends an immutable record of an administrative mutation.
// Unlike notifications it runs inside the transaction: if it fails, the
// whole operation fails.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

type ReservationService struct {
	repo       ReservationRepository
	audit      AuditRecorder
	dispatcher notify.Dispatcher
	clock      clock.Clock
	zone       clock.Zone
}

func NewReservationService(repo ReservationRepository, audit AuditRecorder, dispatcher notify.Dispatcher, clk clock.Clock, zone clock.Zone) *ReservationService {
	return &ReservationService{
		repo:       repo,
		audit:      audit,
		dispatcher: dispatcher,
		clock:      clk,
		zone:       zone,
	}
}

type CreateReservationInput struct {
	Court     int
	Start     time.Time
	BookedFor uuid.UUID
	BookedBy  uuid.UUID
}

/// Create arbitrates a new reservation: one clock read, one transaction, one
// consistent snapshot. On accept the row is written and both parties are
// notified after commit; on reject nothing changes and nothing is sent.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if in.BookedFor == uuid.Nil || in.BookedBy == uuid.Nil {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	slot, err := domain.NewSlot(in.Court, in.Start, s.zone)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	var res domain.Reservation

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockSlot(txCtx, slot); err != nil {
			return err
		}
		snap, err := s.snapshot(txCtx, slot, in.BookedFor, uuid.Nil, now)
		if err != nil {
			return err
		}
		if err := ValidateCreate(slot, snap, now); err != nil {
			return err
		}

		res = domain.Reservation{
			ID:          uuid.New(),
			Slot:        slot,
			BookedFor:   in.BookedFor,
			BookedBy:    in.BookedBy,
			Status:      domain.ReservationStatusActive,
			ShortNotice: IsShortNotice(slot, now),
			CreatedAt:   now,
		}
		// The partial unique index backs up the lock: a conflicting active
		// row surfaces here as ErrSlotTaken, not an infrastructure error.
		return s.repo.Create(txCtx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.notifyParties(ctx, notify.EventReservationCreated, res, "")
	return res, nil
}

type ModifyReservationInput struct {
	Court int
	Start time.Time
}

// errSlotMoved aborts a modify transaction whose reservation changed slots
// between the snapshot read and the row lock. The caller restarts with a
// fresh transaction so the advisory locks match the reservation's actual
// slot.
var errSlotMoved = errors.New("reservation slot changed during lock acquisition")

const modifyAttempts = 3

// Modify moves a reservation to a new slot. The conflict rules re-apply to
// the target slot with the moving reservation excluded; identity, parties
// and the short-notice flag are unchanged.
//
// Lock order matches Create and the block engine: advisory slot locks first,
// the reservation row lock after. The old slot is read without a row lock,
// so the locked re-read must confirm the slot before validating; a
// concurrent move restarts the transaction.
func (s *ReservationService) Modify(ctx context.Context, id uuid.UUID, in ModifyReservationInput) (domain.Reservation, error) {
	newSlot, err := domain.NewSlot(in.Court, in.Start, s.zone)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	var res domain.Reservation

	for attempt := 0; attempt < modifyAttempts; attempt++ {
		err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
			current, err := s.repo.Get(txCtx, id)
			if err != nil {
				return err
			}
			if current.Status != domain.ReservationStatusActive {
				return domain.ErrReservationNotFound
			}

			for _, slot := range orderSlots(current.Slot, newSlot) {
				if err := s.repo.LockSlot(txCtx, slot); err != nil {
					return err
				}
			}

			locked, err := s.repo.GetForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if locked.Status != domain.ReservationStatusActive {
				return domain.ErrReservationNotFound
			}
			if !locked.Slot.Equal(current.Slot) {
				return errSlotMoved
			}

			snap, err := s.snapshot(txCtx, newSlot, locked.BookedFor, locked.ID, now)
			if err != nil {
				return err
			}
			if err := ValidateSlotChange(newSlot, snap, now); err != nil {
				return err
			}

			if err := s.repo.UpdateSlot(txCtx, locked.ID, newSlot); err != nil {
				return err
			}
			locked.Slot = newSlot
			res = locked
			return nil
		})
		if err != errSlotMoved {
			break
		}
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	s.notifyParties(ctx, notify.EventReservationModified, res, "")
	return res, nil
}

type CancelReservationInput struct {
	Actor uuid.UUID
	// Override marks an administrative cancellation: the window check is
	// bypassed, a reason is mandatory, and the action is audit-recorded.
	Override       bool
	OverrideReason string
}

func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID, in CancelReservationInput) error {
	now := s.clock.Now()
	var res domain.Reservation
	var reason string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.ReservationStatusActive {
			return domain.ErrReservationNotFound
		}

		if in.Override {
			if in.OverrideReason == "" {
				return domain.ErrOverrideReasonRequired
			}
			reason = in.OverrideReason
			payload, err := json.Marshal(map[string]any{
				"reason":    in.OverrideReason,
				"court":     current.Slot.Court,
				"starts_at": current.Slot.Start,
			})
			if err != nil {
				return err
			}
			entry := domain.AuditEntry{
				ID:         uuid.New(),
				Operation:  "reservation.cancel_override",
				TargetID:   current.ID,
				Actor:      in.Actor,
				Payload:    payload,
				RecordedAt: now,
			}
			if err := s.audit.Record(txCtx, entry); err != nil {
				return err
			}
		} else if err := ValidateCancel(current, now); err != nil {
			return err
		}

		if err := s.repo.Cancel(txCtx, current.ID, reason, in.OverrideReason, now); err != nil {
			return err
		}
		res = current
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyParties(ctx, notify.EventReservationCancelled, res, reason)
	return nil
}

// ListActive returns the member's active reservations with a slot end in the
// future, soonest first.
func (s *ReservationService) ListActive(ctx context.Context, member uuid.UUID) ([]domain.Reservation, error) {
	if member == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListActiveByMember(ctx, member, s.clock.Now())
}

// CheckAvailability reports whether the slot is free to book: neither taken
// by an active reservation nor covered by a block.
func (s *ReservationService) CheckAvailability(ctx context.Context, court int, start time.Time) (bool, error) {
	slot, err := domain.NewSlot(court, start, s.zone)
	if err != nil {
		return false, err
	}
	taken, err := s.repo.ActiveOnSlot(ctx, slot, uuid.Nil)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}
	blocked, err := s.repo.BlockIntersects(ctx, slot)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

func (s *ReservationService) snapshot(ctx context.Context, slot domain.Slot, member, exclude uuid.UUID, now time.Time) (Snapshot, error) {
	taken, err := s.repo.ActiveOnSlot(ctx, slot, exclude)
	if err != nil {
		return Snapshot{}, err
	}
	blocked, err := s.repo.BlockIntersects(ctx, slot)
	if err != nil {
		return Snapshot{}, err
	}
	regular, err := s.repo.CountActiveRegular(ctx, member, now)
	if err != nil {
		return Snapshot{}, err
	}
	short, err := s.repo.CountActiveShortNotice(ctx, member, now)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		SlotTaken:        taken,
		Blocked:          blocked,
		RegularCount:     regular,
		ShortNoticeCount: short,
	}, nil
}

func (s *ReservationService) notifyParties(ctx context.Context, typ notify.EventType, res domain.Reservation, reason string) {
	ev := notify.Event{
		Type:          typ,
		Recipient:     res.BookedFor,
		ReservationID: res.ID,
		Court:         res.Slot.Court,
		StartsAt:      res.Slot.Start,
		Reason:        reason,
	}
	s.dispatcher.Send(ctx, ev)
	if res.BookedBy != res.BookedFor {
		ev.Recipient = res.BookedBy
		s.dispatcher.Send(ctx, ev)
	}
}

// orderSlots returns the slots in a deterministic lock order so two
// concurrent modifies swapping slots cannot deadlock.
func orderSlots(a, b domain.Slot) []domain.Slot {
	if a.Equal(b) {
		return []domain.Slot{a}
	}
	slots := []domain.Slot{a, b}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Court != slots[j].Court {
			return slots[i].Court < slots[j].Court
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}
