package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/woifh/tcz-server-sub001/internal/clock"
	"github.com/woifh/tcz-server-sub001/internal/domain"
	"github.com/woifh/tcz-server-sub001/internal/notify"
)

// BlockRepository is the persistence surface of the block engine. LockHour
// uses the same per-slot arbitration key as reservation creation, so a block
// sweeping a range cannot race a create that is mid-flight on one of its
// slots.
type BlockRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockHour(ctx context.Context, court int, start time.Time) error
	GetReason(ctx context.Context, id uuid.UUID) (domain.BlockReason, error)
	CreateBlock(ctx context.Context, block domain.Block) error
	CreateSeries(ctx context.Context, series domain.BlockSeries) error
	GetSeries(ctx context.Context, id uuid.UUID) (domain.BlockSeries, error)
	GetBlockForUpdate(ctx context.Context, id uuid.UUID) (domain.Block, error)
	// ListSeriesBlocksForUpdate locks and returns the series instances in
	// date order, optionally bounded below and, for bulk edits, with
	// individually modified instances excluded.
	ListSeriesBlocksForUpdate(ctx context.Context, seriesID uuid.UUID, from *time.Time, includeModified bool) ([]domain.Block, error)
	UpdateBlock(ctx context.Context, block domain.Block) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	DeleteSeriesBlocks(ctx context.Context, seriesID uuid.UUID, from *time.Time) ([]domain.Block, error)
	DeleteSeries(ctx context.Context, seriesID uuid.UUID) error
	CancelActiveInRange(ctx context.Context, court int, starts, ends time.Time, reason string, at time.Time) ([]domain.Reservation, error)
	ListBlocksInRange(ctx context.Context, from, to time.Time) ([]domain.Block, error)
}

type BlockService struct {
	repo       BlockRepository
	audit      AuditRecorder
	dispatcher notify.Dispatcher
	clock      clock.Clock
	zone       clock.Zone
}

func NewBlockService(repo BlockRepository, audit AuditRecorder, dispatcher notify.Dispatcher, clk clock.Clock, zone clock.Zone) *BlockService {
	return &BlockService{
		repo:       repo,
		audit:      audit,
		dispatcher: dispatcher,
		clock:      clk,
		zone:       zone,
	}
}

type CreateBlockInput struct {
	Courts []int
	// Date is the civil date the block falls on; StartHour/EndHour are
	// display-zone hours bounding the half-open interval.
	Date      time.Time
	StartHour int
	EndHour   int
	ReasonID  uuid.UUID
	SubReason string
	Actor     uuid.UUID
}

type CreateBlockResult struct {
	Blocks    []domain.Block
	Cancelled []domain.Reservation
}

// CreateBlock writes one block per court and cascades cancellation of every
// active reservation whose slot intersects the interval. Block rows, the
// cascade and the audit records commit atomically; displacement
// notifications go out after commit.
func (s *BlockService) CreateBlock(ctx context.Context, in CreateBlockInput) (CreateBlockResult, error) {
	courts, err := normalizeCourts(in.Courts)
	if err != nil {
		return CreateBlockResult{}, err
	}
	if err := validateHours(in.StartHour, in.EndHour); err != nil {
		return CreateBlockResult{}, err
	}

	now := s.clock.Now()
	var result CreateBlockResult

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		reason, err := s.repo.GetReason(txCtx, in.ReasonID)
		if err != nil {
			return err
		}

		date := domain.Date(in.Date)
		for _, court := range courts {
			if err := s.lockHours(txCtx, court, date, in.StartHour, in.EndHour); err != nil {
				return err
			}

			block := domain.Block{
				ID:         uuid.New(),
				Court:      court,
				Starts:     s.hourInstant(date, in.StartHour),
				Ends:       s.hourInstant(date, in.EndHour),
				ReasonID:   reason.ID,
				ReasonName: reason.Name,
				SubReason:  in.SubReason,
				CreatedBy:  in.Actor,
				CreatedAt:  now,
			}
			if err := s.repo.CreateBlock(txCtx, block); err != nil {
				return err
			}

			cancelled, err := s.repo.CancelActiveInRange(txCtx, court, block.Starts, block.Ends, reason.Name, now)
			if err != nil {
				return err
			}

			if err := s.recordAudit(txCtx, "block.create", block.ID, in.Actor, now, map[string]any{
				"court":      court,
				"starts_at":  block.Starts,
				"ends_at":    block.Ends,
				"reason":     reason.Name,
				"sub_reason": in.SubReason,
				"cancelled":  len(cancelled),
			}); err != nil {
				return err
			}

			result.Blocks = append(result.Blocks, block)
			result.Cancelled = append(result.Cancelled, cancelled...)
		}
		return nil
	})
	if err != nil {
		return CreateBlockResult{}, err
	}

	s.notifyDisplaced(ctx, result.Cancelled)
	return result, nil
}

type CreateSeriesInput struct {
	Pattern   domain.RecurrencePattern
	Weekdays  []time.Weekday
	StartDate time.Time
	EndDate   time.Time
	Courts    []int
	StartHour int
	EndHour   int
	ReasonID  uuid.UUID
	SubReason string
	Actor     uuid.UUID
}

type CreateSeriesResult struct {
	Series    domain.BlockSeries
	Blocks    []domain.Block
	Cancelled []domain.Reservation
}

// CreateSeries expands the recurrence into dated instances, one block per
// expanded date per court, all linked by a fresh series id. Rejected
// recurrences create zero rows.
func (s *BlockService) CreateSeries(ctx context.Context, in CreateSeriesInput) (CreateSeriesResult, error) {
	courts, err := normalizeCourts(in.Courts)
	if err != nil {
		return CreateSeriesResult{}, err
	}
	if err := validateHours(in.StartHour, in.EndHour); err != nil {
		return CreateSeriesResult{}, err
	}

	now := s.clock.Now()
	series := domain.BlockSeries{
		ID:        uuid.New(),
		Pattern:   in.Pattern,
		Weekdays:  in.Weekdays,
		StartDate: domain.Date(in.StartDate),
		EndDate:   domain.Date(in.EndDate),
		Courts:    courts,
		StartHour: in.StartHour,
		EndHour:   in.EndHour,
		ReasonID:  in.ReasonID,
		SubReason: in.SubReason,
		CreatedBy: in.Actor,
		CreatedAt: now,
	}
	if in.EndDate.IsZero() {
		series.EndDate = time.Time{}
	}

	dates, err := series.ExpandDates()
	if err != nil {
		return CreateSeriesResult{}, err
	}

	var result CreateSeriesResult
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		reason, err := s.repo.GetReason(txCtx, in.ReasonID)
		if err != nil {
			return err
		}
		series.ReasonName = reason.Name

		if err := s.repo.CreateSeries(txCtx, series); err != nil {
			return err
		}

		for _, date := range dates {
			for _, court := range courts {
				if err := s.lockHours(txCtx, court, date, in.StartHour, in.EndHour); err != nil {
					return err
				}

				seriesID := series.ID
				block := domain.Block{
					ID:         uuid.New(),
					Court:      court,
					Starts:     s.hourInstant(date, in.StartHour),
					Ends:       s.hourInstant(date, in.EndHour),
					ReasonID:   reason.ID,
					ReasonName: reason.Name,
					SubReason:  in.SubReason,
					SeriesID:   &seriesID,
					CreatedBy:  in.Actor,
					CreatedAt:  now,
				}
				if err := s.repo.CreateBlock(txCtx, block); err != nil {
					return err
				}

				cancelled, err := s.repo.CancelActiveInRange(txCtx, court, block.Starts, block.Ends, reason.Name, now)
				if err != nil {
					return err
				}
				result.Blocks = append(result.Blocks, block)
				result.Cancelled = append(result.Cancelled, cancelled...)
			}
		}

		return s.recordAudit(txCtx, "block.series.create", series.ID, in.Actor, now, map[string]any{
			"pattern":    string(in.Pattern),
			"start_date": series.StartDate,
			"end_date":   series.EndDate,
			"courts":     courts,
			"start_hour": in.StartHour,
			"end_hour":   in.EndHour,
			"reason":     series.ReasonName,
			"instances":  len(result.Blocks),
			"cancelled":  len(result.Cancelled),
		})
	})
	if err != nil {
		return CreateSeriesResult{}, err
	}

	result.Series = series
	s.notifyDisplaced(ctx, result.Cancelled)
	return result, nil
}

// BlockChanges are the mutable fields a series edit may rewrite. StartHour
// and EndHour must be set together so an instance's interval is never
// half-updated.
type BlockChanges struct {
	ReasonID  *uuid.UUID
	SubReason *string
	StartHour *int
	EndHour   *int
}

type EditSeriesInput struct {
	Scope domain.SeriesScope
	// FromDate bounds a from_date edit.
	FromDate time.Time
	// BlockID selects the instance for a single edit.
	BlockID uuid.UUID
	Changes BlockChanges
	Actor   uuid.UUID
}

type EditSeriesResult struct {
	Updated   []domain.Block
	Cancelled []domain.Reservation
}

// EditSeries rewrites the targeted instances. Bulk scopes (entire,
// from_date) skip instances flagged modified-from-series: their divergence
// is intentional. A single edit sets that flag, detaching the instance from
// later bulk edits.
func (s *BlockService) EditSeries(ctx context.Context, seriesID uuid.UUID, in EditSeriesInput) (EditSeriesResult, error) {
	if !in.Scope.Valid() {
		return EditSeriesResult{}, domain.ErrInvalidSeriesScope
	}
	if (in.Changes.StartHour == nil) != (in.Changes.EndHour == nil) {
		return EditSeriesResult{}, domain.ErrInvalidTime
	}
	if in.Changes.StartHour != nil {
		if err := validateHours(*in.Changes.StartHour, *in.Changes.EndHour); err != nil {
			return EditSeriesResult{}, err
		}
	}

	now := s.clock.Now()
	var result EditSeriesResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetSeries(txCtx, seriesID); err != nil {
			return err
		}

		var reason *domain.BlockReason
		if in.Changes.ReasonID != nil {
			r, err := s.repo.GetReason(txCtx, *in.Changes.ReasonID)
			if err != nil {
				return err
			}
			reason = &r
		}

		targets, err := s.editTargets(txCtx, seriesID, in)
		if err != nil {
			return err
		}

		for _, block := range targets {
			if reason != nil {
				block.ReasonID = reason.ID
				block.ReasonName = reason.Name
			}
			if in.Changes.SubReason != nil {
				block.SubReason = *in.Changes.SubReason
			}

			intervalChanged := false
			if in.Changes.StartHour != nil {
				date := domain.Date(s.zone.ToDisplay(block.Starts))
				newStarts := s.hourInstant(date, *in.Changes.StartHour)
				newEnds := s.hourInstant(date, *in.Changes.EndHour)
				intervalChanged = !newStarts.Equal(block.Starts) || !newEnds.Equal(block.Ends)
				block.Starts = newStarts
				block.Ends = newEnds
			}
			if in.Scope == domain.ScopeSingle {
				block.ModifiedFromSeries = true
			}

			if err := s.repo.UpdateBlock(txCtx, block); err != nil {
				return err
			}

			if intervalChanged {
				date := domain.Date(s.zone.ToDisplay(block.Starts))
				if err := s.lockHours(txCtx, block.Court, date, *in.Changes.StartHour, *in.Changes.EndHour); err != nil {
					return err
				}
				cancelled, err := s.repo.CancelActiveInRange(txCtx, block.Court, block.Starts, block.Ends, block.ReasonName, now)
				if err != nil {
					return err
				}
				result.Cancelled = append(result.Cancelled, cancelled...)
			}
			result.Updated = append(result.Updated, block)
		}

		return s.recordAudit(txCtx, "block.series.edit", seriesID, in.Actor, now, map[string]any{
			"scope":     string(in.Scope),
			"updated":   len(result.Updated),
			"cancelled": len(result.Cancelled),
		})
	})
	if err != nil {
		return EditSeriesResult{}, err
	}

	s.notifyDisplaced(ctx, result.Cancelled)
	return result, nil
}

type DeleteSeriesInput struct {
	Scope    domain.SeriesScope
	FromDate time.Time
	BlockID  uuid.UUID
	Actor    uuid.UUID
}

type DeleteSeriesResult struct {
	Deleted []domain.Block
}

// DeleteSeries removes the targeted instances; the entire scope also removes
// the series row itself. Deleting a block frees its slots, so no cascade
// runs here.
func (s *BlockService) DeleteSeries(ctx context.Context, seriesID uuid.UUID, in DeleteSeriesInput) (DeleteSeriesResult, error) {
	if !in.Scope.Valid() {
		return DeleteSeriesResult{}, domain.ErrInvalidSeriesScope
	}

	now := s.clock.Now()
	var result DeleteSeriesResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetSeries(txCtx, seriesID); err != nil {
			return err
		}

		switch in.Scope {
		case domain.ScopeEntire:
			deleted, err := s.repo.DeleteSeriesBlocks(txCtx, seriesID, nil)
			if err != nil {
				return err
			}
			if err := s.repo.DeleteSeries(txCtx, seriesID); err != nil {
				return err
			}
			result.Deleted = deleted

		case domain.ScopeFromDate:
			if in.FromDate.IsZero() {
				return domain.ErrInvalidSeriesScope
			}
			from := s.hourInstant(domain.Date(in.FromDate), 0)
			deleted, err := s.repo.DeleteSeriesBlocks(txCtx, seriesID, &from)
			if err != nil {
				return err
			}
			result.Deleted = deleted

		case domain.ScopeSingle:
			block, err := s.repo.GetBlockForUpdate(txCtx, in.BlockID)
			if err != nil {
				return err
			}
			if block.SeriesID == nil || *block.SeriesID != seriesID {
				return domain.ErrBlockNotFound
			}
			if err := s.repo.DeleteBlock(txCtx, block.ID); err != nil {
				return err
			}
			result.Deleted = []domain.Block{block}
		}

		return s.recordAudit(txCtx, "block.series.delete", seriesID, in.Actor, now, map[string]any{
			"scope":   string(in.Scope),
			"deleted": len(result.Deleted),
		})
	})
	if err != nil {
		return DeleteSeriesResult{}, err
	}
	return result, nil
}

// DeleteBlock removes a single standalone or series block.
func (s *BlockService) DeleteBlock(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		block, err := s.repo.GetBlockForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteBlock(txCtx, block.ID); err != nil {
			return err
		}
		return s.recordAudit(txCtx, "block.delete", block.ID, actor, now, map[string]any{
			"court":     block.Court,
			"starts_at": block.Starts,
			"ends_at":   block.Ends,
			"reason":    block.ReasonName,
		})
	})
}

// ListBlocks returns all blocks overlapping [from, to).
func (s *BlockService) ListBlocks(ctx context.Context, from, to time.Time) ([]domain.Block, error) {
	if !to.After(from) {
		return nil, domain.ErrInvalidTime
	}
	return s.repo.ListBlocksInRange(ctx, from, to)
}

func (s *BlockService) editTargets(ctx context.Context, seriesID uuid.UUID, in EditSeriesInput) ([]domain.Block, error) {
	switch in.Scope {
	case domain.ScopeEntire:
		return s.repo.ListSeriesBlocksForUpdate(ctx, seriesID, nil, false)
	case domain.ScopeFromDate:
		if in.FromDate.IsZero() {
			return nil, domain.ErrInvalidSeriesScope
		}
		from := s.hourInstant(domain.Date(in.FromDate), 0)
		return s.repo.ListSeriesBlocksForUpdate(ctx, seriesID, &from, false)
	case domain.ScopeSingle:
		block, err := s.repo.GetBlockForUpdate(ctx, in.BlockID)
		if err != nil {
			return nil, err
		}
		if block.SeriesID == nil || *block.SeriesID != seriesID {
			return nil, domain.ErrBlockNotFound
		}
		return []domain.Block{block}, nil
	}
	return nil, domain.ErrInvalidSeriesScope
}

func (s *BlockService) lockHours(ctx context.Context, court int, date time.Time, startHour, endHour int) error {
	for h := startHour; h < endHour; h++ {
		if err := s.repo.LockHour(ctx, court, s.hourInstant(date, h)); err != nil {
			return err
		}
	}
	return nil
}

// hourInstant resolves a civil date plus display-zone hour to its UTC
// instant. Hour 24 normalizes to midnight of the next day.
func (s *BlockService) hourInstant(date time.Time, hour int) time.Time {
	return s.zone.At(date.Year(), date.Month(), date.Day(), hour)
}

func (s *BlockService) recordAudit(ctx context.Context, operation string, target, actor uuid.UUID, now time.Time, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.audit.Record(ctx, domain.AuditEntry{
		ID:         uuid.New(),
		Operation:  operation,
		TargetID:   target,
		Actor:      actor,
		Payload:    raw,
		RecordedAt: now,
	})
}

func (s *BlockService) notifyDisplaced(ctx context.Context, cancelled []domain.Reservation) {
	for _, res := range cancelled {
		ev := notify.Event{
			Type:          notify.EventReservationDisplaced,
			Recipient:     res.BookedFor,
			ReservationID: res.ID,
			Court:         res.Slot.Court,
			StartsAt:      res.Slot.Start,
			Reason:        res.CancelReason,
		}
		s.dispatcher.Send(ctx, ev)
		if res.BookedBy != res.BookedFor {
			ev.Recipient = res.BookedBy
			s.dispatcher.Send(ctx, ev)
		}
	}
}

func normalizeCourts(courts []int) ([]int, error) {
	if len(courts) == 0 {
		return nil, domain.ErrInvalidCourt
	}
	seen := make(map[int]bool, len(courts))
	out := make([]int, 0, len(courts))
	for _, c := range courts {
		if c < domain.MinCourt || c > domain.MaxCourt {
			return nil, domain.ErrInvalidCourt
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Ints(out)
	return out, nil
}

func validateHours(start, end int) error {
	if start < 0 || end > 24 || start >= end {
		return domain.ErrInvalidTime
	}
	return nil
}
