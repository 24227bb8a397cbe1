package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

// errNoTx guards the advisory lock helpers: taking a transaction-scoped lock
// outside a transaction would silently release it immediately.
var errNoTx = errors.New("postgres: advisory lock requires a transaction")

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockSlot serializes concurrent work on one slot. The key is shared with the
// block engine's LockHour, so a booking and a block sweeping the same hour
// cannot interleave.
func (r *ReservationRepository) LockSlot(ctx context.Context, slot domain.Slot) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errNoTx
	}
	return lockKey(ctx, tx, slot.Key())
}

func (r *ReservationRepository) ActiveOnSlot(ctx context.Context, slot domain.Slot, exclude uuid.UUID) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM reservations
	WHERE court = $1 AND starts_at = $2 AND status = 'active' AND id <> $3
)`

	var taken bool
	if err := r.queryRow(ctx, query, slot.Court, slot.Start, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("active on slot: %w", err)
	}
	return taken, nil
}

func (r *ReservationRepository) BlockIntersects(ctx context.Context, slot domain.Slot) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM blocks
	WHERE court = $1 AND starts_at < $3 AND ends_at > $2
)`

	var blocked bool
	if err := r.queryRow(ctx, query, slot.Court, slot.Start, slot.End()).Scan(&blocked); err != nil {
		return false, fmt.Errorf("block intersects: %w", err)
	}
	return blocked, nil
}

// CountActiveRegular counts active non-short-notice reservations that have
// not yet started. Cancelled and elapsed rows never count against the cap.
func (r *ReservationRepository) CountActiveRegular(ctx context.Context, member uuid.UUID, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*) FROM reservations
WHERE booked_for = $1 AND status = 'active' AND NOT short_notice AND starts_at > $2`

	var n int
	if err := r.queryRow(ctx, query, member, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active regular: %w", err)
	}
	return n, nil
}

// CountActiveShortNotice counts by slot end, not start: a short-notice
// booking occupies its quota slot until the hour is over.
func (r *ReservationRepository) CountActiveShortNotice(ctx context.Context, member uuid.UUID, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*) FROM reservations
WHERE booked_for = $1 AND status = 'active' AND short_notice AND ends_at > $2`

	var n int
	if err := r.queryRow(ctx, query, member, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active short notice: %w", err)
	}
	return n, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, court, starts_at, ends_at, booked_for, booked_by, status, short_notice, override_reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.Slot.Court,
		res.Slot.Start,
		res.Slot.End(),
		res.BookedFor,
		res.BookedBy,
		res.Status,
		res.ShortNotice,
		res.OverrideReason,
		res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotTaken
		}
		if isForeignKeyViolation(err) {
			return domain.ErrMemberNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const query = `
SELECT id, court, starts_at, booked_for, booked_by, status, short_notice, override_reason, cancel_reason, created_at, cancelled_at
FROM reservations
WHERE id = $1`

	res, err := scanReservation(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const query = `
SELECT id, court, starts_at, booked_for, booked_by, status, short_notice, override_reason, cancel_reason, created_at, cancelled_at
FROM reservations
WHERE id = $1
FOR UPDATE`

	res, err := scanReservation(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) UpdateSlot(ctx context.Context, id uuid.UUID, slot domain.Slot) error {
	const stmt = `
UPDATE reservations SET court = $2, starts_at = $3, ends_at = $4
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, id, slot.Court, slot.Start, slot.End())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotTaken
		}
		return fmt.Errorf("update reservation slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) Cancel(ctx context.Context, id uuid.UUID, cancelReason, overrideReason string, at time.Time) error {
	const stmt = `
UPDATE reservations
SET status = 'cancelled', cancel_reason = $2, override_reason = CASE WHEN $3 <> '' THEN $3 ELSE override_reason END, cancelled_at = $4
WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, id, cancelReason, overrideReason, at)
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) ListActiveByMember(ctx context.Context, member uuid.UUID, now time.Time) ([]domain.Reservation, error) {
	const query = `
SELECT id, court, starts_at, booked_for, booked_by, status, short_notice, override_reason, cancel_reason, created_at, cancelled_at
FROM reservations
WHERE booked_for = $1 AND status = 'active' AND ends_at > $2
ORDER BY starts_at`

	rows, err := r.query(ctx, query, member, now)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("list active reservations: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var court int
	var startsAt time.Time
	err := row.Scan(
		&res.ID,
		&court,
		&startsAt,
		&res.BookedFor,
		&res.BookedBy,
		&res.Status,
		&res.ShortNotice,
		&res.OverrideReason,
		&res.CancelReason,
		&res.CreatedAt,
		&res.CancelledAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Slot = domain.Slot{Court: court, Start: startsAt.UTC()}
	return res, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
