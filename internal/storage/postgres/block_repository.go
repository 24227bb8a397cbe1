package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockHour takes the same per-slot advisory lock a reservation create takes,
// keyed by court and hour instant.
func (r *BlockRepository) LockHour(ctx context.Context, court int, start time.Time) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errNoTx
	}
	return lockKey(ctx, tx, domain.Slot{Court: court, Start: start}.Key())
}

func (r *BlockRepository) GetReason(ctx context.Context, id uuid.UUID) (domain.BlockReason, error) {
	const query = `SELECT id, name, created_at FROM block_reasons WHERE id = $1`

	var reason domain.BlockReason
	err := r.queryRow(ctx, query, id).Scan(&reason.ID, &reason.Name, &reason.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.BlockReason{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.BlockReason{}, domain.ErrReasonNotFound
		}
		return domain.BlockReason{}, fmt.Errorf("get block reason: %w", err)
	}
	return reason, nil
}

func (r *BlockRepository) CreateBlock(ctx context.Context, block domain.Block) error {
	const stmt = `
INSERT INTO blocks (id, court, starts_at, ends_at, reason_id, reason_name, sub_reason, series_id, modified_from_series, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		block.ID,
		block.Court,
		block.Starts,
		block.Ends,
		block.ReasonID,
		block.ReasonName,
		block.SubReason,
		block.SeriesID,
		block.ModifiedFromSeries,
		block.CreatedBy,
		block.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrReasonNotFound
		}
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

func (r *BlockRepository) CreateSeries(ctx context.Context, series domain.BlockSeries) error {
	const stmt = `
INSERT INTO block_series (id, pattern, weekdays, start_date, end_date, courts, start_hour, end_hour, reason_id, reason_name, sub_reason, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.exec(ctx, stmt,
		series.ID,
		series.Pattern,
		weekdaysToInts(series.Weekdays),
		series.StartDate,
		series.EndDate,
		series.Courts,
		series.StartHour,
		series.EndHour,
		series.ReasonID,
		series.ReasonName,
		series.SubReason,
		series.CreatedBy,
		series.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrReasonNotFound
		}
		return fmt.Errorf("create block series: %w", err)
	}
	return nil
}

func (r *BlockRepository) GetSeries(ctx context.Context, id uuid.UUID) (domain.BlockSeries, error) {
	const query = `
SELECT id, pattern, weekdays, start_date, end_date, courts, start_hour, end_hour, reason_id, reason_name, sub_reason, created_by, created_at
FROM block_series
WHERE id = $1`

	var series domain.BlockSeries
	var weekdays []int16
	err := r.queryRow(ctx, query, id).Scan(
		&series.ID,
		&series.Pattern,
		&weekdays,
		&series.StartDate,
		&series.EndDate,
		&series.Courts,
		&series.StartHour,
		&series.EndHour,
		&series.ReasonID,
		&series.ReasonName,
		&series.SubReason,
		&series.CreatedBy,
		&series.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.BlockSeries{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.BlockSeries{}, domain.ErrSeriesNotFound
		}
		return domain.BlockSeries{}, fmt.Errorf("get block series: %w", err)
	}
	series.Weekdays = intsToWeekdays(weekdays)
	return series, nil
}

func (r *BlockRepository) GetBlockForUpdate(ctx context.Context, id uuid.UUID) (domain.Block, error) {
	const query = `
SELECT id, court, starts_at, ends_at, reason_id, reason_name, sub_reason, series_id, modified_from_series, created_by, created_at
FROM blocks
WHERE id = $1
FOR UPDATE`

	block, err := scanBlock(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Block{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Block{}, domain.ErrBlockNotFound
		}
		return domain.Block{}, fmt.Errorf("get block: %w", err)
	}
	return block, nil
}

func (r *BlockRepository) ListSeriesBlocksForUpdate(ctx context.Context, seriesID uuid.UUID, from *time.Time, includeModified bool) ([]domain.Block, error) {
	const query = `
SELECT id, court, starts_at, ends_at, reason_id, reason_name, sub_reason, series_id, modified_from_series, created_by, created_at
FROM blocks
WHERE series_id = $1
  AND ($2::timestamptz IS NULL OR starts_at >= $2)
  AND ($3::boolean OR NOT modified_from_series)
ORDER BY starts_at, court
FOR UPDATE`

	rows, err := r.query(ctx, query, seriesID, from, includeModified)
	if err != nil {
		return nil, fmt.Errorf("list series blocks: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func (r *BlockRepository) UpdateBlock(ctx context.Context, block domain.Block) error {
	const stmt = `
UPDATE blocks
SET starts_at = $2, ends_at = $3, reason_id = $4, reason_name = $5, sub_reason = $6, modified_from_series = $7
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		block.ID,
		block.Starts,
		block.Ends,
		block.ReasonID,
		block.ReasonName,
		block.SubReason,
		block.ModifiedFromSeries,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrReasonNotFound
		}
		return fmt.Errorf("update block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}

func (r *BlockRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}

func (r *BlockRepository) DeleteSeriesBlocks(ctx context.Context, seriesID uuid.UUID, from *time.Time) ([]domain.Block, error) {
	const stmt = `
DELETE FROM blocks
WHERE series_id = $1 AND ($2::timestamptz IS NULL OR starts_at >= $2)
RETURNING id, court, starts_at, ends_at, reason_id, reason_name, sub_reason, series_id, modified_from_series, created_by, created_at`

	rows, err := r.query(ctx, stmt, seriesID, from)
	if err != nil {
		return nil, fmt.Errorf("delete series blocks: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func (r *BlockRepository) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	tag, err := r.exec(ctx, `DELETE FROM block_series WHERE id = $1`, seriesID)
	if err != nil {
		return fmt.Errorf("delete block series: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSeriesNotFound
	}
	return nil
}

// CancelActiveInRange cancels every active reservation on the court whose
// hour intersects [starts, ends) and returns the cancelled rows for the
// displacement notifications.
func (r *BlockRepository) CancelActiveInRange(ctx context.Context, court int, starts, ends time.Time, reason string, at time.Time) ([]domain.Reservation, error) {
	const stmt = `
UPDATE reservations
SET status = 'cancelled', cancel_reason = $4, cancelled_at = $5
WHERE court = $1 AND status = 'active' AND starts_at < $3 AND ends_at > $2
RETURNING id, court, starts_at, booked_for, booked_by, status, short_notice, override_reason, cancel_reason, created_at, cancelled_at`

	rows, err := r.query(ctx, stmt, court, starts, ends, reason, at)
	if err != nil {
		return nil, fmt.Errorf("cancel reservations in range: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("cancel reservations in range: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *BlockRepository) ListBlocksInRange(ctx context.Context, from, to time.Time) ([]domain.Block, error) {
	const query = `
SELECT id, court, starts_at, ends_at, reason_id, reason_name, sub_reason, series_id, modified_from_series, created_by, created_at
FROM blocks
WHERE starts_at < $2 AND ends_at > $1
ORDER BY starts_at, court`

	rows, err := r.query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocks in range: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func scanBlock(row pgx.Row) (domain.Block, error) {
	var b domain.Block
	err := row.Scan(
		&b.ID,
		&b.Court,
		&b.Starts,
		&b.Ends,
		&b.ReasonID,
		&b.ReasonName,
		&b.SubReason,
		&b.SeriesID,
		&b.ModifiedFromSeries,
		&b.CreatedBy,
		&b.CreatedAt,
	)
	return b, err
}

func collectBlocks(rows pgx.Rows) ([]domain.Block, error) {
	var out []domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func weekdaysToInts(weekdays []time.Weekday) []int16 {
	out := make([]int16, len(weekdays))
	for i, wd := range weekdays {
		out[i] = int16(wd)
	}
	return out
}

func intsToWeekdays(ints []int16) []time.Weekday {
	if len(ints) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(ints))
	for i, v := range ints {
		out[i] = time.Weekday(v)
	}
	return out
}

func (r *BlockRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BlockRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BlockRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
