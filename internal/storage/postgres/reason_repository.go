package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

type ReasonRepository struct {
	pool *pgxpool.Pool
}

func NewReasonRepository(pool *pgxpool.Pool) *ReasonRepository {
	return &ReasonRepository{pool: pool}
}

func (r *ReasonRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReasonRepository) Create(ctx context.Context, reason domain.BlockReason) error {
	const stmt = `INSERT INTO block_reasons (id, name, created_at) VALUES ($1, $2, $3)`

	if _, err := r.exec(ctx, stmt, reason.ID, reason.Name, reason.CreatedAt); err != nil {
		return fmt.Errorf("create block reason: %w", err)
	}
	return nil
}

func (r *ReasonRepository) List(ctx context.Context) ([]domain.BlockReason, error) {
	const query = `SELECT id, name, created_at FROM block_reasons ORDER BY created_at, name`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list block reasons: %w", err)
	}
	defer rows.Close()

	var out []domain.BlockReason
	for rows.Next() {
		var reason domain.BlockReason
		if err := rows.Scan(&reason.ID, &reason.Name, &reason.CreatedAt); err != nil {
			return nil, fmt.Errorf("list block reasons: %w", err)
		}
		out = append(out, reason)
	}
	return out, rows.Err()
}

func (r *ReasonRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReasonRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
