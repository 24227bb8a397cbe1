package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

// AuditRepository appends to the audit log. It joins the caller's
// transaction, so a failed insert aborts the operation being audited.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	const stmt = `
INSERT INTO audit_log (id, operation, target_id, actor, payload, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	var err error
	if tx := txFromContext(ctx); tx != nil {
		_, err = tx.Exec(ctx, stmt, entry.ID, entry.Operation, entry.TargetID, entry.Actor, entry.Payload, entry.RecordedAt)
	} else {
		_, err = r.pool.Exec(ctx, stmt, entry.ID, entry.Operation, entry.TargetID, entry.Actor, entry.Payload, entry.RecordedAt)
	}
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}
