package app

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/woifh/tcz-server-sub001/internal/clock"
	"github.com/woifh/tcz-server-sub001/internal/domain"
)

type ReasonRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, reason domain.BlockReason) error
	List(ctx context.Context) ([]domain.BlockReason, error)
}

// ReasonService manages the append-only block reason lookup. A rename is a
// new row; existing blocks keep the name they snapshotted at creation.
type ReasonService struct {
	repo  ReasonRepository
	audit AuditRecorder
	clock clock.Clock
}

func NewReasonService(repo ReasonRepository, audit AuditRecorder, clk clock.Clock) *ReasonService {
	return &ReasonService{repo: repo, audit: audit, clock: clk}
}

func (s *ReasonService) Create(ctx context.Context, name string, actor uuid.UUID) (domain.BlockReason, error) {
	if name == "" {
		return domain.BlockReason{}, domain.ErrReasonNameRequired
	}

	now := s.clock.Now()
	reason := domain.BlockReason{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, reason); err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{"name": name})
		if err != nil {
			return err
		}
		return s.audit.Record(txCtx, domain.AuditEntry{
			ID:         uuid.New(),
			Operation:  "reason.create",
			TargetID:   reason.ID,
			Actor:      actor,
			Payload:    payload,
			RecordedAt: now,
		})
	})
	if err != nil {
		return domain.BlockReason{}, err
	}
	return reason, nil
}

func (s *ReasonService) List(ctx context.Context) ([]domain.BlockReason, error) {
	return s.repo.List(ctx)
}
