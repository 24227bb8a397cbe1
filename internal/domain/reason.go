package domain

import (
	"time"

	"github.com/google/uuid"
)

// BlockReason is an append-only lookup entry for block reason texts.
// Renaming a reason creates a new row; blocks keep the name they were
// created with, so historical display text never changes retroactively.
type BlockReason struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}
