package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is an immutable record of an administrative mutation. Recording
// is synchronous and its failure aborts the originating operation.
type AuditEntry struct {
	ID         uuid.UUID
	Operation  string
	TargetID   uuid.UUID
	Actor      uuid.UUID
	Payload    json.RawMessage
	RecordedAt time.Time
}
