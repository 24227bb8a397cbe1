package domain

import (
	"time"

	"github.com/google/uuid"
)

// Member is the minimal member record the engine references. Member
// management itself lives outside this service.
type Member struct {
	ID        uuid.UUID
	Name      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}
