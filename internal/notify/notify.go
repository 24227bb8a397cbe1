package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationModified  EventType = "reservation.modified"
	EventReservationCancelled EventType = "reservation.cancelled"
	// Displaced means the reservation was cancelled by an administrative block.
	EventReservationDisplaced EventType = "reservation.displaced"
)

// Event carries enough context for the notification worker to render a
// message without reading back from the database.
type Event struct {
	Type          EventType `json:"type"`
	Recipient     uuid.UUID `json:"recipient"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Court         int       `json:"court"`
	StartsAt      time.Time `json:"starts_at"`
	Reason        string    `json:"reason,omitempty"`
}

// Dispatcher delivers events best-effort. Implementations never return an
// error: delivery failure must not affect the operation that produced the
// event, so failures are logged at the dispatch boundary instead.
type Dispatcher interface {
	Send(ctx context.Context, ev Event)
}

// LogDispatcher writes events to the log. Used in development and as the
// fallback when no broker is configured.
type LogDispatcher struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *LogDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, ev Event) {
	d.logger.Printf("notify type=%s recipient=%s reservation=%s court=%d starts=%s reason=%q",
		ev.Type, ev.Recipient, ev.ReservationID, ev.Court, ev.StartsAt.Format(time.RFC3339), ev.Reason)
}
