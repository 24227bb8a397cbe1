package domain

import (
	"time"

	"github.com/google/uuid"
)

// Block is an administrative hold on one court over a half-open interval
// [Starts, Ends). Any reservation whose slot intersects the interval is
// cancelled when the block is created.
type Block struct {
	ID       uuid.UUID
	Court    int
	Starts   time.Time
	Ends     time.Time
	ReasonID uuid.UUID
	// ReasonName is snapshotted from the reason table at creation so later
	// renames do not rewrite historical blocks.
	ReasonName string
	SubReason  string
	SeriesID   *uuid.UUID
	// ModifiedFromSeries marks an instance whose fields were edited
	// individually; series-wide edits skip such instances.
	ModifiedFromSeries bool
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
}

// Intersects reports whether the block overlaps the slot's hour.
func (b Block) Intersects(s Slot) bool {
	return b.Court == s.Court && s.Start.Before(b.Ends) && b.Starts.Before(s.End())
}
