package domain

import "errors"

// Validation rejections. These are expected outcomes, returned as values and
// mapped to response codes by the transport layer; they never carry stack
// context and are compared with errors.Is.
var (
	ErrInvalidCourt             = errors.New("invalid court")
	ErrInvalidTime              = errors.New("invalid time")
	ErrPastBooking              = errors.New("booking time is in the past")
	ErrSlotTaken                = errors.New("slot already taken")
	ErrBlocked                  = errors.New("slot is blocked")
	ErrRegularLimitExceeded     = errors.New("regular reservation limit exceeded")
	ErrShortNoticeLimitExceeded = errors.New("short-notice reservation limit exceeded")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrSeriesMissingEndDate     = errors.New("series end date is required")
	ErrInvalidRecurrence        = errors.New("invalid recurrence")
	ErrInvalidSeriesScope       = errors.New("invalid series scope")
	ErrOverrideReasonRequired   = errors.New("override reason is required")
	ErrReasonNameRequired       = errors.New("reason name is required")
)

// Lookup failures.
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrBlockNotFound       = errors.New("block not found")
	ErrSeriesNotFound      = errors.New("series not found")
	ErrReasonNotFound      = errors.New("reason not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrInvalidID           = errors.New("invalid id")
)
