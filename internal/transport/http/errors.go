package http

import (
	"encoding/json"
	"net/http"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

const (
	codeNotFound                = "not_found"
	codeInvalidRequestBody      = "invalid_request_body"
	codeInvalidID               = "invalid_id"
	codeInvalidCourt            = "invalid_court"
	codeInvalidTime             = "invalid_time"
	codePastBooking             = "past_booking"
	codeSlotTaken               = "slot_taken"
	codeBlocked                 = "blocked"
	codeRegularLimitExceeded    = "regular_limit_exceeded"
	codeShortNoticeLimit        = "short_notice_limit_exceeded"
	codeCancellationClosed      = "cancellation_window_closed"
	codeSeriesMissingEndDate    = "series_missing_end_date"
	codeInvalidRecurrence       = "invalid_recurrence"
	codeInvalidSeriesScope      = "invalid_series_scope"
	codeOverrideReasonRequired  = "override_reason_required"
	codeReasonNameRequired      = "reason_name_required"
	codeReservationNotFound     = "reservation_not_found"
	codeBlockNotFound           = "block_not_found"
	codeSeriesNotFound          = "series_not_found"
	codeReasonNotFound          = "reason_not_found"
	codeMemberNotFound          = "member_not_found"
	codeInternalError           = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDomainError maps the domain sentinels to their HTTP shape. Validation
// failures are 400 or 409 depending on whether the request could ever
// succeed; unknown errors stay opaque.
func writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrInvalidCourt:
		writeError(w, http.StatusBadRequest, codeInvalidCourt, err.Error())
	case domain.ErrInvalidTime:
		writeError(w, http.StatusBadRequest, codeInvalidTime, err.Error())
	case domain.ErrPastBooking:
		writeError(w, http.StatusBadRequest, codePastBooking, err.Error())
	case domain.ErrSlotTaken:
		writeError(w, http.StatusConflict, codeSlotTaken, err.Error())
	case domain.ErrBlocked:
		writeError(w, http.StatusConflict, codeBlocked, err.Error())
	case domain.ErrRegularLimitExceeded:
		writeError(w, http.StatusConflict, codeRegularLimitExceeded, err.Error())
	case domain.ErrShortNoticeLimitExceeded:
		writeError(w, http.StatusConflict, codeShortNoticeLimit, err.Error())
	case domain.ErrCancellationWindowClosed:
		writeError(w, http.StatusConflict, codeCancellationClosed, err.Error())
	case domain.ErrSeriesMissingEndDate:
		writeError(w, http.StatusBadRequest, codeSeriesMissingEndDate, err.Error())
	case domain.ErrInvalidRecurrence:
		writeError(w, http.StatusBadRequest, codeInvalidRecurrence, err.Error())
	case domain.ErrInvalidSeriesScope:
		writeError(w, http.StatusBadRequest, codeInvalidSeriesScope, err.Error())
	case domain.ErrOverrideReasonRequired:
		writeError(w, http.StatusBadRequest, codeOverrideReasonRequired, err.Error())
	case domain.ErrReasonNameRequired:
		writeError(w, http.StatusBadRequest, codeReasonNameRequired, err.Error())
	case domain.ErrReservationNotFound:
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case domain.ErrBlockNotFound:
		writeError(w, http.StatusNotFound, codeBlockNotFound, err.Error())
	case domain.ErrSeriesNotFound:
		writeError(w, http.StatusNotFound, codeSeriesNotFound, err.Error())
	case domain.ErrReasonNotFound:
		writeError(w, http.StatusNotFound, codeReasonNotFound, err.Error())
	case domain.ErrMemberNotFound:
		writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
