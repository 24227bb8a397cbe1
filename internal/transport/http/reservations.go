package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/woifh/tcz-server-sub001/internal/app"
	"github.com/woifh/tcz-server-sub001/internal/domain"
)

// ReservationAPI is the slice of the reservation service the handlers need.
type ReservationAPI interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	Modify(ctx context.Context, id uuid.UUID, in app.ModifyReservationInput) (domain.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID, in app.CancelReservationInput) error
	ListActive(ctx context.Context, member uuid.UUID) ([]domain.Reservation, error)
	CheckAvailability(ctx context.Context, court int, start time.Time) (bool, error)
}

type reservationResponse struct {
	ID          uuid.UUID  `json:"id"`
	Court       int        `json:"court"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	BookedFor   uuid.UUID  `json:"booked_for"`
	BookedBy    uuid.UUID  `json:"booked_by"`
	Status      string     `json:"status"`
	ShortNotice bool       `json:"short_notice"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func toReservationResponse(res domain.Reservation, now time.Time) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		Court:       res.Slot.Court,
		StartsAt:    res.Slot.Start,
		EndsAt:      res.Slot.End(),
		BookedFor:   res.BookedFor,
		BookedBy:    res.BookedBy,
		Status:      string(res.EffectiveStatus(now)),
		ShortNotice: res.ShortNotice,
		CancelledAt: res.CancelledAt,
	}
}

type createReservationRequest struct {
	Court     int       `json:"court"`
	StartsAt  time.Time `json:"starts_at"`
	BookedFor uuid.UUID `json:"booked_for"`
	BookedBy  uuid.UUID `json:"booked_by"`
}

// HandleCreateReservation returns the POST /reservations handler.
func HandleCreateReservation(svc ReservationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Create(r.Context(), app.CreateReservationInput{
			Court:     req.Court,
			Start:     req.StartsAt,
			BookedFor: req.BookedFor,
			BookedBy:  req.BookedBy,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toReservationResponse(res, time.Now().UTC()))
	}
}

type modifyReservationRequest struct {
	Court    int       `json:"court"`
	StartsAt time.Time `json:"starts_at"`
}

// HandleModifyReservation returns the PATCH /reservations/{id} handler.
func HandleModifyReservation(svc ReservationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid reservation id")
			return
		}

		var req modifyReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Modify(r.Context(), id, app.ModifyReservationInput{
			Court: req.Court,
			Start: req.StartsAt,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res, time.Now().UTC()))
	}
}

type cancelReservationRequest struct {
	Actor          uuid.UUID `json:"actor"`
	Override       bool      `json:"override"`
	OverrideReason string    `json:"override_reason"`
}

// HandleCancelReservation returns the POST /reservations/{id}/cancel handler.
func HandleCancelReservation(svc ReservationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid reservation id")
			return
		}

		var req cancelReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		if err := svc.Cancel(r.Context(), id, app.CancelReservationInput{
			Actor:          req.Actor,
			Override:       req.Override,
			OverrideReason: req.OverrideReason,
		}); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListReservations returns the GET /reservations?member=<id> handler.
func HandleListReservations(svc ReservationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := uuid.Parse(r.URL.Query().Get("member"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid member id")
			return
		}

		list, err := svc.ListActive(r.Context(), member)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		now := time.Now().UTC()
		out := make([]reservationResponse, 0, len(list))
		for _, res := range list {
			out = append(out, toReservationResponse(res, now))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type availabilityResponse struct {
	Court     int       `json:"court"`
	StartsAt  time.Time `json:"starts_at"`
	Available bool      `json:"available"`
}

// HandleAvailability returns the GET /availability?court=<n>&starts_at=<ts>
// handler.
func HandleAvailability(svc ReservationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		court, err := parseIntParam(r.URL.Query().Get("court"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidCourt, "invalid court")
			return
		}
		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("starts_at"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid starts_at")
			return
		}

		available, err := svc.CheckAvailability(r.Context(), court, start)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			Court:     court,
			StartsAt:  start.UTC(),
			Available: available,
		})
	}
}
