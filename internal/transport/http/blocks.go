package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/woifh/tcz-server-sub001/internal/app"
	"github.com/woifh/tcz-server-sub001/internal/domain"
)

const dateLayout = "2006-01-02"

// BlockAPI is the slice of the block service the admin handlers need.
type BlockAPI interface {
	CreateBlock(ctx context.Context, in app.CreateBlockInput) (app.CreateBlockResult, error)
	CreateSeries(ctx context.Context, in app.CreateSeriesInput) (app.CreateSeriesResult, error)
	EditSeries(ctx context.Context, seriesID uuid.UUID, in app.EditSeriesInput) (app.EditSeriesResult, error)
	DeleteSeries(ctx context.Context, seriesID uuid.UUID, in app.DeleteSeriesInput) (app.DeleteSeriesResult, error)
	DeleteBlock(ctx context.Context, id uuid.UUID, actor uuid.UUID) error
	ListBlocks(ctx context.Context, from, to time.Time) ([]domain.Block, error)
}

type blockResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Court              int        `json:"court"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             time.Time  `json:"ends_at"`
	Reason             string     `json:"reason"`
	SubReason          string     `json:"sub_reason,omitempty"`
	SeriesID           *uuid.UUID `json:"series_id,omitempty"`
	ModifiedFromSeries bool       `json:"modified_from_series,omitempty"`
}

func toBlockResponse(b domain.Block) blockResponse {
	return blockResponse{
		ID:                 b.ID,
		Court:              b.Court,
		StartsAt:           b.Starts,
		EndsAt:             b.Ends,
		Reason:             b.ReasonName,
		SubReason:          b.SubReason,
		SeriesID:           b.SeriesID,
		ModifiedFromSeries: b.ModifiedFromSeries,
	}
}

func toBlockResponses(blocks []domain.Block) []blockResponse {
	out := make([]blockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toBlockResponse(b))
	}
	return out
}

type createBlockRequest struct {
	Courts    []int     `json:"courts"`
	Date      string    `json:"date"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	ReasonID  uuid.UUID `json:"reason_id"`
	SubReason string    `json:"sub_reason"`
	Actor     uuid.UUID `json:"actor"`
}

type createBlockResponse struct {
	Blocks    []blockResponse `json:"blocks"`
	Cancelled int             `json:"cancelled_reservations"`
}

// HandleCreateBlock returns the POST /admin/blocks handler.
func HandleCreateBlock(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBlockRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid date")
			return
		}

		result, err := svc.CreateBlock(r.Context(), app.CreateBlockInput{
			Courts:    req.Courts,
			Date:      date,
			StartHour: req.StartHour,
			EndHour:   req.EndHour,
			ReasonID:  req.ReasonID,
			SubReason: req.SubReason,
			Actor:     req.Actor,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createBlockResponse{
			Blocks:    toBlockResponses(result.Blocks),
			Cancelled: len(result.Cancelled),
		})
	}
}

// HandleDeleteBlock returns the DELETE /admin/blocks/{id} handler. The actor
// travels in a query parameter since DELETE carries no body.
func HandleDeleteBlock(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid block id")
			return
		}
		actor, err := uuid.Parse(r.URL.Query().Get("actor"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid actor id")
			return
		}

		if err := svc.DeleteBlock(r.Context(), id, actor); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListBlocks returns the GET /admin/blocks?from=<date>&to=<date>
// handler.
func HandleListBlocks(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid from date")
			return
		}
		to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid to date")
			return
		}

		blocks, err := svc.ListBlocks(r.Context(), from, to.AddDate(0, 0, 1))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBlockResponses(blocks))
	}
}

type createSeriesRequest struct {
	Pattern   string    `json:"pattern"`
	Weekdays  []int     `json:"weekdays"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Courts    []int     `json:"courts"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	ReasonID  uuid.UUID `json:"reason_id"`
	SubReason string    `json:"sub_reason"`
	Actor     uuid.UUID `json:"actor"`
}

type createSeriesResponse struct {
	SeriesID  uuid.UUID       `json:"series_id"`
	Blocks    []blockResponse `json:"blocks"`
	Cancelled int             `json:"cancelled_reservations"`
}

// HandleCreateSeries returns the POST /admin/blocks/series handler.
func HandleCreateSeries(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSeriesRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		startDate, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid start_date")
			return
		}
		var endDate time.Time
		if req.EndDate != "" {
			endDate, err = time.Parse(dateLayout, req.EndDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid end_date")
				return
			}
		}
		weekdays := make([]time.Weekday, 0, len(req.Weekdays))
		for _, wd := range req.Weekdays {
			if wd < 0 || wd > 6 {
				writeError(w, http.StatusBadRequest, codeInvalidRecurrence, "weekdays must be 0 (Sunday) through 6 (Saturday)")
				return
			}
			weekdays = append(weekdays, time.Weekday(wd))
		}

		result, err := svc.CreateSeries(r.Context(), app.CreateSeriesInput{
			Pattern:   domain.RecurrencePattern(req.Pattern),
			Weekdays:  weekdays,
			StartDate: startDate,
			EndDate:   endDate,
			Courts:    req.Courts,
			StartHour: req.StartHour,
			EndHour:   req.EndHour,
			ReasonID:  req.ReasonID,
			SubReason: req.SubReason,
			Actor:     req.Actor,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createSeriesResponse{
			SeriesID:  result.Series.ID,
			Blocks:    toBlockResponses(result.Blocks),
			Cancelled: len(result.Cancelled),
		})
	}
}

type editSeriesRequest struct {
	Scope     string     `json:"scope"`
	FromDate  string     `json:"from_date"`
	BlockID   uuid.UUID  `json:"block_id"`
	ReasonID  *uuid.UUID `json:"reason_id"`
	SubReason *string    `json:"sub_reason"`
	StartHour *int       `json:"start_hour"`
	EndHour   *int       `json:"end_hour"`
	Actor     uuid.UUID  `json:"actor"`
}

type editSeriesResponse struct {
	Updated   []blockResponse `json:"updated"`
	Cancelled int             `json:"cancelled_reservations"`
}

// HandleEditSeries returns the PATCH /admin/blocks/series/{id} handler.
func HandleEditSeries(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid series id")
			return
		}

		var req editSeriesRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		var fromDate time.Time
		if req.FromDate != "" {
			fromDate, err = time.Parse(dateLayout, req.FromDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid from_date")
				return
			}
		}

		result, err := svc.EditSeries(r.Context(), seriesID, app.EditSeriesInput{
			Scope:    domain.SeriesScope(req.Scope),
			FromDate: fromDate,
			BlockID:  req.BlockID,
			Changes: app.BlockChanges{
				ReasonID:  req.ReasonID,
				SubReason: req.SubReason,
				StartHour: req.StartHour,
				EndHour:   req.EndHour,
			},
			Actor: req.Actor,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, editSeriesResponse{
			Updated:   toBlockResponses(result.Updated),
			Cancelled: len(result.Cancelled),
		})
	}
}

type deleteSeriesRequest struct {
	Scope    string    `json:"scope"`
	FromDate string    `json:"from_date"`
	BlockID  uuid.UUID `json:"block_id"`
	Actor    uuid.UUID `json:"actor"`
}

type deleteSeriesResponse struct {
	Deleted int `json:"deleted"`
}

// HandleDeleteSeries returns the DELETE /admin/blocks/series/{id} handler.
func HandleDeleteSeries(svc BlockAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid series id")
			return
		}

		var req deleteSeriesRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		var fromDate time.Time
		if req.FromDate != "" {
			fromDate, err = time.Parse(dateLayout, req.FromDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid from_date")
				return
			}
		}

		result, err := svc.DeleteSeries(r.Context(), seriesID, app.DeleteSeriesInput{
			Scope:    seriesScopeFromWire(req.Scope),
			FromDate: fromDate,
			BlockID:  req.BlockID,
			Actor:    req.Actor,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteSeriesResponse{Deleted: len(result.Deleted)})
	}
}

// seriesScopeFromWire maps the delete payload's scope names onto the series
// scopes. "all" and "future" are the documented delete spellings; the edit
// spellings "entire" and "from_date" are accepted as well.
func seriesScopeFromWire(scope string) domain.SeriesScope {
	switch scope {
	case "all":
		return domain.ScopeEntire
	case "future":
		return domain.ScopeFromDate
	}
	return domain.SeriesScope(scope)
}

func parseIntParam(raw string) (int, error) {
	return strconv.Atoi(raw)
}
