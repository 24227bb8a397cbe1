package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/woifh/tcz-server-sub001/internal/domain"
)

// ReasonAPI is the slice of the reason service the handlers need.
type ReasonAPI interface {
	Create(ctx context.Context, name string, actor uuid.UUID) (domain.BlockReason, error)
	List(ctx context.Context) ([]domain.BlockReason, error)
}

type reasonResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type createReasonRequest struct {
	Name  string    `json:"name"`
	Actor uuid.UUID `json:"actor"`
}

// HandleCreateReason returns the POST /admin/reasons handler.
func HandleCreateReason(svc ReasonAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReasonRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		reason, err := svc.Create(r.Context(), req.Name, req.Actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, reasonResponse{
			ID:        reason.ID,
			Name:      reason.Name,
			CreatedAt: reason.CreatedAt,
		})
	}
}

// HandleListReasons returns the GET /admin/reasons handler.
func HandleListReasons(svc ReasonAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reasons, err := svc.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]reasonResponse, 0, len(reasons))
		for _, reason := range reasons {
			out = append(out, reasonResponse{
				ID:        reason.ID,
				Name:      reason.Name,
				CreatedAt: reason.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
