package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouterDeps carries the service surfaces the router wires up.
type RouterDeps struct {
	Reservations ReservationAPI
	Blocks       BlockAPI
	Reasons      ReasonAPI
	CORSOrigins  []string
	Logger       *log.Logger
}

// NewRouter builds the full route tree. Admin routes live under /admin;
// authentication is expected to run in front of this service.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return RequestLogger(next, deps.Logger)
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", HealthHandler)

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", HandleCreateReservation(deps.Reservations))
		r.Get("/", HandleListReservations(deps.Reservations))
		r.Patch("/{id}", HandleModifyReservation(deps.Reservations))
		r.Post("/{id}/cancel", HandleCancelReservation(deps.Reservations))
	})
	r.Get("/availability", HandleAvailability(deps.Reservations))

	r.Route("/admin", func(r chi.Router) {
		r.Route("/blocks", func(r chi.Router) {
			r.Post("/", HandleCreateBlock(deps.Blocks))
			r.Get("/", HandleListBlocks(deps.Blocks))
			r.Route("/series", func(r chi.Router) {
				r.Post("/", HandleCreateSeries(deps.Blocks))
				r.Patch("/{id}", HandleEditSeries(deps.Blocks))
				r.Delete("/{id}", HandleDeleteSeries(deps.Blocks))
			})
			r.Delete("/{id}", HandleDeleteBlock(deps.Blocks))
		})
		r.Route("/reasons", func(r chi.Router) {
			r.Post("/", HandleCreateReason(deps.Reasons))
			r.Get("/", HandleListReasons(deps.Reasons))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return r
}
