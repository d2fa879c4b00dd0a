package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Vehicles     *VehicleHandler
	Reservations *ReservationHandler
	Calendar     *CalendarHandler
	Logger       *slog.Logger
	// Middleware wraps the router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	responder := newResponder(cfg.Logger)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: http.StatusText(http.StatusMethodNotAllowed)})
	})

	if cfg.Reservations != nil {
		// Registered before /vehicles/{id} so "available" is not taken as an id.
		r.HandleFunc("/vehicles/available", cfg.Reservations.Available).Methods(http.MethodGet)

		r.HandleFunc("/reservations", cfg.Reservations.List).Methods(http.MethodGet)
		r.HandleFunc("/reservations", cfg.Reservations.Create).Methods(http.MethodPost)
		r.HandleFunc("/reservations/conflicts", cfg.Reservations.CheckConflicts).Methods(http.MethodPost)
		r.HandleFunc("/reservations/{id}", cfg.Reservations.Get).Methods(http.MethodGet)
		r.HandleFunc("/reservations/{id}", cfg.Reservations.Update).Methods(http.MethodPut)
		r.HandleFunc("/reservations/{id}", cfg.Reservations.Delete).Methods(http.MethodDelete)
		r.HandleFunc("/reservations/{id}/status", cfg.Reservations.Transition).Methods(http.MethodPost)
	}

	if cfg.Vehicles != nil {
		r.HandleFunc("/vehicles", cfg.Vehicles.List).Methods(http.MethodGet)
		r.HandleFunc("/vehicles", cfg.Vehicles.Create).Methods(http.MethodPost)
		r.HandleFunc("/vehicles/{id}", cfg.Vehicles.Get).Methods(http.MethodGet)
		r.HandleFunc("/vehicles/{id}", cfg.Vehicles.Update).Methods(http.MethodPut)
		r.HandleFunc("/vehicles/{id}", cfg.Vehicles.Delete).Methods(http.MethodDelete)
	}

	if cfg.Calendar != nil {
		r.HandleFunc("/calendar", cfg.Calendar.Get).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
