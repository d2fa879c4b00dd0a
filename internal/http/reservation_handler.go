package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (application.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	TransitionReservation(ctx context.Context, reservationID string, target calendar.Status) (application.Reservation, error)
	DeleteReservation(ctx context.Context, reservationID string) error
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	CheckConflicts(ctx context.Context, params application.CandidateParams) ([]application.ConflictWarning, error)
	AvailableVehicles(ctx context.Context, params application.CandidateParams) ([]application.Vehicle, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, errs := req.toInput()
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	logger := h.log(r.Context(), "Create", "vehicle_id", input.VehicleID)
	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{Input: input})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", reservationID).WarnContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := pathID(r)
	if !ok {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "missing reservation id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, errs := req.toInput()
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	logger := h.log(r.Context(), "Update", "reservation_id", reservationID)
	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		ReservationID: reservationID,
		Input:         input,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Transition moves a reservation through its lifecycle.
func (h *ReservationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Transition", "reservation_id", reservationID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	target := calendar.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	logger := h.log(r.Context(), "Transition", "reservation_id", reservationID, "target", target)
	reservation, err := h.service.TransitionReservation(r.Context(), reservationID, target)
	if err != nil {
		logger.WarnContext(r.Context(), "reservation transition failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation transitioned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return
	}

	logger := h.log(r.Context(), "Delete", "reservation_id", reservationID)
	if err := h.service.DeleteReservation(r.Context(), reservationID); err != nil {
		logger.WarnContext(r.Context(), "reservation delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	errs := fieldErrors{}
	params := application.ListReservationsParams{
		VehicleIDs: parseCSV(query["vehicles"]),
		From:       parseOptionalInstant(query, "from", errs),
		To:         parseOptionalInstant(query, "to", errs),
	}
	for _, status := range parseCSV(query["status"]) {
		params.Statuses = append(params.Statuses, calendar.Status(strings.ToLower(status)))
	}
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	logger := h.log(r.Context(), "List")
	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(reservations)).DebugContext(r.Context(), "reservations listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// CheckConflicts answers whether a prospective booking would collide. It is
// advisory: the write path re-checks atomically.
func (h *ReservationHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CheckConflicts", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode candidate", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	errs := fieldErrors{}
	params := application.CandidateParams{
		VehicleID: strings.TrimSpace(req.ResourceID),
		Start:     parseInstant(req.StartTime, "start", errs),
		End:       parseInstant(req.EndTime, "end", errs),
		ExcludeID: strings.TrimSpace(req.ExcludeID),
	}
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	conflicts, err := h.service.CheckConflicts(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "CheckConflicts", "vehicle_id", params.VehicleID).WarnContext(r.Context(), "conflict check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictsResponse{Conflicts: toConflictDTOs(conflicts)})
}

// Available lists vehicles free for the start/end query range.
func (h *ReservationHandler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	errs := fieldErrors{}
	params := application.CandidateParams{
		Start:     parseInstant(query.Get("start"), "start", errs),
		End:       parseInstant(query.Get("end"), "end", errs),
		ExcludeID: strings.TrimSpace(query.Get("exclude_id")),
	}
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	logger := h.log(r.Context(), "Available")
	vehicles, err := h.service.AvailableVehicles(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "availability lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(vehicles)).DebugContext(r.Context(), "available vehicles resolved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listVehiclesResponse{Vehicles: toVehicleDTOs(vehicles)})
}

type reservationRequest struct {
	ResourceID string  `json:"resourceId"`
	Holder     string  `json:"holder"`
	Purpose    *string `json:"purpose"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Status     string  `json:"status"`
}

func (r reservationRequest) toInput() (application.ReservationInput, fieldErrors) {
	errs := fieldErrors{}
	input := application.ReservationInput{
		VehicleID: strings.TrimSpace(r.ResourceID),
		Holder:    strings.TrimSpace(r.Holder),
		Purpose:   r.Purpose,
		Start:     parseInstant(r.StartTime, "start", errs),
		End:       parseInstant(r.EndTime, "end", errs),
		Status:    calendar.Status(strings.ToLower(strings.TrimSpace(r.Status))),
	}
	return input, errs
}

type statusRequest struct {
	Status string `json:"status"`
}

type candidateRequest struct {
	ResourceID string `json:"resourceId"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	ExcludeID  string `json:"excludeId"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type conflictsResponse struct {
	Conflicts []conflictWarningDTO `json:"conflicts"`
}

type reservationDTO struct {
	ID         string  `json:"id"`
	ResourceID string  `json:"resourceId"`
	Holder     string  `json:"holder"`
	Purpose    *string `json:"purpose,omitempty"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         reservation.ID,
		ResourceID: reservation.VehicleID,
		Holder:     reservation.Holder,
		Purpose:    reservation.Purpose,
		StartTime:  formatTime(reservation.Start),
		EndTime:    formatTime(reservation.End),
		Status:     string(reservation.Status),
		CreatedAt:  formatTime(reservation.CreatedAt),
		UpdatedAt:  formatTime(reservation.UpdatedAt),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}
