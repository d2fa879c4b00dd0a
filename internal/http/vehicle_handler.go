package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/fleet-scheduler/internal/application"
)

type vehicleService interface {
	CreateVehicle(ctx context.Context, input application.VehicleInput) (application.Vehicle, error)
	GetVehicle(ctx context.Context, vehicleID string) (application.Vehicle, error)
	UpdateVehicle(ctx context.Context, params application.UpdateVehicleParams) (application.Vehicle, error)
	DeleteVehicle(ctx context.Context, vehicleID string) error
	ListVehicles(ctx context.Context) ([]application.Vehicle, error)
}

type VehicleHandler struct {
	service   vehicleService
	responder responder
	logger    *slog.Logger
}

func NewVehicleHandler(service vehicleService, logger *slog.Logger) *VehicleHandler {
	base := defaultLogger(logger)
	return &VehicleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *VehicleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "VehicleHandler", operation, attrs...)
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode vehicle request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	vehicle, err := h.service.CreateVehicle(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "vehicle creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("vehicle_id", vehicle.ID).InfoContext(r.Context(), "vehicle created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, vehicleResponse{Vehicle: toVehicleDTO(vehicle)})
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vehicleID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidVehicleID)
		return
	}

	vehicle, err := h.service.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		h.log(r.Context(), "Get", "vehicle_id", vehicleID).WarnContext(r.Context(), "vehicle lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, vehicleResponse{Vehicle: toVehicleDTO(vehicle)})
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vehicleID, ok := pathID(r)
	if !ok {
		h.log(r.Context(), "Update", "error_kind", "bad_request").WarnContext(r.Context(), "missing vehicle id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidVehicleID)
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "vehicle_id", vehicleID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode vehicle update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "vehicle_id", vehicleID)
	vehicle, err := h.service.UpdateVehicle(r.Context(), application.UpdateVehicleParams{
		VehicleID: vehicleID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "vehicle update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "vehicle updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, vehicleResponse{Vehicle: toVehicleDTO(vehicle)})
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	vehicleID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidVehicleID)
		return
	}

	logger := h.log(r.Context(), "Delete", "vehicle_id", vehicleID)
	if err := h.service.DeleteVehicle(r.Context(), vehicleID); err != nil {
		logger.WarnContext(r.Context(), "vehicle delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "vehicle deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "vehicle list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(vehicles)).DebugContext(r.Context(), "vehicles listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listVehiclesResponse{Vehicles: toVehicleDTOs(vehicles)})
}

type vehicleRequest struct {
	Plate  string `json:"plate"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	Status string `json:"status"`
}

func (r vehicleRequest) toInput() application.VehicleInput {
	return application.VehicleInput{
		Plate:  r.Plate,
		Make:   strings.TrimSpace(r.Make),
		Model:  strings.TrimSpace(r.Model),
		Status: application.VehicleStatus(strings.ToLower(strings.TrimSpace(r.Status))),
	}
}

type vehicleResponse struct {
	Vehicle vehicleDTO `json:"vehicle"`
}

type listVehiclesResponse struct {
	Vehicles []vehicleDTO `json:"vehicles"`
}

type vehicleDTO struct {
	ID        string `json:"id"`
	Plate     string `json:"plate"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toVehicleDTO(vehicle application.Vehicle) vehicleDTO {
	return vehicleDTO{
		ID:        vehicle.ID,
		Plate:     vehicle.Plate,
		Make:      vehicle.Make,
		Model:     vehicle.Model,
		Status:    string(vehicle.Status),
		CreatedAt: formatTime(vehicle.CreatedAt),
		UpdatedAt: formatTime(vehicle.UpdatedAt),
	}
}

func toVehicleDTOs(vehicles []application.Vehicle) []vehicleDTO {
	out := make([]vehicleDTO, 0, len(vehicles))
	for _, vehicle := range vehicles {
		out = append(out, toVehicleDTO(vehicle))
	}
	return out
}
