package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
)

const dateLayout = "2006-01-02"

type calendarService interface {
	Calendar(ctx context.Context, params application.CalendarParams) (application.CalendarView, error)
	Location() *time.Location
}

// CalendarHandler serves render-ready month, week and day grids. Responses
// carry the snapshot fingerprint as an ETag.
type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loc := h.service.Location()
	query := r.URL.Query()
	errs := fieldErrors{}
	params := application.CalendarParams{
		View:       calendar.View(strings.ToLower(strings.TrimSpace(query.Get("view")))),
		Reference:  parseReference(query.Get("date"), loc, errs),
		VehicleIDs: parseCSV(query["vehicles"]),
	}
	if len(errs) > 0 {
		h.responder.writeValidation(r.Context(), w, errs)
		return
	}

	logger := h.log(r.Context(), "Get", "view", params.View)
	view, err := h.service.Calendar(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "calendar build failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	etag := `"` + view.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		h.responder.writeJSON(r.Context(), w, http.StatusNotModified, nil)
		return
	}

	logger.With("segment_count", len(view.Layout.Segments)).DebugContext(r.Context(), "calendar built")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarResponse(view, loc))
}

// parseReference accepts a calendar date in the display location or a full
// RFC 3339 instant. Empty means today.
func parseReference(value string, loc *time.Location, errs fieldErrors) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if day, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return day
	}
	if instant, err := time.Parse(time.RFC3339, value); err == nil {
		return instant
	}
	errs.add("date", "must be YYYY-MM-DD or an RFC 3339 timestamp")
	return time.Time{}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

type calendarResponse struct {
	View          string           `json:"view"`
	Fingerprint   string           `json:"fingerprint"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
	RowWidth      int              `json:"rowWidth"`
	Rows          int              `json:"rows"`
	LaneCount     int              `json:"laneCount"`
	RowLaneCounts []int            `json:"rowLaneCounts"`
	Cells         []cellDTO        `json:"cells"`
	Segments      []segmentDTO     `json:"segments"`
	Reservations  []reservationDTO `json:"reservations"`
	Vehicles      []vehicleDTO     `json:"vehicles"`
}

type cellDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type segmentDTO struct {
	ReservationID string `json:"reservationId"`
	ResourceID    string `json:"resourceId"`
	Row           int    `json:"row"`
	StartCol      int    `json:"startCol"`
	EndCol        int    `json:"endCol"`
	Lane          int    `json:"lane"`
	Density       string `json:"density"`
	Label         string `json:"label"`
}

func toCalendarResponse(view application.CalendarView, loc *time.Location) calendarResponse {
	window := view.Layout.Window
	resp := calendarResponse{
		View:          string(window.View),
		Fingerprint:   view.Fingerprint,
		Start:         window.Start().In(loc).Format(time.RFC3339),
		End:           window.End.In(loc).Format(time.RFC3339),
		RowWidth:      window.RowWidth,
		Rows:          window.Rows(),
		LaneCount:     view.Layout.LaneCount,
		RowLaneCounts: view.Layout.RowLaneCounts,
		Cells:         make([]cellDTO, 0, len(window.Cells)),
		Segments:      make([]segmentDTO, 0, len(view.Layout.Segments)),
		Reservations:  toReservationDTOs(view.Reservations),
		Vehicles:      make([]vehicleDTO, 0, len(view.Vehicles)),
	}

	for i, start := range window.Cells {
		resp.Cells = append(resp.Cells, cellDTO{
			Start: start.In(loc).Format(time.RFC3339),
			End:   window.CellEnd(i).In(loc).Format(time.RFC3339),
		})
	}

	byID := make(map[string]application.Reservation, len(view.Reservations))
	for _, reservation := range view.Reservations {
		byID[reservation.ID] = reservation
	}
	for _, seg := range view.Layout.Segments {
		reservation := byID[seg.IntervalID]
		density := calendar.DensityFor(seg)
		resp.Segments = append(resp.Segments, segmentDTO{
			ReservationID: seg.IntervalID,
			ResourceID:    reservation.VehicleID,
			Row:           seg.Row,
			StartCol:      seg.StartCol,
			EndCol:        seg.EndCol,
			Lane:          seg.Lane,
			Density:       string(density),
			Label:         segmentLabel(density, reservation, view.Vehicles),
		})
	}

	for _, reservation := range view.Reservations {
		if vehicle, ok := view.Vehicles[reservation.VehicleID]; ok {
			resp.Vehicles = appendVehicleOnce(resp.Vehicles, vehicle)
		}
	}
	return resp
}

func segmentLabel(density calendar.LabelDensity, reservation application.Reservation, vehicles map[string]application.Vehicle) string {
	resource := reservation.VehicleID
	if vehicle, ok := vehicles[reservation.VehicleID]; ok && vehicle.Plate != "" {
		resource = vehicle.Plate
	}
	switch density {
	case calendar.LabelFull:
		if reservation.Holder == "" {
			return resource
		}
		return resource + " · " + reservation.Holder
	case calendar.LabelCompact:
		return resource
	default:
		return "•"
	}
}

func appendVehicleOnce(out []vehicleDTO, vehicle application.Vehicle) []vehicleDTO {
	for _, existing := range out {
		if existing.ID == vehicle.ID {
			return out
		}
	}
	return append(out, toVehicleDTO(vehicle))
}
