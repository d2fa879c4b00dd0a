package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/fleet-scheduler/internal/calendar"
)

// ReservationLister is the query used to load the reservations of a window.
type ReservationLister interface {
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
}

// VehicleLister is the query used to resolve vehicle labels on the calendar.
type VehicleLister interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
}

// CalendarService builds render-ready month, week, and day layouts.
type CalendarService struct {
	reservations ReservationLister
	vehicles     VehicleLister
	location     *time.Location
	cache        *layoutCache
	now          func() time.Time
	logger       *slog.Logger
}

// CalendarServiceOptions configures a CalendarService.
type CalendarServiceOptions struct {
	// Location is the display time zone used to cut day and hour cells.
	Location  *time.Location
	CacheSize int
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewCalendarService constructs a calendar service.
func NewCalendarService(reservations ReservationLister, vehicles VehicleLister, opts CalendarServiceOptions) *CalendarService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		reservations: reservations,
		vehicles:     vehicles,
		location:     loc,
		cache:        newLayoutCache(opts.CacheSize),
		now:          now,
		logger:       defaultLogger(opts.Logger),
	}
}

// Location returns the display time zone.
func (s *CalendarService) Location() *time.Location {
	if s == nil || s.location == nil {
		return time.UTC
	}
	return s.location
}

// Calendar returns the layout of the window selected by params. A zero
// Reference means the current time.
func (s *CalendarService) Calendar(ctx context.Context, params CalendarParams) (view CalendarView, err error) {
	if s == nil {
		err = fmt.Errorf("CalendarService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "CalendarService", "Calendar", "view", string(params.View))
	cached := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build calendar", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "calendar built",
			"segments", len(view.Layout.Segments),
			"lanes", view.Layout.LaneCount,
			"cached", cached,
		)
	}()

	var window calendar.Window
	window, err = s.window(params)
	if err != nil {
		return
	}

	start, end := window.Start(), window.End
	var reservations []Reservation
	reservations, err = s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		VehicleIDs:   uniqueStrings(params.VehicleIDs),
		StartsBefore: &end,
		EndsAfter:    &start,
		Statuses:     blockingStatuses,
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	sortReservations(reservations)

	vehicles := make(map[string]Vehicle)
	if s.vehicles != nil {
		var all []Vehicle
		all, err = s.vehicles.ListVehicles(ctx)
		if err != nil {
			err = mapVehicleRepoError(err)
			return
		}
		used := make(map[string]struct{}, len(reservations))
		for _, r := range reservations {
			used[r.VehicleID] = struct{}{}
		}
		for _, v := range all {
			if _, ok := used[v.ID]; ok {
				vehicles[v.ID] = v
			}
		}
	}

	fingerprint := snapshotFingerprint(window, reservations, vehicles)

	layout, ok := s.cache.Get(fingerprint)
	if ok {
		cached = true
	} else {
		layout = calendar.BuildLayout(toIntervals(reservations), window)
		s.cache.Store(fingerprint, layout)
	}

	view = CalendarView{
		Layout:       layout,
		Reservations: reservations,
		Vehicles:     vehicles,
		Fingerprint:  fingerprint,
	}
	return
}

func (s *CalendarService) window(params CalendarParams) (calendar.Window, error) {
	ref := params.Reference
	if ref.IsZero() {
		ref = s.now()
	}
	local := ref.In(s.location)

	switch params.View {
	case calendar.ViewMonth, "":
		return calendar.MonthWindow(local.Year(), local.Month(), s.location), nil
	case calendar.ViewWeek:
		return calendar.WeekWindow(ref, s.location), nil
	case calendar.ViewDay:
		return calendar.DayWindow(ref, s.location), nil
	}

	vErr := &ValidationError{}
	vErr.add("view", fmt.Sprintf("unknown view %q", params.View))
	return calendar.Window{}, vErr
}
