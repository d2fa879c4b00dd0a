package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleet-scheduler/internal/application"
	"github.com/example/fleet-scheduler/internal/calendar"
	"github.com/example/fleet-scheduler/internal/config"
	httptransport "github.com/example/fleet-scheduler/internal/http"
	"github.com/example/fleet-scheduler/internal/jobs"
	"github.com/example/fleet-scheduler/internal/logging"
	"github.com/example/fleet-scheduler/internal/persistence"
	"github.com/example/fleet-scheduler/internal/persistence/sqlite"
)

func main() {
	level := new(slog.LevelVar)
	logger := logging.New(os.Stdout, level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	storage, err := sqlite.Open(cfg.SQLiteDSN, sqlite.WithLogger(logger))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	fa := newApp(storage, cfg, uuid.NewString, time.Now, logger)

	var sweeper *jobs.Sweeper
	if cfg.SweepSchedule != "" {
		sweeper, err = jobs.NewSweeper(fa.reservations, jobs.Options{Schedule: cfg.SweepSchedule, Logger: logger})
		if err != nil {
			logger.Error("failed to configure completion sweep", "error", err)
			os.Exit(1)
		}
		if err := sweeper.Start(); err != nil {
			logger.Error("failed to start completion sweep", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           fa.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Addr(), "error", err)
		os.Exit(1)
	}

	logger.Info("fleet API listening", "addr", listener.Addr().String(), "timezone", cfg.Location.String())
	if err := runServer(ctx, server, listener, sweeper, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// runServer serves on listener until ctx ends, then stops the sweeper and
// drains in-flight requests. It returns only after the drain has finished.
func runServer(ctx context.Context, server *http.Server, listener net.Listener, sweeper *jobs.Sweeper, timeout time.Duration, logger *slog.Logger) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if sweeper != nil {
			if err := sweeper.Stop(shutdownCtx); err != nil {
				logger.Error("failed to stop completion sweep", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}

type fleetApp struct {
	vehicles     *application.VehicleService
	reservations *application.ReservationService
	calendar     *application.CalendarService
	handler      http.Handler
}

// newApp wires services and the HTTP stack over storage.
func newApp(storage *sqlite.Storage, cfg config.Config, idGenerator func() string, now func() time.Time, logger *slog.Logger) fleetApp {
	vehicleRepo := newVehicleRepositoryAdapter(storage)
	reservationRepo := newReservationRepositoryAdapter(storage)

	a := fleetApp{
		vehicles:     application.NewVehicleServiceWithLogger(vehicleRepo, idGenerator, now, logger),
		reservations: application.NewReservationServiceWithLogger(reservationRepo, vehicleRepo, idGenerator, now, logger),
		calendar: application.NewCalendarService(reservationRepo, vehicleRepo, application.CalendarServiceOptions{
			Location:  cfg.Location,
			CacheSize: cfg.LayoutCacheSize,
			Now:       now,
			Logger:    logger,
		}),
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Vehicles:     httptransport.NewVehicleHandler(a.vehicles, logger),
		Reservations: httptransport.NewReservationHandler(a.reservations, logger),
		Calendar:     httptransport.NewCalendarHandler(a.calendar, logger),
		Logger:       logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recover(logger),
			httptransport.CORS(cfg.CORSOrigins),
		},
	})
	return a
}

type vehicleRepositoryAdapter struct {
	repo persistence.VehicleRepository
}

func newVehicleRepositoryAdapter(repo persistence.VehicleRepository) *vehicleRepositoryAdapter {
	return &vehicleRepositoryAdapter{repo: repo}
}

func (a *vehicleRepositoryAdapter) CreateVehicle(ctx context.Context, vehicle application.Vehicle) (application.Vehicle, error) {
	if err := a.repo.CreateVehicle(ctx, toPersistenceVehicle(vehicle)); err != nil {
		return application.Vehicle{}, err
	}
	return a.GetVehicle(ctx, vehicle.ID)
}

func (a *vehicleRepositoryAdapter) GetVehicle(ctx context.Context, id string) (application.Vehicle, error) {
	stored, err := a.repo.GetVehicle(ctx, id)
	if err != nil {
		return application.Vehicle{}, err
	}
	return toApplicationVehicle(stored), nil
}

func (a *vehicleRepositoryAdapter) UpdateVehicle(ctx context.Context, vehicle application.Vehicle) (application.Vehicle, error) {
	if err := a.repo.UpdateVehicle(ctx, toPersistenceVehicle(vehicle)); err != nil {
		return application.Vehicle{}, err
	}
	return a.GetVehicle(ctx, vehicle.ID)
}

func (a *vehicleRepositoryAdapter) DeleteVehicle(ctx context.Context, id string) error {
	return a.repo.DeleteVehicle(ctx, id)
}

func (a *vehicleRepositoryAdapter) ListVehicles(ctx context.Context) ([]application.Vehicle, error) {
	models, err := a.repo.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	vehicles := make([]application.Vehicle, 0, len(models))
	for _, model := range models {
		vehicles = append(vehicles, toApplicationVehicle(model))
	}
	return vehicles, nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *reservationRepositoryAdapter) UpdateReservationStatus(ctx context.Context, id string, status calendar.Status, updatedAt time.Time) (application.Reservation, error) {
	if err := a.repo.UpdateReservationStatus(ctx, id, string(status), updatedAt); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		VehicleIDs:   append([]string(nil), filter.VehicleIDs...),
		StartsBefore: filter.StartsBefore,
		EndsAfter:    filter.EndsAfter,
		Statuses:     statusStrings(filter.Statuses),
	})
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) ListElapsed(ctx context.Context, reference time.Time, statuses []calendar.Status) ([]application.Reservation, error) {
	models, err := a.repo.ListElapsed(ctx, reference, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models), nil
}

func statusStrings(statuses []calendar.Status) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func toApplicationVehicle(model persistence.Vehicle) application.Vehicle {
	return application.Vehicle{
		ID:        model.ID,
		Plate:     model.Plate,
		Make:      model.Make,
		Model:     model.Model,
		Status:    application.VehicleStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceVehicle(vehicle application.Vehicle) persistence.Vehicle {
	return persistence.Vehicle{
		ID:        vehicle.ID,
		Plate:     vehicle.Plate,
		Make:      vehicle.Make,
		Model:     vehicle.Model,
		Status:    string(vehicle.Status),
		CreatedAt: vehicle.CreatedAt,
		UpdatedAt: vehicle.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:        model.ID,
		VehicleID: model.VehicleID,
		Holder:    model.Holder,
		Purpose:   cloneString(model.Purpose),
		Start:     model.Start,
		End:       model.End,
		Status:    calendar.Status(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toApplicationReservations(models []persistence.Reservation) []application.Reservation {
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		VehicleID: reservation.VehicleID,
		Holder:    reservation.Holder,
		Purpose:   cloneString(reservation.Purpose),
		Start:     reservation.Start,
		End:       reservation.End,
		Status:    string(reservation.Status),
		CreatedAt: reservation.CreatedAt,
		UpdatedAt: reservation.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
