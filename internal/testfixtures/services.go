package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/fleet-scheduler/internal/application"
)

// ServiceFactory builds application services wired to a shared deterministic
// clock and id generator.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// VehicleServiceDeps captures dependencies for constructing a vehicle service.
type VehicleServiceDeps struct {
	Vehicles application.VehicleRepository
	Logger   *slog.Logger
}

// NewVehicleService builds a vehicle service on the factory clock and ids.
func (f *ServiceFactory) NewVehicleService(deps VehicleServiceDeps) *application.VehicleService {
	return application.NewVehicleServiceWithLogger(
		deps.Vehicles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Logger,
	)
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Vehicles     application.VehicleLookup
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service on the factory clock and ids.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	return application.NewReservationServiceWithLogger(
		deps.Reservations,
		deps.Vehicles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Logger,
	)
}

// CalendarServiceDeps captures dependencies for constructing a calendar service.
type CalendarServiceDeps struct {
	Reservations application.ReservationLister
	Vehicles     application.VehicleLister
	Location     *time.Location
	CacheSize    int
	Logger       *slog.Logger
}

// NewCalendarService builds a calendar service on the factory clock.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	return application.NewCalendarService(deps.Reservations, deps.Vehicles, application.CalendarServiceOptions{
		Location:  deps.Location,
		CacheSize: deps.CacheSize,
		Now:       f.Clock.NowFunc(),
		Logger:    deps.Logger,
	})
}
