// Package service implements the ride-hailing operations on top of the store, with the
// side effects (relay notifications, lifecycle events, payments, driver index) that go
// with them.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/voyya/internal/dispatch"
	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/geo"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/payments"
	"github.com/example/voyya/internal/storage"
)

// Notifier pushes live updates to connected clients.
type Notifier interface {
	BroadcastDriverLocation(loc models.DriverLocation)
	NotifyRideStatus(rideID int64, status models.RideStatus)
	NotifyDriverArrival(rideID, driverID int64, driverName string)
	NotifyRideCompletion(rideID int64, fare float64)
}

type nopNotifier struct{}

func (nopNotifier) BroadcastDriverLocation(models.DriverLocation) {}
func (nopNotifier) NotifyRideStatus(int64, models.RideStatus) {}
func (nopNotifier) NotifyDriverArrival(int64, int64, string) {}
func (nopNotifier) NotifyRideCompletion(int64, float64) {}

// Deps wires the services. Only Store is required.
type Deps struct {
	Store    storage.Store
	Index    geo.Index
	Quoter   *fare.Quoter
	Payments payments.Gateway
	Events   dispatch.Publisher
	Notifier Notifier
	Log      *slog.Logger

	RideRequestTTL     time.Duration
	NearbyRadiusMeters float64
}

type Services struct {
	Profiles       *Profiles
	Drivers        *Drivers
	Rides          *Rides
	Ratings        *Ratings
	PaymentMethods *PaymentMethods
	RideRequests   *RideRequests
}

func New(d Deps) *Services {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Index == nil {
		d.Index = geo.NewMemoryIndex()
	}
	if d.Quoter == nil {
		d.Quoter = fare.NewQuoter(nil)
	}
	if d.Events == nil {
		d.Events = dispatch.LogPublisher{Log: d.Log}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.RideRequestTTL <= 0 {
		d.RideRequestTTL = 2 * time.Minute
	}
	if d.NearbyRadiusMeters <= 0 {
		d.NearbyRadiusMeters = 5000
	}
	clock := func() time.Time { return time.Now().UTC() }
	return &Services{
		Profiles: &Profiles{store: d.Store},
		Drivers: &Drivers{
			store:  d.Store,
			index:  d.Index,
			notify: d.Notifier,
			radius: d.NearbyRadiusMeters,
			log:    d.Log.With("component", "drivers"),
			now:    clock,
		},
		Rides: &Rides{
			store:    d.Store,
			quoter:   d.Quoter,
			payments: d.Payments,
			events:   d.Events,
			notify:   d.Notifier,
			log:      d.Log.With("component", "rides"),
			now:      clock,
		},
		Ratings:        &Ratings{store: d.Store, log: d.Log.With("component", "ratings")},
		PaymentMethods: &PaymentMethods{store: d.Store},
		RideRequests: &RideRequests{
			store:  d.Store,
			quoter: d.Quoter,
			ttl:    d.RideRequestTTL,
			log:    d.Log.With("component", "ride_requests"),
			now:    clock,
		},
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", storage.ErrInvalid, fmt.Sprintf(format, args...))
}

func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ignoreMissing treats a missing row as success for best-effort follow-up writes.
func ignoreMissing(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
