// Package storage persists the ride-hailing entities.
//
// Two backends implement Store: MemoryStore for local runs and tests, and SQLStore for
// postgres (lib/pq) and sqlite (modernc). Both honour the same uniqueness and reference
// rules and report them through the sentinel errors below.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/example/voyya/internal/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrInvalid     = errors.New("invalid")
	ErrUnavailable = errors.New("database not available")
)

const (
	DefaultHistoryLimit   = 20
	DefaultAvailableLimit = 10
)

type Store interface {
	// UpsertUser inserts the user keyed by OpenID or updates the fields that are set.
	// Nil pointers and an empty Role are left untouched on update.
	UpsertUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByOpenID(ctx context.Context, openID string) (*models.User, error)

	CreateUserProfile(ctx context.Context, p *models.UserProfile) error
	GetUserProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID int64, upd models.ProfileUpdate) error
	// AddProfileStats increments the ride count and earnings of a profile.
	AddProfileStats(ctx context.Context, userID int64, rides int, earnings float64) error

	CreateDriver(ctx context.Context, d *models.Driver) error
	GetDriver(ctx context.Context, userID int64) (*models.Driver, error)
	UpdateDriver(ctx context.Context, userID int64, upd models.DriverUpdate) error
	ListAvailableDrivers(ctx context.Context, limit int) ([]models.Driver, error)
	UpdateDriverLocation(ctx context.Context, userID int64, lat, lon float64, at time.Time) error

	CreateRide(ctx context.Context, r *models.Ride) error
	GetRide(ctx context.Context, id int64) (*models.Ride, error)
	UpdateRide(ctx context.Context, id int64, upd models.RideUpdate) error
	RiderRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error)
	DriverRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error)
	ActiveRides(ctx context.Context, userID int64, asDriver bool) ([]models.Ride, error)

	CreateRating(ctx context.Context, r *models.Rating) error
	GetRating(ctx context.Context, rideID int64) (*models.Rating, error)
	UserRatings(ctx context.Context, userID int64) ([]models.Rating, error)

	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error)
	DefaultPaymentMethod(ctx context.Context, userID int64) (*models.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, id int64, upd models.PaymentMethodUpdate) error

	CreateRideRequest(ctx context.Context, rr *models.RideRequest) error
	GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error)
	UpdateRideRequest(ctx context.Context, id int64, upd models.RideRequestUpdate) error
	// PendingRideRequests lists pending requests that expire at or after now, newest first.
	PendingRideRequests(ctx context.Context, now time.Time) ([]models.RideRequest, error)
	// DeleteExpiredRideRequests removes requests that expired at or before now.
	DeleteExpiredRideRequests(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

func availableLimit(limit int) int {
	if limit <= 0 {
		return DefaultAvailableLimit
	}
	return limit
}

// Defaults mirror the column defaults of the schema.

func profileDefaults(p *models.UserProfile) {
	if p.UserType == "" {
		p.UserType = models.UserTypeRider
	}
	if p.Rating == 0 {
		p.Rating = 5
	}
}

func driverDefaults(d *models.Driver) {
	if d.VehicleType == "" {
		d.VehicleType = models.VehicleEconomy
	}
}

func rideDefaults(r *models.Ride, now time.Time) {
	if r.Status == "" {
		r.Status = models.StatusRequested
	}
	if r.VehicleType == "" {
		r.VehicleType = models.VehicleEconomy
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = models.PayCard
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = models.PaymentPending
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = now
	}
}

func requestDefaults(rr *models.RideRequest) {
	if rr.VehicleType == "" {
		rr.VehicleType = models.VehicleEconomy
	}
	if rr.Status == "" {
		rr.Status = models.RequestPending
	}
}

func now() time.Time { return time.Now().UTC() }
