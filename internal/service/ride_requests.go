package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/observability"
	"github.com/example/voyya/internal/storage"
)

// RideRequests manages short-lived trip offers shown to nearby drivers.
type RideRequests struct {
	store  storage.Store
	quoter *fare.Quoter
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

type RideRequestInput struct {
	PickupLatitude   float64
	PickupLongitude  float64
	DropoffLatitude  float64
	DropoffLongitude float64
	VehicleType      models.VehicleType
	EstimatedFare    float64
}

func (s *RideRequests) Create(ctx context.Context, riderID int64, in RideRequestInput) (*models.RideRequest, error) {
	if !validCoord(in.PickupLatitude, in.PickupLongitude) || !validCoord(in.DropoffLatitude, in.DropoffLongitude) {
		return nil, invalid("coordinates out of range")
	}
	if in.VehicleType != "" && !in.VehicleType.Valid() {
		return nil, invalid("vehicleType must be economy, comfort or premium")
	}
	if in.EstimatedFare < 0 {
		return nil, invalid("estimatedFare must not be negative")
	}
	rr := &models.RideRequest{
		RiderID:          riderID,
		PickupLatitude:   in.PickupLatitude,
		PickupLongitude:  in.PickupLongitude,
		DropoffLatitude:  in.DropoffLatitude,
		DropoffLongitude: in.DropoffLongitude,
		VehicleType:      in.VehicleType,
		EstimatedFare:    in.EstimatedFare,
		ExpiresAt:        s.now().Add(s.ttl),
	}
	if rr.EstimatedFare == 0 {
		q, err := s.quoter.Quote(ctx,
			models.Coord{Lat: in.PickupLatitude, Lon: in.PickupLongitude},
			models.Coord{Lat: in.DropoffLatitude, Lon: in.DropoffLongitude},
			in.VehicleType)
		if err != nil {
			return nil, err
		}
		rr.EstimatedFare = q.TotalFare
	}
	if err := s.store.CreateRideRequest(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}

func (s *RideRequests) Get(ctx context.Context, id int64) (*models.RideRequest, error) {
	return s.store.GetRideRequest(ctx, id)
}

func (s *RideRequests) Pending(ctx context.Context) ([]models.RideRequest, error) {
	return s.store.PendingRideRequests(ctx, s.now())
}

func (s *RideRequests) Update(ctx context.Context, id int64, status models.RideRequestStatus) (*models.RideRequest, error) {
	if !status.Valid() {
		return nil, invalid("status must be pending, accepted or expired")
	}
	if err := s.store.UpdateRideRequest(ctx, id, models.RideRequestUpdate{Status: &status}); err != nil {
		return nil, err
	}
	return s.store.GetRideRequest(ctx, id)
}

// Expire deletes every request whose deadline has passed and returns how many went.
func (s *RideRequests) Expire(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredRideRequests(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.RideRequestsExpired.Add(float64(n))
		s.log.InfoContext(ctx, "ride_requests_expired", "count", n)
	}
	return n, nil
}

// RunJanitor calls Expire every interval until ctx is done.
func (s *RideRequests) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Expire(ctx); err != nil && ctx.Err() == nil {
				s.log.WarnContext(ctx, "ride_request_janitor_failed", "err", err)
			}
		}
	}
}
