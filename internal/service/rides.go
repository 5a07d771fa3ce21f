package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/voyya/internal/dispatch"
	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/observability"
	"github.com/example/voyya/internal/payments"
	"github.com/example/voyya/internal/storage"
)

type Rides struct {
	store    storage.Store
	quoter   *fare.Quoter
	payments payments.Gateway
	events   dispatch.Publisher
	notify   Notifier
	log      *slog.Logger
	now      func() time.Time

	// updates to one ride are serialised so a card is never held twice
	locks [64]sync.Mutex
}

type RideInput struct {
	PickupLatitude    float64
	PickupLongitude   float64
	PickupAddress     *string
	DropoffLatitude   float64
	DropoffLongitude  float64
	DropoffAddress    *string
	Distance          *float64
	EstimatedDuration *int
	BaseFare          float64
	DistanceFare      float64
	TimeFare          float64
	TotalFare         float64
	VehicleType       models.VehicleType
	PaymentMethod     models.PaymentKind
}

// RideChange is what a client may change on a ride. Any status may be set from any other.
type RideChange struct {
	Status             *models.RideStatus
	DriverID           *int64
	ActualDuration     *int
	PaymentStatus      *models.PaymentStatus
	CancellationReason *string
}

func (s *Rides) Get(ctx context.Context, id int64) (*models.Ride, error) {
	return s.store.GetRide(ctx, id)
}

// Create books a ride for riderID. When no total fare is supplied the ride is priced from
// its end points.
func (s *Rides) Create(ctx context.Context, riderID int64, in RideInput) (*models.Ride, error) {
	if !validCoord(in.PickupLatitude, in.PickupLongitude) || !validCoord(in.DropoffLatitude, in.DropoffLongitude) {
		return nil, invalid("coordinates out of range")
	}
	if in.VehicleType != "" && !in.VehicleType.Valid() {
		return nil, invalid("vehicleType must be economy, comfort or premium")
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return nil, invalid("paymentMethod must be cash, card or wallet")
	}
	if in.BaseFare < 0 || in.DistanceFare < 0 || in.TimeFare < 0 || in.TotalFare < 0 {
		return nil, invalid("fares must not be negative")
	}
	r := &models.Ride{
		RiderID:           riderID,
		PickupLatitude:    in.PickupLatitude,
		PickupLongitude:   in.PickupLongitude,
		PickupAddress:     in.PickupAddress,
		DropoffLatitude:   in.DropoffLatitude,
		DropoffLongitude:  in.DropoffLongitude,
		DropoffAddress:    in.DropoffAddress,
		Distance:          in.Distance,
		EstimatedDuration: in.EstimatedDuration,
		BaseFare:          in.BaseFare,
		DistanceFare:      in.DistanceFare,
		TimeFare:          in.TimeFare,
		TotalFare:         in.TotalFare,
		VehicleType:       in.VehicleType,
		PaymentMethod:     in.PaymentMethod,
		RequestedAt:       s.now(),
	}
	if r.TotalFare == 0 {
		q, err := s.quoter.Quote(ctx, r.Pickup(), r.Dropoff(), in.VehicleType)
		if err != nil {
			return nil, err
		}
		r.BaseFare, r.DistanceFare, r.TimeFare, r.TotalFare = q.BaseFare, q.DistanceFare, q.TimeFare, q.TotalFare
		if r.Distance == nil {
			r.Distance = &q.DistanceKm
		}
		if r.EstimatedDuration == nil {
			r.EstimatedDuration = &q.DurationMin
		}
	}
	if err := s.store.CreateRide(ctx, r); err != nil {
		return nil, err
	}
	observability.RidesCreated.Inc()
	s.log.InfoContext(ctx, "ride_created", "ride_id", r.ID, "rider_id", riderID, "total_fare", r.TotalFare)
	return r, nil
}

// Update applies a change. When the status changes the lifecycle side effects run:
// timestamps, card payment hold/capture/release, profile totals on completion, relay
// notifications and a dispatch event. The change is stored before the card is touched;
// the payment outcome is stored afterwards. Side effects other than the first store write
// are best effort.
func (s *Rides) Update(ctx context.Context, id int64, ch RideChange) (*models.Ride, error) {
	if ch.Status != nil && !ch.Status.Valid() {
		return nil, invalid("unknown ride status %q", *ch.Status)
	}
	if ch.PaymentStatus != nil && !ch.PaymentStatus.Valid() {
		return nil, invalid("unknown payment status %q", *ch.PaymentStatus)
	}
	if ch.ActualDuration != nil && *ch.ActualDuration < 0 {
		return nil, invalid("actualDuration must not be negative")
	}
	mu := &s.locks[uint64(id)%uint64(len(s.locks))]
	mu.Lock()
	defer mu.Unlock()

	cur, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := models.RideUpdate{
		Status:             ch.Status,
		DriverID:           ch.DriverID,
		ActualDuration:     ch.ActualDuration,
		PaymentStatus:      ch.PaymentStatus,
		CancellationReason: ch.CancellationReason,
	}
	changed := ch.Status != nil && *ch.Status != cur.Status
	if changed {
		at := s.now()
		switch *ch.Status {
		case models.StatusAccepted:
			upd.AcceptedAt = &at
		case models.StatusInProgress:
			upd.StartedAt = &at
		case models.StatusCompleted:
			upd.CompletedAt = &at
		case models.StatusCancelled:
			upd.CancelledAt = &at
		}
	}
	if err := s.store.UpdateRide(ctx, id, upd); err != nil {
		return nil, err
	}
	if changed {
		s.settle(ctx, cur, *ch.Status)
	}
	ride, err := s.store.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterTransition(ctx, cur.Status, ride)
	}
	return ride, nil
}

// settle runs the card payment step for a stored transition and records its outcome.
func (s *Rides) settle(ctx context.Context, cur *models.Ride, next models.RideStatus) {
	if s.payments == nil || cur.PaymentMethod != models.PayCard {
		return
	}
	var upd models.RideUpdate
	intent := cur.PaymentIntentID
	hold := func() {
		id, err := s.payments.Hold(ctx, cur.TotalFare, cur.ID)
		observability.PaymentOps.WithLabelValues("hold", observability.Result(err)).Inc()
		if err != nil {
			s.log.WarnContext(ctx, "payment_hold_failed", "ride_id", cur.ID, "err", err)
			return
		}
		intent = &id
		upd.PaymentIntentID = &id
	}

	switch next {
	case models.StatusAccepted:
		if intent == nil {
			hold()
		}
	case models.StatusCompleted:
		if intent == nil {
			hold()
		}
		status := models.PaymentFailed
		if intent != nil {
			err := s.payments.Capture(ctx, *intent)
			observability.PaymentOps.WithLabelValues("capture", observability.Result(err)).Inc()
			if err != nil {
				s.log.WarnContext(ctx, "payment_capture_failed", "ride_id", cur.ID, "err", err)
			} else {
				status = models.PaymentCompleted
			}
		}
		upd.PaymentStatus = &status
	case models.StatusCancelled:
		if intent != nil {
			s.release(ctx, cur.ID, *intent)
		}
	}
	if upd.PaymentIntentID == nil && upd.PaymentStatus == nil {
		return
	}
	if err := s.store.UpdateRide(ctx, cur.ID, upd); err != nil {
		s.log.ErrorContext(ctx, "payment_record_failed", "ride_id", cur.ID, "err", err)
		// an uncaptured hold nobody can find again is released
		if upd.PaymentIntentID != nil && (upd.PaymentStatus == nil || *upd.PaymentStatus != models.PaymentCompleted) {
			s.release(ctx, cur.ID, *upd.PaymentIntentID)
		}
	}
}

func (s *Rides) release(ctx context.Context, rideID int64, intent string) {
	err := s.payments.Cancel(ctx, intent)
	observability.PaymentOps.WithLabelValues("cancel", observability.Result(err)).Inc()
	if err != nil {
		s.log.WarnContext(ctx, "payment_cancel_failed", "ride_id", rideID, "err", err)
	}
}

func (s *Rides) afterTransition(ctx context.Context, prev models.RideStatus, ride *models.Ride) {
	observability.RideStatusChanges.WithLabelValues(string(ride.Status)).Inc()
	s.log.InfoContext(ctx, "ride_status_changed", "ride_id", ride.ID, "from", prev, "to", ride.Status)

	s.notify.NotifyRideStatus(ride.ID, ride.Status)
	switch ride.Status {
	case models.StatusArrived:
		if ride.DriverID != nil {
			s.notify.NotifyDriverArrival(ride.ID, *ride.DriverID, s.userName(ctx, *ride.DriverID))
		}
	case models.StatusCompleted:
		s.notify.NotifyRideCompletion(ride.ID, ride.TotalFare)
		s.addStats(ctx, ride.RiderID, 0)
		if ride.DriverID != nil {
			s.addStats(ctx, *ride.DriverID, ride.TotalFare)
		}
	}

	err := s.events.Publish(ctx, dispatch.Event{
		RideID:        ride.ID,
		RiderID:       ride.RiderID,
		DriverID:      ride.DriverID,
		Status:        ride.Status,
		Previous:      prev,
		TotalFare:     ride.TotalFare,
		PaymentStatus: ride.PaymentStatus,
		At:            ride.UpdatedAt,
	})
	observability.DispatchEvents.WithLabelValues(observability.Result(err)).Inc()
	if err != nil {
		s.log.WarnContext(ctx, "dispatch_publish_failed", "ride_id", ride.ID, "err", err)
	}
}

func (s *Rides) addStats(ctx context.Context, userID int64, earnings float64) {
	if err := ignoreMissing(s.store.AddProfileStats(ctx, userID, 1, earnings)); err != nil {
		s.log.WarnContext(ctx, "profile_stats_failed", "user_id", userID, "err", err)
	}
}

func (s *Rides) userName(ctx context.Context, userID int64) string {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u.Name == nil {
		return ""
	}
	return *u.Name
}

func (s *Rides) RiderHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	return s.store.RiderRideHistory(ctx, userID, limit)
}

func (s *Rides) DriverHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	return s.store.DriverRideHistory(ctx, userID, limit)
}

// Active lists the caller's unfinished rides, as a driver for userType driver and as a
// rider otherwise.
func (s *Rides) Active(ctx context.Context, userID int64, userType models.UserType) ([]models.Ride, error) {
	if userType != "" && !userType.Valid() {
		return nil, invalid("userType must be rider, driver or both")
	}
	return s.store.ActiveRides(ctx, userID, userType == models.UserTypeDriver)
}
