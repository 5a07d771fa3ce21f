package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/voyya/internal/models"
)

const (
	rideColumns = `id, rider_id, driver_id, pickup_latitude, pickup_longitude, pickup_address,
		dropoff_latitude, dropoff_longitude, dropoff_address, distance, estimated_duration, actual_duration,
		base_fare, distance_fare, time_fare, total_fare, status, vehicle_type, payment_method, payment_status,
		payment_intent_id, requested_at, accepted_at, started_at, completed_at, cancelled_at, cancellation_reason,
		created_at, updated_at`
	ratingColumns  = `id, ride_id, rated_by_id, rated_user_id, rating_type, score, comment, created_at, updated_at`
	methodColumns  = `id, user_id, payment_type, card_last4, card_brand, wallet_balance, is_default, is_active, created_at, updated_at`
	requestColumns = `id, rider_id, pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
		vehicle_type, estimated_fare, status, expires_at, created_at`
)

func (s *SQLStore) CreateRide(ctx context.Context, r *models.Ride) error {
	ts := now()
	rideDefaults(r, ts)
	id, err := s.insert(ctx, `INSERT INTO rides
		(rider_id, driver_id, pickup_latitude, pickup_longitude, pickup_address,
		 dropoff_latitude, dropoff_longitude, dropoff_address, distance, estimated_duration, actual_duration,
		 base_fare, distance_fare, time_fare, total_fare, status, vehicle_type, payment_method, payment_status,
		 payment_intent_id, requested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RiderID, r.DriverID, r.PickupLatitude, r.PickupLongitude, r.PickupAddress,
		r.DropoffLatitude, r.DropoffLongitude, r.DropoffAddress, r.Distance, r.EstimatedDuration, r.ActualDuration,
		r.BaseFare, r.DistanceFare, r.TimeFare, r.TotalFare, r.Status, r.VehicleType, r.PaymentMethod, r.PaymentStatus,
		r.PaymentIntentID, r.RequestedAt.UTC(), ts, ts)
	if err != nil {
		return fmt.Errorf("create ride: %w", err)
	}
	r.ID, r.CreatedAt, r.UpdatedAt = id, ts, ts
	return nil
}

func (s *SQLStore) GetRide(ctx context.Context, id int64) (*models.Ride, error) {
	var r models.Ride
	if err := s.get(ctx, &r, `SELECT `+rideColumns+` FROM rides WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) UpdateRide(ctx context.Context, id int64, upd models.RideUpdate) error {
	var l setList
	if upd.Status != nil {
		l.add("status", *upd.Status)
	}
	if upd.DriverID != nil {
		l.add("driver_id", *upd.DriverID)
	}
	if upd.ActualDuration != nil {
		l.add("actual_duration", *upd.ActualDuration)
	}
	if upd.PaymentStatus != nil {
		l.add("payment_status", *upd.PaymentStatus)
	}
	if upd.CancellationReason != nil {
		l.add("cancellation_reason", *upd.CancellationReason)
	}
	if upd.PaymentIntentID != nil {
		l.add("payment_intent_id", *upd.PaymentIntentID)
	}
	for col, t := range map[string]*time.Time{
		"accepted_at":  upd.AcceptedAt,
		"started_at":   upd.StartedAt,
		"completed_at": upd.CompletedAt,
		"cancelled_at": upd.CancelledAt,
	} {
		if t != nil {
			l.add(col, t.UTC())
		}
	}
	l.add("updated_at", now())
	return s.update(ctx, "rides", l, "id = ?", id)
}

func (s *SQLStore) RiderRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	out := make([]models.Ride, 0)
	err := s.selectAll(ctx, &out, `SELECT `+rideColumns+` FROM rides
		WHERE rider_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, historyLimit(limit))
	return out, err
}

func (s *SQLStore) DriverRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	out := make([]models.Ride, 0)
	err := s.selectAll(ctx, &out, `SELECT `+rideColumns+` FROM rides
		WHERE driver_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, historyLimit(limit))
	return out, err
}

func (s *SQLStore) ActiveRides(ctx context.Context, userID int64, asDriver bool) ([]models.Ride, error) {
	col := "rider_id"
	if asDriver {
		col = "driver_id"
	}
	args := []any{userID}
	marks := make([]string, len(models.ActiveStatuses))
	for i, st := range models.ActiveStatuses {
		marks[i] = "?"
		args = append(args, st)
	}
	out := make([]models.Ride, 0)
	err := s.selectAll(ctx, &out, `SELECT `+rideColumns+` FROM rides
		WHERE `+col+` = ? AND status IN (`+strings.Join(marks, ", ")+`)
		ORDER BY created_at DESC, id DESC`, args...)
	return out, err
}

func (s *SQLStore) CreateRating(ctx context.Context, r *models.Rating) error {
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO ratings
		(ride_id, rated_by_id, rated_user_id, rating_type, score, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RideID, r.RatedByID, r.RatedUserID, r.RatingType, r.Score, r.Comment, ts, ts)
	if err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	r.ID, r.CreatedAt, r.UpdatedAt = id, ts, ts
	return nil
}

func (s *SQLStore) GetRating(ctx context.Context, rideID int64) (*models.Rating, error) {
	var r models.Rating
	if err := s.get(ctx, &r, `SELECT `+ratingColumns+` FROM ratings WHERE ride_id = ?`, rideID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLStore) UserRatings(ctx context.Context, userID int64) ([]models.Rating, error) {
	out := make([]models.Rating, 0)
	err := s.selectAll(ctx, &out, `SELECT `+ratingColumns+` FROM ratings
		WHERE rated_user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	return out, err
}

func (s *SQLStore) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO payment_methods
		(user_id, payment_type, card_last4, card_brand, wallet_balance, is_default, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pm.UserID, pm.PaymentType, pm.CardLast4, pm.CardBrand, pm.WalletBalance, pm.IsDefault, pm.IsActive, ts, ts)
	if err != nil {
		return fmt.Errorf("create payment method: %w", err)
	}
	pm.ID, pm.CreatedAt, pm.UpdatedAt = id, ts, ts
	return nil
}

func (s *SQLStore) GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := s.get(ctx, &pm, `SELECT `+methodColumns+` FROM payment_methods WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &pm, nil
}

func (s *SQLStore) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	out := make([]models.PaymentMethod, 0)
	err := s.selectAll(ctx, &out, `SELECT `+methodColumns+` FROM payment_methods WHERE user_id = ? ORDER BY id`, userID)
	return out, err
}

func (s *SQLStore) DefaultPaymentMethod(ctx context.Context, userID int64) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := s.get(ctx, &pm, `SELECT `+methodColumns+` FROM payment_methods
		WHERE user_id = ? AND is_default = ? ORDER BY id LIMIT 1`, userID, true); err != nil {
		return nil, err
	}
	return &pm, nil
}

func (s *SQLStore) UpdatePaymentMethod(ctx context.Context, id int64, upd models.PaymentMethodUpdate) error {
	var l setList
	if upd.IsDefault != nil {
		l.add("is_default", *upd.IsDefault)
	}
	if upd.IsActive != nil {
		l.add("is_active", *upd.IsActive)
	}
	l.add("updated_at", now())
	return s.update(ctx, "payment_methods", l, "id = ?", id)
}

func (s *SQLStore) CreateRideRequest(ctx context.Context, rr *models.RideRequest) error {
	requestDefaults(rr)
	ts := now()
	rr.ExpiresAt = rr.ExpiresAt.UTC()
	id, err := s.insert(ctx, `INSERT INTO ride_requests
		(rider_id, pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
		 vehicle_type, estimated_fare, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rr.RiderID, rr.PickupLatitude, rr.PickupLongitude, rr.DropoffLatitude, rr.DropoffLongitude,
		rr.VehicleType, rr.EstimatedFare, rr.Status, rr.ExpiresAt, ts)
	if err != nil {
		return fmt.Errorf("create ride request: %w", err)
	}
	rr.ID, rr.CreatedAt = id, ts
	return nil
}

func (s *SQLStore) GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error) {
	var rr models.RideRequest
	if err := s.get(ctx, &rr, `SELECT `+requestColumns+` FROM ride_requests WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &rr, nil
}

func (s *SQLStore) UpdateRideRequest(ctx context.Context, id int64, upd models.RideRequestUpdate) error {
	if upd.Status == nil {
		// Nothing to change; still report a missing row.
		_, err := s.GetRideRequest(ctx, id)
		return err
	}
	var l setList
	l.add("status", *upd.Status)
	return s.update(ctx, "ride_requests", l, "id = ?", id)
}

func (s *SQLStore) PendingRideRequests(ctx context.Context, at time.Time) ([]models.RideRequest, error) {
	out := make([]models.RideRequest, 0)
	err := s.selectAll(ctx, &out, `SELECT `+requestColumns+` FROM ride_requests
		WHERE status = ? AND expires_at >= ? ORDER BY created_at DESC, id DESC`, models.RequestPending, at.UTC())
	return out, err
}

func (s *SQLStore) DeleteExpiredRideRequests(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM ride_requests WHERE expires_at <= ?`), at.UTC())
	if err != nil {
		return 0, s.classify(err)
	}
	n, err := res.RowsAffected()
	return n, s.classify(err)
}
