// Package dispatch publishes ride lifecycle events to downstream consumers.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/voyya/internal/models"
)

// Event is emitted whenever a ride changes status.
type Event struct {
	RideID        int64                `json:"rideId"`
	RiderID       int64                `json:"riderId"`
	DriverID      *int64               `json:"driverId,omitempty"`
	Status        models.RideStatus    `json:"status"`
	Previous      models.RideStatus    `json:"previousStatus"`
	TotalFare     float64              `json:"totalFare"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	At            time.Time            `json:"timestamp"`
}

// RoutingKey is the topic for the event, e.g. ride.status.completed.
func (e Event) RoutingKey() string {
	return "ride.status." + string(e.Status)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log; used when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	p.Log.InfoContext(ctx, "ride_event",
		"routing_key", e.RoutingKey(),
		"ride_id", e.RideID,
		"previous", e.Previous,
		"total_fare", e.TotalFare,
	)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
