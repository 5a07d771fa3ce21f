package fare

import (
	"context"
	"fmt"
	"math"

	"github.com/example/voyya/internal/eta"
	"github.com/example/voyya/internal/geo"
	"github.com/example/voyya/internal/models"
)

type Quote struct {
	DistanceKm  float64            `json:"distance"`
	DurationMin int                `json:"estimatedDuration"`
	VehicleType models.VehicleType `json:"vehicleType"`
	Breakdown
}

// Quoter prices a trip from its end points.
type Quoter struct {
	ETA eta.Estimator
}

func NewQuoter(e eta.Estimator) *Quoter {
	if e == nil {
		e = eta.Naive{}
	}
	return &Quoter{ETA: e}
}

func (q *Quoter) Quote(ctx context.Context, pickup, dropoff models.Coord, vt models.VehicleType) (Quote, error) {
	if !vt.Valid() {
		vt = models.VehicleEconomy
	}
	distance := Round2(geo.DistanceKm(pickup.Lat, pickup.Lon, dropoff.Lat, dropoff.Lon))
	secs, err := q.ETA.EstimateSeconds(ctx, pickup, dropoff)
	if err != nil {
		return Quote{}, fmt.Errorf("estimate duration: %w", err)
	}
	minutes := int(math.Ceil(secs / 60))
	return Quote{
		DistanceKm:  distance,
		DurationMin: minutes,
		VehicleType: vt,
		Breakdown:   Calculate(distance, float64(minutes), vt),
	}, nil
}
