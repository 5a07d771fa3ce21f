// Package fare prices trips with a linear formula per vehicle tier.
package fare

import (
	"math"

	"github.com/example/voyya/internal/models"
)

// Tier holds the rates of one vehicle type.
type Tier struct {
	Base      float64
	PerKm     float64
	PerMinute float64
}

var tiers = map[models.VehicleType]Tier{
	models.VehicleEconomy: {Base: 2.5, PerKm: 1.5, PerMinute: 0.25},
	models.VehicleComfort: {Base: 4.0, PerKm: 2.0, PerMinute: 0.35},
	models.VehiclePremium: {Base: 6.0, PerKm: 2.5, PerMinute: 0.5},
}

// TierFor returns the rates for vt, economy for unknown types.
func TierFor(vt models.VehicleType) Tier {
	if t, ok := tiers[vt]; ok {
		return t
	}
	return tiers[models.VehicleEconomy]
}

type Breakdown struct {
	BaseFare     float64 `json:"baseFare"`
	DistanceFare float64 `json:"distanceFare"`
	TimeFare     float64 `json:"timeFare"`
	TotalFare    float64 `json:"totalFare"`
}

// Calculate prices a trip of distanceKm kilometers lasting durationMin minutes.
// Each component and the total are rounded to cents on their own; the total is
// rounded from the exact sum, not from the rounded parts.
func Calculate(distanceKm, durationMin float64, vt models.VehicleType) Breakdown {
	t := TierFor(vt)
	distanceFare := distanceKm * t.PerKm
	timeFare := durationMin * t.PerMinute
	total := t.Base + distanceFare + timeFare
	return Breakdown{
		BaseFare:     Round2(t.Base),
		DistanceFare: Round2(distanceFare),
		TimeFare:     Round2(timeFare),
		TotalFare:    Round2(total),
	}
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
