package geo

import (
	"context"
	"math"
	"testing"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(40.7128, -74.006, 40.7128, -74.006)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		min, max               float64
	}{
		{"times square to empire state", 40.758, -73.9855, 40.7484, -73.9857, 0.5, 1.5},
		{"new york to los angeles", 40.7128, -74.006, 34.0522, -118.2437, 3900, 4000},
		{"about one km north", 40.7128, -74.006, 40.7228, -74.006, 0.9, 1.2},
		{"about ten km north", 40.7128, -74.006, 40.8128, -74.006, 10, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if d < tt.min || d > tt.max {
				t.Fatalf("distance %f outside [%f, %f]", d, tt.min, tt.max)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := DistanceKm(40.7128, -74.006, 34.0522, -118.2437)
	b := DistanceKm(34.0522, -118.2437, 40.7128, -74.006)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("expected symmetric distances, got %f and %f", a, b)
	}
}

func TestMemoryIndexNearby(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	_ = idx.Upsert(ctx, Position{DriverID: 1, Lat: 40.7228, Lon: -74.006}) // ~1.1km
	_ = idx.Upsert(ctx, Position{DriverID: 2, Lat: 40.7138, Lon: -74.006}) // ~110m
	_ = idx.Upsert(ctx, Position{DriverID: 3, Lat: 34.0522, Lon: -118.2437})

	got, err := idx.Nearby(ctx, 40.7128, -74.006, 5000, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 drivers within radius, got %d", len(got))
	}
	if got[0].DriverID != 2 || got[1].DriverID != 1 {
		t.Fatalf("expected order [2 1], got [%d %d]", got[0].DriverID, got[1].DriverID)
	}

	got, _ = idx.Nearby(ctx, 40.7128, -74.006, 5000, 1)
	if len(got) != 1 || got[0].DriverID != 2 {
		t.Fatalf("expected only the closest driver, got %+v", got)
	}

	_ = idx.Remove(ctx, 2)
	got, _ = idx.Nearby(ctx, 40.7128, -74.006, 5000, 10)
	if len(got) != 1 || got[0].DriverID != 1 {
		t.Fatalf("expected driver 1 after removal, got %+v", got)
	}
}
