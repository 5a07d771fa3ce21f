package geo

import (
	"context"
	"math"
	"sync"
	"time"
)

const earthRadiusMeters = 6371000.0

// Position is the last known location of a driver in the index.
type Position struct {
	DriverID       int64     `json:"driverId"`
	Lat            float64   `json:"latitude"`
	Lon            float64   `json:"longitude"`
	DistanceMeters float64   `json:"distanceMeters,omitempty"`
	Updated        time.Time `json:"updated"`
}

// Index keeps the positions of drivers that are currently available.
type Index interface {
	Upsert(ctx context.Context, p Position) error
	Remove(ctx context.Context, driverID int64) error
	Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]Position, error)
}

type MemoryIndex struct {
	mu      sync.RWMutex
	drivers map[int64]Position
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{drivers: make(map[int64]Position)}
}

func (g *MemoryIndex) Upsert(_ context.Context, p Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.Updated.IsZero() {
		p.Updated = time.Now()
	}
	p.DistanceMeters = 0
	g.drivers[p.DriverID] = p
	return nil
}

func (g *MemoryIndex) Remove(_ context.Context, driverID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.drivers, driverID)
	return nil
}

// naive scan; redis GEOSEARCH does this properly
func (g *MemoryIndex) Nearby(_ context.Context, lat, lon, radiusMeters float64, limit int) ([]Position, error) {
	g.mu.RLock()
	arr := make([]Position, 0, len(g.drivers))
	for _, p := range g.drivers {
		p.DistanceMeters = Haversine(lat, lon, p.Lat, p.Lon)
		if radiusMeters > 0 && p.DistanceMeters > radiusMeters {
			continue
		}
		arr = append(arr, p)
	}
	g.mu.RUnlock()

	// partial selection sort for top-N
	n := limit
	if n <= 0 || n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].DistanceMeters < arr[minIdx].DistanceMeters ||
				(arr[j].DistanceMeters == arr[minIdx].DistanceMeters && arr[j].DriverID < arr[minIdx].DriverID) {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	return arr[:n], nil
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// DistanceKm is Haversine in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(lat1, lon1, lat2, lon2) / 1000
}
