package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/voyya/internal/geo"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/observability"
	"github.com/example/voyya/internal/storage"
)

type Drivers struct {
	store  storage.Store
	index  geo.Index
	notify Notifier
	radius float64
	log    *slog.Logger
	now    func() time.Time
}

type DriverInput struct {
	VehicleType   models.VehicleType
	VehicleMake   *string
	VehicleModel  *string
	VehiclePlate  *string
	VehicleColor  *string
	LicenseNumber *string
}

// AvailableDriver is a driver listing entry; Distance is set for proximity searches.
type AvailableDriver struct {
	models.Driver
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
}

func (d *Drivers) Get(ctx context.Context, userID int64) (*models.Driver, error) {
	return d.store.GetDriver(ctx, userID)
}

func (d *Drivers) Create(ctx context.Context, userID int64, in DriverInput) (*models.Driver, error) {
	if in.VehicleType != "" && !in.VehicleType.Valid() {
		return nil, invalid("vehicleType must be economy, comfort or premium")
	}
	drv := &models.Driver{
		UserID:        userID,
		VehicleType:   in.VehicleType,
		VehicleMake:   in.VehicleMake,
		VehicleModel:  in.VehicleModel,
		VehiclePlate:  in.VehiclePlate,
		VehicleColor:  in.VehicleColor,
		LicenseNumber: in.LicenseNumber,
	}
	if err := d.store.CreateDriver(ctx, drv); err != nil {
		return nil, err
	}
	return drv, nil
}

func (d *Drivers) Update(ctx context.Context, userID int64, upd models.DriverUpdate) (*models.Driver, error) {
	if upd.VehicleType != nil && !upd.VehicleType.Valid() {
		return nil, invalid("vehicleType must be economy, comfort or premium")
	}
	if upd.IsAvailable != nil {
		if _, err := d.SetAvailability(ctx, userID, *upd.IsAvailable); err != nil {
			return nil, err
		}
		upd.IsAvailable = nil
	}
	if err := d.store.UpdateDriver(ctx, userID, upd); err != nil {
		return nil, err
	}
	return d.store.GetDriver(ctx, userID)
}

// UpdateLocation records a position reported through the API and relays it to riders
// watching the driver.
func (d *Drivers) UpdateLocation(ctx context.Context, userID int64, lat, lon float64) (models.DriverLocation, error) {
	if !validCoord(lat, lon) {
		return models.DriverLocation{}, invalid("coordinates out of range")
	}
	loc := models.DriverLocation{DriverID: userID, Latitude: lat, Longitude: lon, Timestamp: d.now()}
	if err := d.Record(ctx, loc); err != nil {
		return loc, err
	}
	d.notify.BroadcastDriverLocation(loc)
	observability.DriverLocationUpdates.WithLabelValues("api").Inc()
	return loc, nil
}

// Record persists a location and refreshes the proximity index for available drivers.
// The Kafka consumer uses it for locations streamed over the relay.
func (d *Drivers) Record(ctx context.Context, loc models.DriverLocation) error {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = d.now()
	}
	if err := d.store.UpdateDriverLocation(ctx, loc.DriverID, loc.Latitude, loc.Longitude, loc.Timestamp); err != nil {
		return err
	}
	drv, err := d.store.GetDriver(ctx, loc.DriverID)
	if err != nil {
		return err
	}
	if drv.IsAvailable {
		d.indexUpsert(ctx, loc.DriverID, loc.Latitude, loc.Longitude, loc.Timestamp)
	}
	return nil
}

// SetAvailability toggles whether the driver takes rides. Going offline drops the driver
// from the proximity index; going online indexes the last known position.
func (d *Drivers) SetAvailability(ctx context.Context, userID int64, available bool) (*models.Driver, error) {
	before, err := d.store.GetDriver(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := d.store.UpdateDriver(ctx, userID, models.DriverUpdate{IsAvailable: &available}); err != nil {
		return nil, err
	}
	if available {
		if before.HasLocation() {
			at := d.now()
			if before.LastLocationUpdate != nil {
				at = *before.LastLocationUpdate
			}
			d.indexUpsert(ctx, userID, *before.CurrentLatitude, *before.CurrentLongitude, at)
		}
		if !before.IsAvailable {
			observability.DriversOnline.Inc()
		}
	} else {
		if err := d.index.Remove(ctx, userID); err != nil {
			d.log.WarnContext(ctx, "geo_index_remove_failed", "driver_id", userID, "err", err)
		}
		if before.IsAvailable {
			observability.DriversOnline.Dec()
		}
	}
	return d.store.GetDriver(ctx, userID)
}

func (d *Drivers) indexUpsert(ctx context.Context, userID int64, lat, lon float64, at time.Time) {
	if err := d.index.Upsert(ctx, geo.Position{DriverID: userID, Lat: lat, Lon: lon, Updated: at}); err != nil {
		d.log.WarnContext(ctx, "geo_index_upsert_failed", "driver_id", userID, "err", err)
	}
}

// Available lists available drivers. With near set, drivers are ranked by distance within
// the configured radius; if the index fails the plain listing is returned.
func (d *Drivers) Available(ctx context.Context, limit int, near *models.Coord) ([]AvailableDriver, error) {
	if limit <= 0 {
		limit = storage.DefaultAvailableLimit
	}
	if near != nil {
		if !validCoord(near.Lat, near.Lon) {
			return nil, invalid("coordinates out of range")
		}
		out, err := d.nearby(ctx, *near, limit)
		if err == nil {
			return out, nil
		}
		d.log.WarnContext(ctx, "geo_index_nearby_failed", "err", err)
	}
	drivers, err := d.store.ListAvailableDrivers(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableDriver, 0, len(drivers))
	for _, drv := range drivers {
		out = append(out, AvailableDriver{Driver: drv})
	}
	return out, nil
}

func (d *Drivers) nearby(ctx context.Context, near models.Coord, limit int) ([]AvailableDriver, error) {
	// Ask for extra candidates; stale index entries are filtered below.
	positions, err := d.index.Nearby(ctx, near.Lat, near.Lon, d.radius, limit*2)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableDriver, 0, limit)
	for _, p := range positions {
		drv, err := d.store.GetDriver(ctx, p.DriverID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !drv.IsAvailable {
			continue
		}
		dist := p.DistanceMeters
		out = append(out, AvailableDriver{Driver: *drv, DistanceMeters: &dist})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
