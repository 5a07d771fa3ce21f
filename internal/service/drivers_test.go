package service

import (
	"context"
	"errors"
	"testing"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

func TestDriverLocationAndAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	near := f.user(t, "near", models.UserTypeDriver)
	far := f.user(t, "far", models.UserTypeDriver)
	for i, u := range []*models.User{near, far} {
		plate := []string{"NEAR-1", "FAR-1"}[i]
		if _, err := f.svc.Drivers.Create(ctx, u.ID, DriverInput{VehiclePlate: &plate}); err != nil {
			t.Fatalf("create driver: %v", err)
		}
	}

	if _, err := f.svc.Drivers.UpdateLocation(ctx, near.ID, nyc.Lat+0.001, nyc.Lon); err != nil {
		t.Fatalf("location: %v", err)
	}
	if _, err := f.svc.Drivers.UpdateLocation(ctx, far.ID, nyc.Lat+0.1, nyc.Lon); err != nil {
		t.Fatalf("location: %v", err)
	}
	if c, ok := f.notifier.find("location"); !ok || c.driverID != near.ID {
		t.Fatalf("location not broadcast: %+v", f.notifier.calls)
	}

	// offline drivers are not indexed
	got, err := f.svc.Drivers.Available(ctx, 10, &nyc)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no available drivers, got %v, %v", got, err)
	}

	for _, u := range []*models.User{near, far} {
		drv, err := f.svc.Drivers.SetAvailability(ctx, u.ID, true)
		if err != nil || !drv.IsAvailable {
			t.Fatalf("availability = %+v, %v", drv, err)
		}
	}

	got, err = f.svc.Drivers.Available(ctx, 10, &nyc)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(got) != 1 || got[0].UserID != near.ID || got[0].DistanceMeters == nil || *got[0].DistanceMeters > 200 {
		t.Fatalf("expected only the nearby driver, got %+v", got)
	}

	all, err := f.svc.Drivers.Available(ctx, 10, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("listing = %v, %v", all, err)
	}

	off := false
	if _, err := f.svc.Drivers.Update(ctx, near.ID, models.DriverUpdate{IsAvailable: &off, VehicleColor: strp("red")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = f.svc.Drivers.Available(ctx, 10, &nyc)
	if len(got) != 0 {
		t.Fatalf("offline driver still nearby: %+v", got)
	}
	drv, _ := f.svc.Drivers.Get(ctx, near.ID)
	if drv.IsAvailable || drv.VehicleColor == nil || *drv.VehicleColor != "red" {
		t.Fatalf("unexpected driver %+v", drv)
	}
}

func TestDriverValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "d", models.UserTypeDriver)
	if _, err := f.svc.Drivers.Create(ctx, u.ID, DriverInput{VehicleType: "rickshaw"}); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := f.svc.Drivers.UpdateLocation(ctx, u.ID, 0, 200); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := f.svc.Drivers.UpdateLocation(ctx, u.ID, 1, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a driver row, got %v", err)
	}
	if _, err := f.svc.Drivers.Available(ctx, 0, &models.Coord{Lat: 100}); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
