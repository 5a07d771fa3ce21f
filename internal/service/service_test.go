package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/voyya/internal/dispatch"
	"github.com/example/voyya/internal/logging"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/storage"
)

type notified struct {
	kind     string
	rideID   int64
	driverID int64
	status   models.RideStatus
	name     string
	fare     float64
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notified
}

func (n *recordingNotifier) add(c notified) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
}

func (n *recordingNotifier) BroadcastDriverLocation(loc models.DriverLocation) {
	n.add(notified{kind: "location", driverID: loc.DriverID})
}

func (n *recordingNotifier) NotifyRideStatus(rideID int64, status models.RideStatus) {
	n.add(notified{kind: "status", rideID: rideID, status: status})
}

func (n *recordingNotifier) NotifyDriverArrival(rideID, driverID int64, name string) {
	n.add(notified{kind: "arrived", rideID: rideID, driverID: driverID, name: name})
}

func (n *recordingNotifier) NotifyRideCompletion(rideID int64, fare float64) {
	n.add(notified{kind: "completed", rideID: rideID, fare: fare})
}

func (n *recordingNotifier) find(kind string) (notified, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.calls {
		if c.kind == kind {
			return c, true
		}
	}
	return notified{}, false
}

type fakeGateway struct {
	held       []float64
	captured   []string
	cancelled  []string
	captureErr error
}

func (g *fakeGateway) Hold(_ context.Context, amount float64, rideID int64) (string, error) {
	g.held = append(g.held, amount)
	return "pi_test", nil
}

func (g *fakeGateway) Capture(_ context.Context, id string) error {
	g.captured = append(g.captured, id)
	return g.captureErr
}

func (g *fakeGateway) Cancel(_ context.Context, id string) error {
	g.cancelled = append(g.cancelled, id)
	return nil
}

type capturePublisher struct{ events []dispatch.Event }

func (p *capturePublisher) Publish(_ context.Context, e dispatch.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

// intentRejectingStore fails every write that records a payment intent.
type intentRejectingStore struct {
	*storage.MemoryStore
}

func (s intentRejectingStore) UpdateRide(ctx context.Context, id int64, upd models.RideUpdate) error {
	if upd.PaymentIntentID != nil {
		return storage.ErrUnavailable
	}
	return s.MemoryStore.UpdateRide(ctx, id, upd)
}

type fixture struct {
	store    *storage.MemoryStore
	svc      *Services
	notifier *recordingNotifier
	gateway  *fakeGateway
	events   *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemoryStore(),
		notifier: &recordingNotifier{},
		gateway:  &fakeGateway{},
		events:   &capturePublisher{},
	}
	f.svc = New(Deps{
		Store:    f.store,
		Payments: f.gateway,
		Events:   f.events,
		Notifier: f.notifier,
		Log:      logging.Discard(),
	})
	return f
}

func strp(s string) *string { return &s }

func (f *fixture) user(t *testing.T, name string, userType models.UserType) *models.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.store.UpsertUser(ctx, &models.User{OpenID: "oid-" + name, Name: strp(name)})
	if err != nil {
		t.Fatalf("upsert %s: %v", name, err)
	}
	if _, err := f.svc.Profiles.Create(ctx, u.ID, ProfileInput{UserType: userType}); err != nil {
		t.Fatalf("profile %s: %v", name, err)
	}
	return u
}

var (
	nyc      = models.Coord{Lat: 40.7128, Lon: -74.006}
	midtown  = models.Coord{Lat: 40.7549, Lon: -73.984}
	tooFarLt = 91.0
)

func rideInput(method models.PaymentKind) RideInput {
	return RideInput{
		PickupLatitude:   nyc.Lat,
		PickupLongitude:  nyc.Lon,
		DropoffLatitude:  midtown.Lat,
		DropoffLongitude: midtown.Lon,
		VehicleType:      models.VehicleComfort,
		PaymentMethod:    method,
	}
}

func status(s models.RideStatus) *models.RideStatus { return &s }

func TestRideCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("quotes when no fare is given", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		r, err := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if r.TotalFare <= 4 || r.BaseFare != 4 {
			t.Fatalf("expected comfort quote, got %+v", r)
		}
		if r.Distance == nil || *r.Distance < 4 || *r.Distance > 6 {
			t.Fatalf("unexpected distance %v", r.Distance)
		}
		if r.Status != models.StatusRequested || r.RiderID != rider.ID {
			t.Fatalf("unexpected ride %+v", r)
		}
	})

	t.Run("keeps supplied fare", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		in := rideInput(models.PayCash)
		in.BaseFare, in.DistanceFare, in.TimeFare, in.TotalFare = 1, 2, 3, 6
		r, err := f.svc.Rides.Create(ctx, rider.ID, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if r.TotalFare != 6 || r.Distance != nil {
			t.Fatalf("fare was recomputed: %+v", r)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		bad := rideInput(models.PayCash)
		bad.PickupLatitude = tooFarLt
		if _, err := f.svc.Rides.Create(ctx, rider.ID, bad); !errors.Is(err, storage.ErrInvalid) {
			t.Fatalf("expected ErrInvalid for coordinates, got %v", err)
		}
		bad = rideInput("bitcoin")
		if _, err := f.svc.Rides.Create(ctx, rider.ID, bad); !errors.Is(err, storage.ErrInvalid) {
			t.Fatalf("expected ErrInvalid for payment method, got %v", err)
		}
	})
}

func TestRideLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rider := f.user(t, "rider", models.UserTypeRider)
	driver := f.user(t, "dana", models.UserTypeDriver)

	in := rideInput(models.PayCard)
	in.BaseFare, in.DistanceFare, in.TimeFare, in.TotalFare = 4, 10, 5.25, 19.25
	ride, err := f.svc.Rides.Create(ctx, rider.ID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	driverID := driver.ID
	got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted), DriverID: &driverID})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.AcceptedAt == nil || got.DriverID == nil || *got.DriverID != driver.ID {
		t.Fatalf("accept not recorded: %+v", got)
	}
	if len(f.gateway.held) != 1 || f.gateway.held[0] != 19.25 {
		t.Fatalf("expected a hold of 19.25, got %v", f.gateway.held)
	}

	if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusArrived)}); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	arrived, ok := f.notifier.find("arrived")
	if !ok || arrived.name != "dana" || arrived.driverID != driver.ID {
		t.Fatalf("arrival not notified: %+v", f.notifier.calls)
	}

	got, err = f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCompleted)})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.CompletedAt == nil || got.PaymentStatus != models.PaymentCompleted {
		t.Fatalf("completion not recorded: %+v", got)
	}
	if len(f.gateway.captured) != 1 || f.gateway.captured[0] != "pi_test" {
		t.Fatalf("expected capture of held intent, got %v", f.gateway.captured)
	}
	if c, ok := f.notifier.find("completed"); !ok || c.fare != 19.25 {
		t.Fatalf("completion not notified: %+v", f.notifier.calls)
	}

	dp, _ := f.svc.Profiles.Get(ctx, driver.ID)
	rp, _ := f.svc.Profiles.Get(ctx, rider.ID)
	if dp.TotalRides != 1 || dp.TotalEarnings != 19.25 {
		t.Fatalf("driver totals not updated: %+v", dp)
	}
	if rp.TotalRides != 1 || rp.TotalEarnings != 0 {
		t.Fatalf("rider totals not updated: %+v", rp)
	}

	if len(f.events.events) != 3 {
		t.Fatalf("expected 3 lifecycle events, got %d", len(f.events.events))
	}
	last := f.events.events[2]
	if last.Status != models.StatusCompleted || last.Previous != models.StatusArrived {
		t.Fatalf("unexpected last event %+v", last)
	}

	// any status may follow any other
	got, err = f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusRequested)})
	if err != nil || got.Status != models.StatusRequested {
		t.Fatalf("expected free transition, got %v %+v", err, got)
	}
}

func TestRideUpdateSameStatusHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rider := f.user(t, "rider", models.UserTypeRider)
	ride, err := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusRequested)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.events.events) != 0 || len(f.notifier.calls) != 0 {
		t.Fatalf("unexpected side effects: %d events, %d notifications", len(f.events.events), len(f.notifier.calls))
	}
}

func TestRidePayments(t *testing.T) {
	ctx := context.Background()

	t.Run("failed capture marks payment failed", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.captureErr = errors.New("card declined")
		rider := f.user(t, "rider", models.UserTypeRider)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCard))
		got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCompleted)})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if got.PaymentStatus != models.PaymentFailed {
			t.Fatalf("payment status = %s", got.PaymentStatus)
		}
		if len(f.gateway.held) != 1 {
			t.Fatalf("expected a hold before capture, got %v", f.gateway.held)
		}
	})

	t.Run("cancel releases the hold", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCard))
		if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted)}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCancelled), CancellationReason: strp("changed plans")})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.CancelledAt == nil || *got.CancellationReason != "changed plans" {
			t.Fatalf("cancel not recorded: %+v", got)
		}
		if len(f.gateway.cancelled) != 1 {
			t.Fatalf("expected hold release, got %v", f.gateway.cancelled)
		}
	})

	t.Run("rejected update leaves the card untouched", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		driver := f.user(t, "driver", models.UserTypeDriver)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCard))

		ghost := int64(9999)
		if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted), DriverID: &ghost}); !errors.Is(err, storage.ErrInvalid) {
			t.Fatalf("expected ErrInvalid, got %v", err)
		}
		if len(f.gateway.held) != 0 {
			t.Fatalf("card held for a rejected accept: %v", f.gateway.held)
		}
		stored, _ := f.store.GetRide(ctx, ride.ID)
		if stored.Status != models.StatusRequested || stored.PaymentIntentID != nil {
			t.Fatalf("rejected accept changed the ride: %+v", stored)
		}

		driverID := driver.ID
		if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted), DriverID: &driverID}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCompleted), DriverID: &ghost}); !errors.Is(err, storage.ErrInvalid) {
			t.Fatalf("expected ErrInvalid, got %v", err)
		}
		if len(f.gateway.captured) != 0 {
			t.Fatalf("card captured for a rejected completion: %v", f.gateway.captured)
		}

		got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCompleted)})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(f.gateway.held) != 1 || len(f.gateway.captured) != 1 || got.PaymentStatus != models.PaymentCompleted {
			t.Fatalf("held=%v captured=%v payment=%s", f.gateway.held, f.gateway.captured, got.PaymentStatus)
		}
	})

	t.Run("concurrent accepts hold once", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCard))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted)})
			}()
		}
		wg.Wait()
		if len(f.gateway.held) != 1 {
			t.Fatalf("expected one hold, got %v", f.gateway.held)
		}
	})

	t.Run("unrecorded hold is released", func(t *testing.T) {
		f := newFixture(t)
		f.svc = New(Deps{
			Store:    intentRejectingStore{f.store},
			Payments: f.gateway,
			Events:   f.events,
			Notifier: f.notifier,
			Log:      logging.Discard(),
		})
		rider := f.user(t, "rider", models.UserTypeRider)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCard))

		got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusAccepted)})
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if got.Status != models.StatusAccepted {
			t.Fatalf("status = %s", got.Status)
		}
		if len(f.gateway.held) != 1 || len(f.gateway.cancelled) != 1 || f.gateway.cancelled[0] != "pi_test" {
			t.Fatalf("held=%v cancelled=%v", f.gateway.held, f.gateway.cancelled)
		}
	})

	t.Run("cash rides skip the gateway", func(t *testing.T) {
		f := newFixture(t)
		rider := f.user(t, "rider", models.UserTypeRider)
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
		got, err := f.svc.Rides.Update(ctx, ride.ID, RideChange{Status: status(models.StatusCompleted)})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if len(f.gateway.held)+len(f.gateway.captured) != 0 || got.PaymentStatus != models.PaymentPending {
			t.Fatalf("gateway used for cash ride: %+v", f.gateway)
		}
	})
}

func TestRideActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rider := f.user(t, "rider", models.UserTypeRider)
	driver := f.user(t, "driver", models.UserTypeDriver)
	driverID := driver.ID

	done, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
	open, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
	f.svc.Rides.Update(ctx, done.ID, RideChange{Status: status(models.StatusCompleted), DriverID: &driverID})
	f.svc.Rides.Update(ctx, open.ID, RideChange{Status: status(models.StatusInProgress), DriverID: &driverID})

	asRider, err := f.svc.Rides.Active(ctx, rider.ID, models.UserTypeRider)
	if err != nil || len(asRider) != 1 || asRider[0].ID != open.ID {
		t.Fatalf("rider active = %v, %v", asRider, err)
	}
	asDriver, err := f.svc.Rides.Active(ctx, driver.ID, models.UserTypeDriver)
	if err != nil || len(asDriver) != 1 || asDriver[0].StartedAt == nil {
		t.Fatalf("driver active = %v, %v", asDriver, err)
	}
	if _, err := f.svc.Rides.Active(ctx, rider.ID, "pilot"); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestRatings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rider := f.user(t, "rider", models.UserTypeRider)
	driver := f.user(t, "driver", models.UserTypeDriver)

	rate := func(score int) error {
		ride, err := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
		if err != nil {
			return err
		}
		_, err = f.svc.Ratings.Create(ctx, rider.ID, RatingInput{
			RideID: ride.ID, RatedUserID: driver.ID, RatingType: models.RatingDriver, Score: score,
		})
		return err
	}

	t.Run("score out of range", func(t *testing.T) {
		for _, score := range []int{0, 6} {
			if err := rate(score); !errors.Is(err, storage.ErrInvalid) {
				t.Fatalf("score %d: expected ErrInvalid, got %v", score, err)
			}
		}
	})

	t.Run("average is recomputed", func(t *testing.T) {
		for _, score := range []int{5, 4, 4} {
			if err := rate(score); err != nil {
				t.Fatalf("rate %d: %v", score, err)
			}
		}
		p, _ := f.svc.Profiles.Get(ctx, driver.ID)
		if p.Rating != 4.33 {
			t.Fatalf("rating = %v, want 4.33", p.Rating)
		}
		all, _ := f.svc.Ratings.UserRatings(ctx, driver.ID)
		if len(all) != 3 {
			t.Fatalf("expected 3 ratings, got %d", len(all))
		}
	})

	t.Run("one rating per ride", func(t *testing.T) {
		ride, _ := f.svc.Rides.Create(ctx, rider.ID, rideInput(models.PayCash))
		in := RatingInput{RideID: ride.ID, RatedUserID: driver.ID, RatingType: models.RatingDriver, Score: 5}
		if _, err := f.svc.Ratings.Create(ctx, rider.ID, in); err != nil {
			t.Fatalf("first rating: %v", err)
		}
		if _, err := f.svc.Ratings.Create(ctx, rider.ID, in); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		got, err := f.svc.Ratings.Get(ctx, ride.ID)
		if err != nil || got.Score != 5 {
			t.Fatalf("get rating = %+v, %v", got, err)
		}
	})

	t.Run("missing ride", func(t *testing.T) {
		_, err := f.svc.Ratings.Create(ctx, rider.ID, RatingInput{RideID: 999, RatedUserID: driver.ID, RatingType: models.RatingDriver, Score: 3})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProfileUpdateKeepsRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "rider", models.UserTypeRider)
	rating := 1.0
	got, err := f.svc.Profiles.Update(ctx, u.ID, models.ProfileUpdate{Bio: strp("hi"), Rating: &rating})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Rating != 5 || got.Bio == nil || *got.Bio != "hi" {
		t.Fatalf("unexpected profile %+v", got)
	}
	if _, err := f.svc.Profiles.Create(ctx, u.ID, ProfileInput{UserType: "pilot"}); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPaymentMethods(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "rider", models.UserTypeRider)
	other := f.user(t, "other", models.UserTypeRider)

	first, err := f.svc.PaymentMethods.Create(ctx, u.ID, PaymentMethodInput{PaymentType: models.PaymentTypeCard, CardLast4: strp("4242"), IsDefault: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsActive {
		t.Fatal("new methods should be active")
	}
	second, err := f.svc.PaymentMethods.Create(ctx, u.ID, PaymentMethodInput{PaymentType: models.PaymentTypeWallet, IsDefault: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	def, err := f.svc.PaymentMethods.Default(ctx, u.ID)
	if err != nil || def.ID != second.ID {
		t.Fatalf("default = %+v, %v", def, err)
	}
	list, _ := f.svc.PaymentMethods.List(ctx, u.ID)
	defaults := 0
	for _, m := range list {
		if m.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected one default, got %d", defaults)
	}

	yes := true
	got, err := f.svc.PaymentMethods.Update(ctx, u.ID, first.ID, models.PaymentMethodUpdate{IsDefault: &yes})
	if err != nil || !got.IsDefault {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if def, _ := f.svc.PaymentMethods.Default(ctx, u.ID); def.ID != first.ID {
		t.Fatalf("default did not move: %+v", def)
	}

	if _, err := f.svc.PaymentMethods.Update(ctx, other.ID, first.ID, models.PaymentMethodUpdate{IsDefault: &yes}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's method, got %v", err)
	}
	if _, err := f.svc.PaymentMethods.Create(ctx, u.ID, PaymentMethodInput{PaymentType: "cheque"}); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestRideRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rider := f.user(t, "rider", models.UserTypeRider)
	base := time.Now().UTC()
	f.svc.RideRequests.now = func() time.Time { return base }

	rr, err := f.svc.RideRequests.Create(ctx, rider.ID, RideRequestInput{
		PickupLatitude: nyc.Lat, PickupLongitude: nyc.Lon,
		DropoffLatitude: midtown.Lat, DropoffLongitude: midtown.Lon,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rr.EstimatedFare <= 2.5 || rr.VehicleType != models.VehicleEconomy {
		t.Fatalf("expected an economy quote, got %+v", rr)
	}
	if !rr.ExpiresAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expiresAt = %v", rr.ExpiresAt)
	}

	pending, err := f.svc.RideRequests.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}

	got, err := f.svc.RideRequests.Update(ctx, rr.ID, models.RequestAccepted)
	if err != nil || got.Status != models.RequestAccepted {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if _, err := f.svc.RideRequests.Update(ctx, rr.ID, "gone"); !errors.Is(err, storage.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	f.svc.RideRequests.now = func() time.Time { return base.Add(3 * time.Minute) }
	n, err := f.svc.RideRequests.Expire(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expire = %d, %v", n, err)
	}
	if _, err := f.svc.RideRequests.Get(ctx, rr.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected expired request to be gone, got %v", err)
	}
}

func TestRideRequestJanitorStops(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RideRequests.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
