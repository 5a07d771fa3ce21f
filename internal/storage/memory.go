package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/example/voyya/internal/models"
)

// MemoryStore keeps every table in process memory. Values are copied in and out so callers
// never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	seq      int64
	users    map[int64]models.User
	profiles map[int64]models.UserProfile // by user id
	drivers  map[int64]models.Driver      // by user id
	rides    map[int64]models.Ride
	ratings  map[int64]models.Rating // by ride id
	methods  map[int64]models.PaymentMethod
	requests map[int64]models.RideRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]models.User),
		profiles: make(map[int64]models.UserProfile),
		drivers:  make(map[int64]models.Driver),
		rides:    make(map[int64]models.Ride),
		ratings:  make(map[int64]models.Rating),
		methods:  make(map[int64]models.PaymentMethod),
		requests: make(map[int64]models.RideRequest),
	}
}

func (m *MemoryStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) requireUser(id int64) error {
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("%w: user %d does not exist", ErrInvalid, id)
	}
	return nil
}

func (m *MemoryStore) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u.OpenID == "" {
		return nil, fmt.Errorf("%w: openId is required", ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := now()
	for id, cur := range m.users {
		if cur.OpenID != u.OpenID {
			continue
		}
		changed := false
		if u.Name != nil {
			cur.Name, changed = cloneStr(u.Name), true
		}
		if u.Email != nil {
			cur.Email, changed = cloneStr(u.Email), true
		}
		if u.LoginMethod != nil {
			cur.LoginMethod, changed = cloneStr(u.LoginMethod), true
		}
		if u.Role != "" {
			cur.Role, changed = u.Role, true
		}
		if !u.LastSignedIn.IsZero() {
			cur.LastSignedIn = u.LastSignedIn.UTC()
		} else if !changed {
			cur.LastSignedIn = ts
		}
		cur.UpdatedAt = ts
		m.users[id] = cur
		out := cur
		return &out, nil
	}
	nu := models.User{
		ID:           m.nextID(),
		OpenID:       u.OpenID,
		Name:         cloneStr(u.Name),
		Email:        cloneStr(u.Email),
		LoginMethod:  cloneStr(u.LoginMethod),
		Role:         u.Role,
		CreatedAt:    ts,
		UpdatedAt:    ts,
		LastSignedIn: ts,
	}
	if nu.Role == "" {
		nu.Role = models.RoleUser
	}
	if !u.LastSignedIn.IsZero() {
		nu.LastSignedIn = u.LastSignedIn.UTC()
	}
	m.users[nu.ID] = nu
	out := nu
	return &out, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.OpenID == openID {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(p.UserID); err != nil {
		return err
	}
	if _, ok := m.profiles[p.UserID]; ok {
		return fmt.Errorf("%w: profile for user %d", ErrConflict, p.UserID)
	}
	profileDefaults(p)
	ts := now()
	p.ID, p.CreatedAt, p.UpdatedAt = m.nextID(), ts, ts
	m.profiles[p.UserID] = *p
	return nil
}

func (m *MemoryStore) GetUserProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) UpdateUserProfile(ctx context.Context, userID int64, upd models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	if upd.UserType != nil {
		p.UserType = *upd.UserType
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = cloneStr(upd.PhoneNumber)
	}
	if upd.Bio != nil {
		p.Bio = cloneStr(upd.Bio)
	}
	if upd.Rating != nil {
		p.Rating = *upd.Rating
	}
	p.UpdatedAt = now()
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) AddProfileStats(ctx context.Context, userID int64, rides int, earnings float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.TotalRides += rides
	p.TotalEarnings = round2(p.TotalEarnings + earnings)
	p.UpdatedAt = now()
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) driverClash(d models.Driver) error {
	for _, other := range m.drivers {
		if other.UserID == d.UserID {
			continue
		}
		if sameStr(other.VehiclePlate, d.VehiclePlate) {
			return fmt.Errorf("%w: vehicle plate %q", ErrConflict, *d.VehiclePlate)
		}
		if sameStr(other.LicenseNumber, d.LicenseNumber) {
			return fmt.Errorf("%w: license number %q", ErrConflict, *d.LicenseNumber)
		}
	}
	return nil
}

func (m *MemoryStore) CreateDriver(ctx context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(d.UserID); err != nil {
		return err
	}
	if _, ok := m.drivers[d.UserID]; ok {
		return fmt.Errorf("%w: driver for user %d", ErrConflict, d.UserID)
	}
	if err := m.driverClash(*d); err != nil {
		return err
	}
	driverDefaults(d)
	ts := now()
	d.ID, d.CreatedAt, d.UpdatedAt = m.nextID(), ts, ts
	m.drivers[d.UserID] = *d
	return nil
}

func (m *MemoryStore) GetDriver(ctx context.Context, userID int64) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) UpdateDriver(ctx context.Context, userID int64, upd models.DriverUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[userID]
	if !ok {
		return ErrNotFound
	}
	if upd.VehicleType != nil {
		d.VehicleType = *upd.VehicleType
	}
	if upd.VehicleMake != nil {
		d.VehicleMake = cloneStr(upd.VehicleMake)
	}
	if upd.VehicleModel != nil {
		d.VehicleModel = cloneStr(upd.VehicleModel)
	}
	if upd.VehiclePlate != nil {
		d.VehiclePlate = cloneStr(upd.VehiclePlate)
	}
	if upd.VehicleColor != nil {
		d.VehicleColor = cloneStr(upd.VehicleColor)
	}
	if upd.LicenseNumber != nil {
		d.LicenseNumber = cloneStr(upd.LicenseNumber)
	}
	if upd.IsAvailable != nil {
		d.IsAvailable = *upd.IsAvailable
	}
	if err := m.driverClash(d); err != nil {
		return err
	}
	d.UpdatedAt = now()
	m.drivers[userID] = d
	return nil
}

func (m *MemoryStore) ListAvailableDrivers(ctx context.Context, limit int) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0)
	for _, d := range m.drivers {
		if d.IsAvailable {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if n := availableLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryStore) UpdateDriverLocation(ctx context.Context, userID int64, lat, lon float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[userID]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	d.CurrentLatitude, d.CurrentLongitude, d.LastLocationUpdate = &lat, &lon, &at
	d.UpdatedAt = now()
	m.drivers[userID] = d
	return nil
}

func (m *MemoryStore) CreateRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(r.RiderID); err != nil {
		return err
	}
	if r.DriverID != nil {
		if err := m.requireUser(*r.DriverID); err != nil {
			return err
		}
	}
	ts := now()
	rideDefaults(r, ts)
	r.ID, r.CreatedAt, r.UpdatedAt = m.nextID(), ts, ts
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) GetRide(ctx context.Context, id int64) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) UpdateRide(ctx context.Context, id int64, upd models.RideUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	if upd.DriverID != nil {
		if err := m.requireUser(*upd.DriverID); err != nil {
			return err
		}
		driverID := *upd.DriverID
		r.DriverID = &driverID
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}
	if upd.ActualDuration != nil {
		v := *upd.ActualDuration
		r.ActualDuration = &v
	}
	if upd.PaymentStatus != nil {
		r.PaymentStatus = *upd.PaymentStatus
	}
	if upd.CancellationReason != nil {
		r.CancellationReason = cloneStr(upd.CancellationReason)
	}
	if upd.PaymentIntentID != nil {
		r.PaymentIntentID = cloneStr(upd.PaymentIntentID)
	}
	setTime(&r.AcceptedAt, upd.AcceptedAt)
	setTime(&r.StartedAt, upd.StartedAt)
	setTime(&r.CompletedAt, upd.CompletedAt)
	setTime(&r.CancelledAt, upd.CancelledAt)
	r.UpdatedAt = now()
	m.rides[r.ID] = r
	return nil
}

func (m *MemoryStore) rideHistory(keep func(models.Ride) bool, limit int) []models.Ride {
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if keep(r) {
			out = append(out, r)
		}
	}
	sortNewest(out, func(r models.Ride) (time.Time, int64) { return r.CreatedAt, r.ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) RiderRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rideHistory(func(r models.Ride) bool { return r.RiderID == userID }, historyLimit(limit)), nil
}

func (m *MemoryStore) DriverRideHistory(ctx context.Context, userID int64, limit int) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rideHistory(func(r models.Ride) bool {
		return r.DriverID != nil && *r.DriverID == userID
	}, historyLimit(limit)), nil
}

func (m *MemoryStore) ActiveRides(ctx context.Context, userID int64, asDriver bool) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rideHistory(func(r models.Ride) bool {
		if !r.Status.Active() {
			return false
		}
		if asDriver {
			return r.DriverID != nil && *r.DriverID == userID
		}
		return r.RiderID == userID
	}, 0), nil
}

func (m *MemoryStore) CreateRating(ctx context.Context, r *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.RideID]; !ok {
		return fmt.Errorf("%w: ride %d does not exist", ErrInvalid, r.RideID)
	}
	if err := m.requireUser(r.RatedByID); err != nil {
		return err
	}
	if err := m.requireUser(r.RatedUserID); err != nil {
		return err
	}
	if _, ok := m.ratings[r.RideID]; ok {
		return fmt.Errorf("%w: rating for ride %d", ErrConflict, r.RideID)
	}
	ts := now()
	r.ID, r.CreatedAt, r.UpdatedAt = m.nextID(), ts, ts
	m.ratings[r.RideID] = *r
	return nil
}

func (m *MemoryStore) GetRating(ctx context.Context, rideID int64) (*models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.ratings[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) UserRatings(ctx context.Context, userID int64) ([]models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Rating, 0)
	for _, r := range m.ratings {
		if r.RatedUserID == userID {
			out = append(out, r)
		}
	}
	sortNewest(out, func(r models.Rating) (time.Time, int64) { return r.CreatedAt, r.ID })
	return out, nil
}

func (m *MemoryStore) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(pm.UserID); err != nil {
		return err
	}
	ts := now()
	pm.ID, pm.CreatedAt, pm.UpdatedAt = m.nextID(), ts, ts
	m.methods[pm.ID] = *pm
	return nil
}

func (m *MemoryStore) GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.methods[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &pm, nil
}

func (m *MemoryStore) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PaymentMethod, 0)
	for _, pm := range m.methods {
		if pm.UserID == userID {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DefaultPaymentMethod(ctx context.Context, userID int64) (*models.PaymentMethod, error) {
	methods, _ := m.ListPaymentMethods(ctx, userID)
	for _, pm := range methods {
		if pm.IsDefault {
			return &pm, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdatePaymentMethod(ctx context.Context, id int64, upd models.PaymentMethodUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.methods[id]
	if !ok {
		return ErrNotFound
	}
	if upd.IsDefault != nil {
		pm.IsDefault = *upd.IsDefault
	}
	if upd.IsActive != nil {
		pm.IsActive = *upd.IsActive
	}
	pm.UpdatedAt = now()
	m.methods[id] = pm
	return nil
}

func (m *MemoryStore) CreateRideRequest(ctx context.Context, rr *models.RideRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireUser(rr.RiderID); err != nil {
		return err
	}
	requestDefaults(rr)
	rr.ID, rr.CreatedAt = m.nextID(), now()
	rr.ExpiresAt = rr.ExpiresAt.UTC()
	m.requests[rr.ID] = *rr
	return nil
}

func (m *MemoryStore) GetRideRequest(ctx context.Context, id int64) (*models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rr, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rr, nil
}

func (m *MemoryStore) UpdateRideRequest(ctx context.Context, id int64, upd models.RideRequestUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.requests[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Status != nil {
		rr.Status = *upd.Status
	}
	m.requests[id] = rr
	return nil
}

func (m *MemoryStore) PendingRideRequests(ctx context.Context, at time.Time) ([]models.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RideRequest, 0)
	for _, rr := range m.requests {
		if rr.Status == models.RequestPending && !rr.ExpiresAt.Before(at) {
			out = append(out, rr)
		}
	}
	sortNewest(out, func(rr models.RideRequest) (time.Time, int64) { return rr.CreatedAt, rr.ID })
	return out, nil
}

func (m *MemoryStore) DeleteExpiredRideRequests(ctx context.Context, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rr := range m.requests {
		if !rr.ExpiresAt.After(at) {
			delete(m.requests, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }

func sortNewest[T any](items []T, key func(T) (time.Time, int64)) {
	sort.Slice(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ii > ij
	})
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func sameStr(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func setTime(dst **time.Time, src *time.Time) {
	if src == nil {
		return
	}
	t := src.UTC()
	*dst = &t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
