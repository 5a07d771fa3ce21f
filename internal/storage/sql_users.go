package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/voyya/internal/models"
)

const (
	userColumns    = `id, open_id, name, email, login_method, role, created_at, updated_at, last_signed_in`
	profileColumns = `id, user_id, user_type, phone_number, profile_image_url, rating, total_rides, total_earnings, bio, created_at, updated_at`
	driverColumns  = `id, user_id, vehicle_type, vehicle_make, vehicle_model, vehicle_plate, vehicle_color, vehicle_image_url,
		license_number, license_expiry, is_available, current_latitude, current_longitude, last_location_update,
		documents_verified, background_check_passed, created_at, updated_at`
)

func (s *SQLStore) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u.OpenID == "" {
		return nil, fmt.Errorf("%w: openId is required", ErrInvalid)
	}
	ts := now()
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	signedIn := ts
	if !u.LastSignedIn.IsZero() {
		signedIn = u.LastSignedIn.UTC()
	}

	var set []string
	if u.Name != nil {
		set = append(set, "name = excluded.name")
	}
	if u.Email != nil {
		set = append(set, "email = excluded.email")
	}
	if u.LoginMethod != nil {
		set = append(set, "login_method = excluded.login_method")
	}
	if u.Role != "" {
		set = append(set, "role = excluded.role")
	}
	if !u.LastSignedIn.IsZero() || len(set) == 0 {
		set = append(set, "last_signed_in = excluded.last_signed_in")
	}
	set = append(set, "updated_at = excluded.updated_at")

	query := `INSERT INTO users (open_id, name, email, login_method, role, created_at, updated_at, last_signed_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (open_id) DO UPDATE SET ` + strings.Join(set, ", ")
	if _, err := s.db.ExecContext(ctx, s.q(query),
		u.OpenID, u.Name, u.Email, u.LoginMethod, role, ts, ts, signedIn); err != nil {
		return nil, fmt.Errorf("upsert user: %w", s.classify(err))
	}
	return s.GetUserByOpenID(ctx, u.OpenID)
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	var u models.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE open_id = ?`, openID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	profileDefaults(p)
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO user_profiles
		(user_id, user_type, phone_number, profile_image_url, rating, total_rides, total_earnings, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.UserType, p.PhoneNumber, p.ProfileImageURL, p.Rating, p.TotalRides, p.TotalEarnings, p.Bio, ts, ts)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, ts, ts
	return nil
}

func (s *SQLStore) GetUserProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.get(ctx, &p, `SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLStore) UpdateUserProfile(ctx context.Context, userID int64, upd models.ProfileUpdate) error {
	var l setList
	if upd.UserType != nil {
		l.add("user_type", *upd.UserType)
	}
	if upd.PhoneNumber != nil {
		l.add("phone_number", *upd.PhoneNumber)
	}
	if upd.Bio != nil {
		l.add("bio", *upd.Bio)
	}
	if upd.Rating != nil {
		l.add("rating", *upd.Rating)
	}
	l.add("updated_at", now())
	return s.update(ctx, "user_profiles", l, "user_id = ?", userID)
}

func (s *SQLStore) AddProfileStats(ctx context.Context, userID int64, rides int, earnings float64) error {
	return s.exec(ctx, `UPDATE user_profiles
		SET total_rides = total_rides + ?, total_earnings = ROUND(total_earnings + ?, 2), updated_at = ?
		WHERE user_id = ?`, rides, earnings, now(), userID)
}

func (s *SQLStore) CreateDriver(ctx context.Context, d *models.Driver) error {
	driverDefaults(d)
	ts := now()
	id, err := s.insert(ctx, `INSERT INTO drivers
		(user_id, vehicle_type, vehicle_make, vehicle_model, vehicle_plate, vehicle_color, vehicle_image_url,
		 license_number, license_expiry, is_available, current_latitude, current_longitude, last_location_update,
		 documents_verified, background_check_passed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.VehicleType, d.VehicleMake, d.VehicleModel, d.VehiclePlate, d.VehicleColor, d.VehicleImageURL,
		d.LicenseNumber, d.LicenseExpiry, d.IsAvailable, d.CurrentLatitude, d.CurrentLongitude, d.LastLocationUpdate,
		d.DocumentsVerified, d.BackgroundCheckPassed, ts, ts)
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	d.ID, d.CreatedAt, d.UpdatedAt = id, ts, ts
	return nil
}

func (s *SQLStore) GetDriver(ctx context.Context, userID int64) (*models.Driver, error) {
	var d models.Driver
	if err := s.get(ctx, &d, `SELECT `+driverColumns+` FROM drivers WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLStore) UpdateDriver(ctx context.Context, userID int64, upd models.DriverUpdate) error {
	var l setList
	if upd.VehicleType != nil {
		l.add("vehicle_type", *upd.VehicleType)
	}
	if upd.VehicleMake != nil {
		l.add("vehicle_make", *upd.VehicleMake)
	}
	if upd.VehicleModel != nil {
		l.add("vehicle_model", *upd.VehicleModel)
	}
	if upd.VehiclePlate != nil {
		l.add("vehicle_plate", *upd.VehiclePlate)
	}
	if upd.VehicleColor != nil {
		l.add("vehicle_color", *upd.VehicleColor)
	}
	if upd.LicenseNumber != nil {
		l.add("license_number", *upd.LicenseNumber)
	}
	if upd.IsAvailable != nil {
		l.add("is_available", *upd.IsAvailable)
	}
	l.add("updated_at", now())
	return s.update(ctx, "drivers", l, "user_id = ?", userID)
}

func (s *SQLStore) ListAvailableDrivers(ctx context.Context, limit int) ([]models.Driver, error) {
	out := make([]models.Driver, 0)
	err := s.selectAll(ctx, &out, `SELECT `+driverColumns+` FROM drivers
		WHERE is_available = ? ORDER BY id LIMIT ?`, true, availableLimit(limit))
	return out, err
}

func (s *SQLStore) UpdateDriverLocation(ctx context.Context, userID int64, lat, lon float64, at time.Time) error {
	return s.exec(ctx, `UPDATE drivers
		SET current_latitude = ?, current_longitude = ?, last_location_update = ?, updated_at = ?
		WHERE user_id = ?`, lat, lon, at.UTC(), now(), userID)
}
