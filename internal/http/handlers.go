package httpapi

import (
	"net/http"

	"github.com/example/voyya/internal/auth"
	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/service"
	"github.com/example/voyya/internal/storage"
)

func currentUser(r *http.Request) *models.User { return auth.UserFrom(r.Context()) }

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type sessionRequest struct {
	OpenID      string  `json:"openId" validate:"required,max=64"`
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Email       *string `json:"email" validate:"omitempty,email"`
	LoginMethod *string `json:"loginMethod" validate:"omitempty,max=64"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// handleDevSession signs a user in from a claimed identity. It stands in for the OAuth
// callback in local setups and is only routed when dev login is enabled.
func (s *Server) handleDevSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, token, err := s.opts.Sessions.SignIn(r.Context(), auth.Identity{
		OpenID:      req.OpenID,
		Name:        req.Name,
		Email:       req.Email,
		LoginMethod: req.LoginMethod,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

type createProfileRequest struct {
	UserType    string  `json:"userType" validate:"required,oneof=rider driver both"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=20"`
	Bio         *string `json:"bio"`
}

type updateProfileRequest struct {
	UserType    *string `json:"userType" validate:"omitempty,oneof=rider driver both"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=20"`
	Bio         *string `json:"bio"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profiles.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.svc.Profiles.Create(r.Context(), currentUser(r).ID, service.ProfileInput{
		UserType:    models.UserType(req.UserType),
		PhoneNumber: req.PhoneNumber,
		Bio:         req.Bio,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	upd := models.ProfileUpdate{PhoneNumber: req.PhoneNumber, Bio: req.Bio}
	if req.UserType != nil {
		ut := models.UserType(*req.UserType)
		upd.UserType = &ut
	}
	p, err := s.svc.Profiles.Update(r.Context(), currentUser(r).ID, upd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type driverRequest struct {
	VehicleType   *string `json:"vehicleType" validate:"omitempty,oneof=economy comfort premium"`
	VehicleMake   *string `json:"vehicleMake" validate:"omitempty,max=50"`
	VehicleModel  *string `json:"vehicleModel" validate:"omitempty,max=50"`
	VehiclePlate  *string `json:"vehiclePlate" validate:"omitempty,max=20"`
	VehicleColor  *string `json:"vehicleColor" validate:"omitempty,max=30"`
	LicenseNumber *string `json:"licenseNumber" validate:"omitempty,max=50"`
	IsAvailable   *bool   `json:"isAvailable"`
}

func (req driverRequest) vehicleType() *models.VehicleType {
	if req.VehicleType == nil {
		return nil
	}
	vt := models.VehicleType(*req.VehicleType)
	return &vt
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" validate:"required"`
}

func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Drivers.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := service.DriverInput{
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehiclePlate:  req.VehiclePlate,
		VehicleColor:  req.VehicleColor,
		LicenseNumber: req.LicenseNumber,
	}
	if vt := req.vehicleType(); vt != nil {
		in.VehicleType = *vt
	}
	d, err := s.svc.Drivers.Create(r.Context(), currentUser(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.svc.Drivers.Update(r.Context(), currentUser(r).ID, models.DriverUpdate{
		VehicleType:   req.vehicleType(),
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehiclePlate:  req.VehiclePlate,
		VehicleColor:  req.VehicleColor,
		LicenseNumber: req.LicenseNumber,
		IsAvailable:   req.IsAvailable,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !s.decode(w, r, &req) {
		return
	}
	loc, err := s.svc.Drivers.UpdateLocation(r.Context(), currentUser(r).ID, *req.Latitude, *req.Longitude)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleDriverAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.svc.Drivers.SetAvailability(r.Context(), currentUser(r).ID, *req.IsAvailable)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", storage.DefaultAvailableLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if hasLat != hasLon {
		writeError(w, http.StatusBadRequest, "lat and lon must be given together")
		return
	}
	var near *models.Coord
	if hasLat {
		near = &models.Coord{Lat: lat, Lon: lon}
	}
	drivers, err := s.svc.Drivers.Available(r.Context(), limit, near)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (s *Server) handleFare(w http.ResponseWriter, r *http.Request) {
	distance, okD, err := queryFloat(r, "distance")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	duration, okT, err := queryFloat(r, "duration")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !okD || !okT || distance < 0 || duration < 0 {
		writeError(w, http.StatusBadRequest, "distance and duration must be non-negative numbers")
		return
	}
	vt, ok := vehicleTypeParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "vehicleType must be one of [economy comfort premium]")
		return
	}
	writeJSON(w, http.StatusOK, fare.Calculate(distance, duration, vt))
}

func (s *Server) handleFareEstimate(w http.ResponseWriter, r *http.Request) {
	var coords [4]float64
	for i, key := range []string{"pickupLat", "pickupLng", "dropoffLat", "dropoffLng"} {
		v, ok, err := queryFloat(r, key)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, key+" is required")
			return
		}
		coords[i] = v
	}
	pickup := models.Coord{Lat: coords[0], Lon: coords[1]}
	dropoff := models.Coord{Lat: coords[2], Lon: coords[3]}
	if !validCoord(pickup) || !validCoord(dropoff) {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}
	vt, ok := vehicleTypeParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "vehicleType must be one of [economy comfort premium]")
		return
	}
	q, err := s.opts.Quoter.Quote(r.Context(), pickup, dropoff, vt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func vehicleTypeParam(r *http.Request) (models.VehicleType, bool) {
	vt := models.VehicleType(r.URL.Query().Get("vehicleType"))
	if vt == "" {
		return models.VehicleEconomy, true
	}
	return vt, vt.Valid()
}

func validCoord(c models.Coord) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
