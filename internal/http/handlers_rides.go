package httpapi

import (
	"net/http"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/service"
)

type createRideRequest struct {
	PickupLatitude    *float64 `json:"pickupLatitude" validate:"required,min=-90,max=90"`
	PickupLongitude   *float64 `json:"pickupLongitude" validate:"required,min=-180,max=180"`
	PickupAddress     *string  `json:"pickupAddress"`
	DropoffLatitude   *float64 `json:"dropoffLatitude" validate:"required,min=-90,max=90"`
	DropoffLongitude  *float64 `json:"dropoffLongitude" validate:"required,min=-180,max=180"`
	DropoffAddress    *string  `json:"dropoffAddress"`
	Distance          *float64 `json:"distance" validate:"omitempty,min=0"`
	EstimatedDuration *int     `json:"estimatedDuration" validate:"omitempty,min=0"`
	BaseFare          float64  `json:"baseFare" validate:"min=0"`
	DistanceFare      float64  `json:"distanceFare" validate:"min=0"`
	TimeFare          float64  `json:"timeFare" validate:"min=0"`
	TotalFare         float64  `json:"totalFare" validate:"min=0"`
	VehicleType       string   `json:"vehicleType" validate:"omitempty,oneof=economy comfort premium"`
	PaymentMethod     string   `json:"paymentMethod" validate:"omitempty,oneof=cash card wallet"`
}

type updateRideRequest struct {
	Status             *string `json:"status" validate:"omitempty,oneof=requested accepted driver_arriving arrived in_progress completed cancelled"`
	DriverID           *int64  `json:"driverId" validate:"omitempty,min=1"`
	ActualDuration     *int    `json:"actualDuration" validate:"omitempty,min=0"`
	PaymentStatus      *string `json:"paymentStatus" validate:"omitempty,oneof=pending completed failed"`
	CancellationReason *string `json:"cancellationReason"`
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var req createRideRequest
	if !s.decode(w, r, &req) {
		return
	}
	ride, err := s.svc.Rides.Create(r.Context(), currentUser(r).ID, service.RideInput{
		PickupLatitude:    *req.PickupLatitude,
		PickupLongitude:   *req.PickupLongitude,
		PickupAddress:     req.PickupAddress,
		DropoffLatitude:   *req.DropoffLatitude,
		DropoffLongitude:  *req.DropoffLongitude,
		DropoffAddress:    req.DropoffAddress,
		Distance:          req.Distance,
		EstimatedDuration: req.EstimatedDuration,
		BaseFare:          req.BaseFare,
		DistanceFare:      req.DistanceFare,
		TimeFare:          req.TimeFare,
		TotalFare:         req.TotalFare,
		VehicleType:       models.VehicleType(req.VehicleType),
		PaymentMethod:     models.PaymentKind(req.PaymentMethod),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ride id")
		return
	}
	ride, err := s.svc.Rides.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleUpdateRide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ride id")
		return
	}
	var req updateRideRequest
	if !s.decode(w, r, &req) {
		return
	}
	ch := service.RideChange{
		DriverID:           req.DriverID,
		ActualDuration:     req.ActualDuration,
		CancellationReason: req.CancellationReason,
	}
	if req.Status != nil {
		st := models.RideStatus(*req.Status)
		ch.Status = &st
	}
	if req.PaymentStatus != nil {
		ps := models.PaymentStatus(*req.PaymentStatus)
		ch.PaymentStatus = &ps
	}
	ride, err := s.svc.Rides.Update(r.Context(), id, ch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRiderHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rides, err := s.svc.Rides.RiderHistory(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleDriverHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rides, err := s.svc.Rides.DriverHistory(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleActiveRides(w http.ResponseWriter, r *http.Request) {
	userType := models.UserType(r.URL.Query().Get("userType"))
	rides, err := s.svc.Rides.Active(r.Context(), currentUser(r).ID, userType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

type createRatingRequest struct {
	RideID      int64   `json:"rideId" validate:"required,min=1"`
	RatedUserID int64   `json:"ratedUserId" validate:"required,min=1"`
	RatingType  string  `json:"ratingType" validate:"required,oneof=driver_rating rider_rating"`
	Score       int     `json:"score" validate:"required,min=1,max=5"`
	Comment     *string `json:"comment" validate:"omitempty,max=1000"`
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var req createRatingRequest
	if !s.decode(w, r, &req) {
		return
	}
	rating, err := s.svc.Ratings.Create(r.Context(), currentUser(r).ID, service.RatingInput{
		RideID:      req.RideID,
		RatedUserID: req.RatedUserID,
		RatingType:  models.RatingType(req.RatingType),
		Score:       req.Score,
		Comment:     req.Comment,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ride id")
		return
	}
	rating, err := s.svc.Ratings.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (s *Server) handleUserRatings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	ratings, err := s.svc.Ratings.UserRatings(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}

type createRideRequestRequest struct {
	PickupLatitude   *float64 `json:"pickupLatitude" validate:"required,min=-90,max=90"`
	PickupLongitude  *float64 `json:"pickupLongitude" validate:"required,min=-180,max=180"`
	DropoffLatitude  *float64 `json:"dropoffLatitude" validate:"required,min=-90,max=90"`
	DropoffLongitude *float64 `json:"dropoffLongitude" validate:"required,min=-180,max=180"`
	VehicleType      string   `json:"vehicleType" validate:"omitempty,oneof=economy comfort premium"`
	EstimatedFare    float64  `json:"estimatedFare" validate:"min=0"`
}

type updateRideRequestRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted expired"`
}

func (s *Server) handleCreateRideRequest(w http.ResponseWriter, r *http.Request) {
	var req createRideRequestRequest
	if !s.decode(w, r, &req) {
		return
	}
	rr, err := s.svc.RideRequests.Create(r.Context(), currentUser(r).ID, service.RideRequestInput{
		PickupLatitude:   *req.PickupLatitude,
		PickupLongitude:  *req.PickupLongitude,
		DropoffLatitude:  *req.DropoffLatitude,
		DropoffLongitude: *req.DropoffLongitude,
		VehicleType:      models.VehicleType(req.VehicleType),
		EstimatedFare:    req.EstimatedFare,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (s *Server) handlePendingRideRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.svc.RideRequests.Pending(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleGetRideRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ride request id")
		return
	}
	rr, err := s.svc.RideRequests.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (s *Server) handleUpdateRideRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ride request id")
		return
	}
	var req updateRideRequestRequest
	if !s.decode(w, r, &req) {
		return
	}
	rr, err := s.svc.RideRequests.Update(r.Context(), id, models.RideRequestStatus(req.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}
