package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Client to server events.
const (
	EventDriverJoin     = "driver:join"
	EventDriverLeave    = "driver:leave"
	EventRideJoin       = "ride:join"
	EventRideLeave      = "ride:leave"
	EventDriverLocation = "driver:location"
	EventRideStatus     = "ride:status"
	EventRideRequest    = "ride:request"
	EventRideAccepted   = "ride:accepted"
)

// Server to client events.
const (
	EventLocationUpdate = "driver:location:update"
	EventStatusUpdate   = "ride:status:update"
	EventRequestNew     = "ride:request:new"
	EventAcceptedUpdate = "ride:accepted:update"
	EventDriverArrived  = "driver:arrived"
	EventRideCompleted  = "ride:completed"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func DriverRoom(driverID int64) string { return "driver:" + strconv.FormatInt(driverID, 10) }
func RideRoom(rideID int64) string     { return "ride:" + strconv.FormatInt(rideID, 10) }

type locationIn struct {
	DriverID  int64   `json:"driverId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type statusIn struct {
	RideID   int64  `json:"rideId"`
	Status   string `json:"status"`
	DriverID *int64 `json:"driverId,omitempty"`
}

type requestIn struct {
	DriverID       int64  `json:"driverId"`
	RideID         int64  `json:"rideId"`
	PickupLocation string `json:"pickupLocation"`
}

type acceptedIn struct {
	RideID     int64  `json:"rideId"`
	DriverID   int64  `json:"driverId"`
	DriverName string `json:"driverName"`
}

type LocationUpdate struct {
	DriverID  int64     `json:"driverId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

type StatusUpdate struct {
	RideID    int64     `json:"rideId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type RequestNew struct {
	RideID         int64     `json:"rideId"`
	PickupLocation string    `json:"pickupLocation"`
	Timestamp      time.Time `json:"timestamp"`
}

type AcceptedUpdate struct {
	DriverID   int64     `json:"driverId"`
	DriverName string    `json:"driverName"`
	Timestamp  time.Time `json:"timestamp"`
}

type DriverArrived struct {
	DriverID   int64     `json:"driverId"`
	DriverName string    `json:"driverName"`
	Timestamp  time.Time `json:"timestamp"`
}

type RideCompleted struct {
	RideID    int64     `json:"rideId"`
	Fare      float64   `json:"fare"`
	Timestamp time.Time `json:"timestamp"`
}

// parseID accepts a JSON number or a numeric string.
func parseID(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("id must be a number: %s", raw)
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
