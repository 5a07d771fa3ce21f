package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type UserType string

const (
	UserTypeRider  UserType = "rider"
	UserTypeDriver UserType = "driver"
	UserTypeBoth   UserType = "both"
)

func (u UserType) Valid() bool {
	switch u {
	case UserTypeRider, UserTypeDriver, UserTypeBoth:
		return true
	}
	return false
}

type VehicleType string

const (
	VehicleEconomy VehicleType = "economy"
	VehicleComfort VehicleType = "comfort"
	VehiclePremium VehicleType = "premium"
)

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleEconomy, VehicleComfort, VehiclePremium:
		return true
	}
	return false
}

// RideStatus is the ride lifecycle. Any status may follow any other; clients drive it.
type RideStatus string

const (
	StatusRequested      RideStatus = "requested"
	StatusAccepted       RideStatus = "accepted"
	StatusDriverArriving RideStatus = "driver_arriving"
	StatusArrived        RideStatus = "arrived"
	StatusInProgress     RideStatus = "in_progress"
	StatusCompleted      RideStatus = "completed"
	StatusCancelled      RideStatus = "cancelled"
)

// ActiveStatuses are the statuses of a ride that has not finished yet.
var ActiveStatuses = []RideStatus{StatusRequested, StatusAccepted, StatusDriverArriving, StatusArrived, StatusInProgress}

func (s RideStatus) Valid() bool {
	return s.Active() || s == StatusCompleted || s == StatusCancelled
}

func (s RideStatus) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// PaymentKind is how a single ride is paid.
type PaymentKind string

const (
	PayCash   PaymentKind = "cash"
	PayCard   PaymentKind = "card"
	PayWallet PaymentKind = "wallet"
)

func (p PaymentKind) Valid() bool { return p == PayCash || p == PayCard || p == PayWallet }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentCompleted || p == PaymentFailed
}

type RatingType string

const (
	RatingDriver RatingType = "driver_rating"
	RatingRider  RatingType = "rider_rating"
)

func (r RatingType) Valid() bool { return r == RatingDriver || r == RatingRider }

// PaymentType is the kind of a stored payment method.
type PaymentType string

const (
	PaymentTypeCard         PaymentType = "card"
	PaymentTypeWallet       PaymentType = "wallet"
	PaymentTypeBankTransfer PaymentType = "bank_transfer"
)

func (p PaymentType) Valid() bool {
	return p == PaymentTypeCard || p == PaymentTypeWallet || p == PaymentTypeBankTransfer
}

type RideRequestStatus string

const (
	RequestPending  RideRequestStatus = "pending"
	RequestAccepted RideRequestStatus = "accepted"
	RequestExpired  RideRequestStatus = "expired"
)

func (r RideRequestStatus) Valid() bool {
	return r == RequestPending || r == RequestAccepted || r == RequestExpired
}

// DriverLocation is a single position report streamed by a driver app.
type DriverLocation struct {
	DriverID  int64     `json:"driverId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
