package models

import "time"

// Update structs carry optional fields; a nil field leaves the stored value unchanged.

type ProfileUpdate struct {
	UserType    *UserType
	PhoneNumber *string
	Bio         *string
	Rating      *float64
}

type DriverUpdate struct {
	VehicleType   *VehicleType
	VehicleMake   *string
	VehicleModel  *string
	VehiclePlate  *string
	VehicleColor  *string
	LicenseNumber *string
	IsAvailable   *bool
}

type RideUpdate struct {
	Status             *RideStatus
	DriverID           *int64
	ActualDuration     *int
	PaymentStatus      *PaymentStatus
	CancellationReason *string
	PaymentIntentID    *string
	AcceptedAt         *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
}

type PaymentMethodUpdate struct {
	IsDefault *bool
	IsActive  *bool
}

type RideRequestUpdate struct {
	Status *RideRequestStatus
}
