package models

import "time"

type User struct {
	ID           int64     `json:"id" db:"id"`
	OpenID       string    `json:"openId" db:"open_id"`
	Name         *string   `json:"name" db:"name"`
	Email        *string   `json:"email" db:"email"`
	LoginMethod  *string   `json:"loginMethod" db:"login_method"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	LastSignedIn time.Time `json:"lastSignedIn" db:"last_signed_in"`
}

type UserProfile struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"userId" db:"user_id"`
	UserType        UserType  `json:"userType" db:"user_type"`
	PhoneNumber     *string   `json:"phoneNumber" db:"phone_number"`
	ProfileImageURL *string   `json:"profileImageUrl" db:"profile_image_url"`
	Rating          float64   `json:"rating" db:"rating"`
	TotalRides      int       `json:"totalRides" db:"total_rides"`
	TotalEarnings   float64   `json:"totalEarnings" db:"total_earnings"`
	Bio             *string   `json:"bio" db:"bio"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

type Driver struct {
	ID                    int64       `json:"id" db:"id"`
	UserID                int64       `json:"userId" db:"user_id"`
	VehicleType           VehicleType `json:"vehicleType" db:"vehicle_type"`
	VehicleMake           *string     `json:"vehicleMake" db:"vehicle_make"`
	VehicleModel          *string     `json:"vehicleModel" db:"vehicle_model"`
	VehiclePlate          *string     `json:"vehiclePlate" db:"vehicle_plate"`
	VehicleColor          *string     `json:"vehicleColor" db:"vehicle_color"`
	VehicleImageURL       *string     `json:"vehicleImageUrl" db:"vehicle_image_url"`
	LicenseNumber         *string     `json:"licenseNumber" db:"license_number"`
	LicenseExpiry         *time.Time  `json:"licenseExpiry" db:"license_expiry"`
	IsAvailable           bool        `json:"isAvailable" db:"is_available"`
	CurrentLatitude       *float64    `json:"currentLatitude" db:"current_latitude"`
	CurrentLongitude      *float64    `json:"currentLongitude" db:"current_longitude"`
	LastLocationUpdate    *time.Time  `json:"lastLocationUpdate" db:"last_location_update"`
	DocumentsVerified     bool        `json:"documentsVerified" db:"documents_verified"`
	BackgroundCheckPassed bool        `json:"backgroundCheckPassed" db:"background_check_passed"`
	CreatedAt             time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time   `json:"updatedAt" db:"updated_at"`
}

// HasLocation reports whether the driver has reported a position yet.
func (d *Driver) HasLocation() bool {
	return d.CurrentLatitude != nil && d.CurrentLongitude != nil
}

type Ride struct {
	ID                 int64         `json:"id" db:"id"`
	RiderID            int64         `json:"riderId" db:"rider_id"`
	DriverID           *int64        `json:"driverId" db:"driver_id"`
	PickupLatitude     float64       `json:"pickupLatitude" db:"pickup_latitude"`
	PickupLongitude    float64       `json:"pickupLongitude" db:"pickup_longitude"`
	PickupAddress      *string       `json:"pickupAddress" db:"pickup_address"`
	DropoffLatitude    float64       `json:"dropoffLatitude" db:"dropoff_latitude"`
	DropoffLongitude   float64       `json:"dropoffLongitude" db:"dropoff_longitude"`
	DropoffAddress     *string       `json:"dropoffAddress" db:"dropoff_address"`
	Distance           *float64      `json:"distance" db:"distance"`
	EstimatedDuration  *int          `json:"estimatedDuration" db:"estimated_duration"`
	ActualDuration     *int          `json:"actualDuration" db:"actual_duration"`
	BaseFare           float64       `json:"baseFare" db:"base_fare"`
	DistanceFare       float64       `json:"distanceFare" db:"distance_fare"`
	TimeFare           float64       `json:"timeFare" db:"time_fare"`
	TotalFare          float64       `json:"totalFare" db:"total_fare"`
	Status             RideStatus    `json:"status" db:"status"`
	VehicleType        VehicleType   `json:"vehicleType" db:"vehicle_type"`
	PaymentMethod      PaymentKind   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus      PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentIntentID    *string       `json:"-" db:"payment_intent_id"`
	RequestedAt        time.Time     `json:"requestedAt" db:"requested_at"`
	AcceptedAt         *time.Time    `json:"acceptedAt" db:"accepted_at"`
	StartedAt          *time.Time    `json:"startedAt" db:"started_at"`
	CompletedAt        *time.Time    `json:"completedAt" db:"completed_at"`
	CancelledAt        *time.Time    `json:"cancelledAt" db:"cancelled_at"`
	CancellationReason *string       `json:"cancellationReason" db:"cancellation_reason"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time     `json:"updatedAt" db:"updated_at"`
}

func (r *Ride) Pickup() Coord  { return Coord{Lat: r.PickupLatitude, Lon: r.PickupLongitude} }
func (r *Ride) Dropoff() Coord { return Coord{Lat: r.DropoffLatitude, Lon: r.DropoffLongitude} }

type Rating struct {
	ID          int64      `json:"id" db:"id"`
	RideID      int64      `json:"rideId" db:"ride_id"`
	RatedByID   int64      `json:"ratedById" db:"rated_by_id"`
	RatedUserID int64      `json:"ratedUserId" db:"rated_user_id"`
	RatingType  RatingType `json:"ratingType" db:"rating_type"`
	Score       int        `json:"score" db:"score"`
	Comment     *string    `json:"comment" db:"comment"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

type PaymentMethod struct {
	ID            int64       `json:"id" db:"id"`
	UserID        int64       `json:"userId" db:"user_id"`
	PaymentType   PaymentType `json:"paymentType" db:"payment_type"`
	CardLast4     *string     `json:"cardLast4" db:"card_last4"`
	CardBrand     *string     `json:"cardBrand" db:"card_brand"`
	WalletBalance float64     `json:"walletBalance" db:"wallet_balance"`
	IsDefault     bool        `json:"isDefault" db:"is_default"`
	IsActive      bool        `json:"isActive" db:"is_active"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
}

// RideRequest is a short-lived offer of a trip that drivers may pick up before ExpiresAt.
type RideRequest struct {
	ID               int64             `json:"id" db:"id"`
	RiderID          int64             `json:"riderId" db:"rider_id"`
	PickupLatitude   float64           `json:"pickupLatitude" db:"pickup_latitude"`
	PickupLongitude  float64           `json:"pickupLongitude" db:"pickup_longitude"`
	DropoffLatitude  float64           `json:"dropoffLatitude" db:"dropoff_latitude"`
	DropoffLongitude float64           `json:"dropoffLongitude" db:"dropoff_longitude"`
	VehicleType      VehicleType       `json:"vehicleType" db:"vehicle_type"`
	EstimatedFare    float64           `json:"estimatedFare" db:"estimated_fare"`
	Status           RideRequestStatus `json:"status" db:"status"`
	ExpiresAt        time.Time         `json:"expiresAt" db:"expires_at"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
}
