package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo reports whether the booking state machine allows
// moving to next. Cancelled is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

// Booking reserves one seat on a ride for a passenger. It is created
// only through Repository.Create, which holds the capacity invariant:
// live bookings + seats_available always equals seats_total.
type Booking struct {
	ID          uuid.UUID `db:"id"`
	RideID      uuid.UUID `db:"ride_id"`
	PassengerID uuid.UUID `db:"passenger_id"`
	Status      Status    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

// WithRide is a passenger-facing view of a booking joined with its
// ride and driver.
type WithRide struct {
	Booking
	Origin        string    `db:"origin"`
	Destination   string    `db:"destination"`
	DepartureTime time.Time `db:"departure_time"`
	PricePerSeat  float64   `db:"price_per_seat"`
	RideStatus    string    `db:"ride_status"`
	DriverName    string    `db:"driver_name"`
	DriverPhone   string    `db:"driver_phone"`
}

// WithPassenger is the driver-facing view of a booking on their ride.
type WithPassenger struct {
	Booking
	PassengerName  string `db:"passenger_name"`
	PassengerPhone string `db:"passenger_phone"`
}
