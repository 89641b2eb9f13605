package ride

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Completed is terminal apart from cancellation; cancelled is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted:
		return next == StatusCancelled
	}
	return false
}

type Ride struct {
	ID             uuid.UUID `db:"id"`
	DriverID       uuid.UUID `db:"driver_id"`
	Origin         string    `db:"origin"`
	Destination    string    `db:"destination"`
	DepartureTime  time.Time `db:"departure_time"`
	SeatsTotal     int       `db:"seats_total"`
	SeatsAvailable int       `db:"seats_available"`
	PricePerSeat   float64   `db:"price_per_seat"`
	Vehicle        string    `db:"vehicle"`
	Notes          string    `db:"notes"`
	Status         Status    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// WithDriver carries the driver's public identity alongside the ride
// for listing and search responses.
type WithDriver struct {
	Ride
	DriverName  string `db:"driver_name"`
	DriverPhone string `db:"driver_phone"`
}

var (
	ErrMissingFields = errors.New("origin, destination, driver name and departure time are required")
	ErrPastDeparture = errors.New("departure time must be in the future")
	ErrSeatRange     = errors.New("seats must be between 1 and 8")
	ErrInvalidPrice  = errors.New("price per seat must be a positive number")
)

// Offer is a driver's request to publish a ride.
type Offer struct {
	DriverPhone   string
	DriverName    string
	Origin        string
	Destination   string
	DepartureTime time.Time
	Seats         int
	PricePerSeat  float64
	Vehicle       string
	Notes         string
}

// Validate rejects malformed offers before any store access.
func (o Offer) Validate(now time.Time) error {
	if strings.TrimSpace(o.Origin) == "" || strings.TrimSpace(o.Destination) == "" ||
		strings.TrimSpace(o.DriverName) == "" || o.DepartureTime.IsZero() {
		return ErrMissingFields
	}
	if !o.DepartureTime.After(now) {
		return ErrPastDeparture
	}
	if o.Seats < 1 || o.Seats > 8 {
		return ErrSeatRange
	}
	if o.PricePerSeat <= 0 {
		return ErrInvalidPrice
	}
	return nil
}
