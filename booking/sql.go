package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ridepool/ridepool-backend/ride"
	"github.com/ridepool/ridepool-backend/user"
)

var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrRideNotActive     = errors.New("ride is not accepting bookings")
	ErrSelfBooking       = errors.New("driver cannot book their own ride")
	ErrDuplicateBooking  = errors.New("passenger already holds a booking for this ride")
	ErrNoSeats           = errors.New("no seats available")
	ErrNotFound          = errors.New("booking not found")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateResult is the committed outcome of a reservation: the new
// booking, the ride with its decremented seat count, and the resolved
// passenger identity.
type CreateResult struct {
	Booking   Booking
	Ride      ride.Ride
	Passenger user.User
}

// Create reserves one seat on a ride for the passenger identified by
// phone. The whole sequence runs under the ride's row lock, so two
// callers racing for the last seat serialize: one commits, the other
// fails with ErrNoSeats. Every mutating transaction in this package
// takes the ride lock before touching bookings; keep that order.
func (r *Repository) Create(ctx context.Context, rideID uuid.UUID, passengerPhone, passengerName string) (CreateResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return CreateResult{}, err
	}
	defer tx.Rollback()

	var rd ride.Ride
	err = tx.GetContext(ctx, &rd, lockRideQuery, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return CreateResult{}, ErrRideNotFound
	}
	if err != nil {
		return CreateResult{}, err
	}
	if rd.Status != ride.StatusActive {
		return CreateResult{}, ErrRideNotActive
	}

	passenger, err := user.ResolveOrCreateTx(ctx, tx, passengerPhone, passengerName)
	if err != nil {
		return CreateResult{}, err
	}

	if passenger.ID == rd.DriverID {
		return CreateResult{}, ErrSelfBooking
	}

	var held int
	err = tx.GetContext(ctx, &held, passengerLiveBookingsQuery, rideID, passenger.ID)
	if err != nil {
		return CreateResult{}, err
	}
	if held > 0 {
		return CreateResult{}, ErrDuplicateBooking
	}

	var booked int
	err = tx.GetContext(ctx, &booked, rideLiveBookingsQuery, rideID)
	if err != nil {
		return CreateResult{}, err
	}
	if booked >= rd.SeatsTotal {
		return CreateResult{}, ErrNoSeats
	}

	var b Booking
	err = tx.GetContext(ctx, &b, insertBookingQuery, uuid.New(), rideID, passenger.ID, StatusPending)
	if err != nil {
		return CreateResult{}, err
	}

	// Conditioned decrement: if no row matches, a concurrent commit
	// took the last seat and the deferred rollback drops the insert.
	err = tx.GetContext(ctx, &rd, decrementSeatsQuery, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return CreateResult{}, ErrNoSeats
	}
	if err != nil {
		return CreateResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Booking: b, Ride: rd, Passenger: passenger}, nil
}

const lockRideQuery = `SELECT * FROM rides WHERE id = $1 FOR UPDATE`

const passengerLiveBookingsQuery = `
SELECT count(*) FROM bookings
WHERE ride_id = $1 AND passenger_id = $2 AND status <> 'cancelled'
`

const rideLiveBookingsQuery = `
SELECT count(*) FROM bookings
WHERE ride_id = $1 AND status <> 'cancelled'
`

const insertBookingQuery = `
INSERT INTO bookings (id, ride_id, passenger_id, status)
VALUES ($1, $2, $3, $4)
RETURNING *
`

const decrementSeatsQuery = `
UPDATE rides SET seats_available = seats_available - 1
WHERE id = $1 AND seats_available > 0 AND status = 'active'
RETURNING *
`

// UpdateStatus moves a booking through pending -> confirmed ->
// cancelled. Cancellation restores exactly one seat to the ride; a
// second cancellation fails with ErrAlreadyCancelled before any seat
// arithmetic, which is what makes the restore idempotent.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (Booking, error) {
	if next != StatusConfirmed && next != StatusCancelled {
		return Booking{}, ErrInvalidTransition
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Booking{}, err
	}
	defer tx.Rollback()

	// Peek at the booking to learn its ride, then take locks in the
	// same order as Create: ride row first, booking row second.
	var b Booking
	err = tx.GetContext(ctx, &b, getBookingQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, err
	}

	var rideID uuid.UUID
	err = tx.GetContext(ctx, &rideID, lockRideIDQuery, b.RideID)
	if err != nil {
		return Booking{}, err
	}

	err = tx.GetContext(ctx, &b, getBookingForUpdateQuery, id)
	if err != nil {
		return Booking{}, err
	}

	if b.Status == StatusCancelled && next == StatusCancelled {
		return Booking{}, ErrAlreadyCancelled
	}
	if !b.Status.CanTransitionTo(next) {
		return Booking{}, ErrInvalidTransition
	}

	err = tx.GetContext(ctx, &b, updateBookingStatusQuery, id, next)
	if err != nil {
		return Booking{}, err
	}

	if next == StatusCancelled {
		// The transition guard above means this runs at most once per
		// booking; the clamp keeps a ride that already left the active
		// pool from ever exceeding its capacity.
		if _, err := tx.ExecContext(ctx, restoreSeatQuery, b.RideID); err != nil {
			return Booking{}, err
		}
	}

	return b, tx.Commit()
}

const getBookingQuery = `SELECT * FROM bookings WHERE id = $1`

const lockRideIDQuery = `SELECT id FROM rides WHERE id = $1 FOR UPDATE`

const getBookingForUpdateQuery = `SELECT * FROM bookings WHERE id = $1 FOR UPDATE`

const updateBookingStatusQuery = `UPDATE bookings SET status = $2 WHERE id = $1 RETURNING *`

const restoreSeatQuery = `
UPDATE rides SET seats_available = LEAST(seats_available + 1, seats_total)
WHERE id = $1
`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, getBookingQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	return b, err
}

// ByPassenger lists a passenger's bookings joined with ride details,
// soonest departure first.
func (r *Repository) ByPassenger(ctx context.Context, passengerID uuid.UUID) ([]WithRide, error) {
	var bookings []WithRide
	err := r.db.SelectContext(ctx, &bookings, byPassengerQuery, passengerID)
	return bookings, err
}

const byPassengerQuery = `
SELECT b.*, r.origin, r.destination, r.departure_time, r.price_per_seat,
       r.status AS ride_status, u.name AS driver_name, u.phone AS driver_phone
FROM bookings b
JOIN rides r ON r.id = b.ride_id
JOIN users u ON u.id = r.driver_id
WHERE b.passenger_id = $1
ORDER BY r.departure_time ASC
`

// ByRide lists a ride's bookings with passenger identities, for the
// driver's view.
func (r *Repository) ByRide(ctx context.Context, rideID uuid.UUID) ([]WithPassenger, error) {
	var bookings []WithPassenger
	err := r.db.SelectContext(ctx, &bookings, byRideQuery, rideID)
	return bookings, err
}

const byRideQuery = `
SELECT b.*, u.name AS passenger_name, u.phone AS passenger_phone
FROM bookings b
JOIN users u ON u.id = b.passenger_id
WHERE b.ride_id = $1
ORDER BY b.created_at ASC
`
