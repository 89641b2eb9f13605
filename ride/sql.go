package ride

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/ridepool/ridepool-backend/user"
)

var (
	ErrNotFound          = errors.New("ride not found")
	ErrDuplicateRide     = errors.New("driver already has an active ride at this departure time")
	ErrInvalidTransition = errors.New("invalid ride status transition")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create resolves the driver identity and publishes the offer in one
// transaction. The duplicate-offer guard is checked in-transaction and
// backed by a partial unique index, so two concurrent identical offers
// cannot both land.
func (r *Repository) Create(ctx context.Context, offer Offer) (Ride, user.User, error) {
	if err := offer.Validate(time.Now()); err != nil {
		return Ride{}, user.User{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Ride{}, user.User{}, err
	}
	defer tx.Rollback()

	driver, err := user.ResolveOrCreateTx(ctx, tx, offer.DriverPhone, offer.DriverName)
	if err != nil {
		return Ride{}, user.User{}, err
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, activeRideExistsQuery, driver.ID, offer.DepartureTime)
	if err != nil {
		return Ride{}, user.User{}, err
	}
	if exists {
		return Ride{}, user.User{}, ErrDuplicateRide
	}

	var rd Ride
	err = tx.GetContext(ctx, &rd, createRideQuery,
		uuid.New(), driver.ID, strings.TrimSpace(offer.Origin), strings.TrimSpace(offer.Destination),
		offer.DepartureTime, offer.Seats, offer.PricePerSeat,
		strings.TrimSpace(offer.Vehicle), strings.TrimSpace(offer.Notes))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Ride{}, user.User{}, ErrDuplicateRide
		}
		return Ride{}, user.User{}, err
	}

	return rd, driver, tx.Commit()
}

const activeRideExistsQuery = `
SELECT EXISTS (
    SELECT 1 FROM rides
    WHERE driver_id = $1 AND departure_time = $2 AND status = 'active'
)`

const createRideQuery = `
INSERT INTO rides (id, driver_id, origin, destination, departure_time,
                   seats_total, seats_available, price_per_seat, vehicle, notes, status)
VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9, 'active')
RETURNING *
`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Ride, error) {
	var rd Ride
	err := r.db.GetContext(ctx, &rd, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	return rd, err
}

const getByIDQuery = `SELECT * FROM rides WHERE id = $1`

func (r *Repository) GetWithDriver(ctx context.Context, id uuid.UUID) (WithDriver, error) {
	var rd WithDriver
	err := r.db.GetContext(ctx, &rd, getWithDriverQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return WithDriver{}, ErrNotFound
	}
	return rd, err
}

const getWithDriverQuery = `
SELECT r.*, u.name AS driver_name, u.phone AS driver_phone
FROM rides r JOIN users u ON u.id = r.driver_id
WHERE r.id = $1
`

// UpdateStatus transitions a ride's lifecycle state. Cancelling a ride
// also cancels all of its live bookings in the same transaction; the
// seat counter is left alone because the ride leaves the active pool
// entirely. Returns the updated ride and the ids of cascaded bookings.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (Ride, []uuid.UUID, error) {
	if next != StatusCompleted && next != StatusCancelled {
		return Ride{}, nil, ErrInvalidTransition
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Ride{}, nil, err
	}
	defer tx.Rollback()

	var rd Ride
	err = tx.GetContext(ctx, &rd, lockRideQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, nil, ErrNotFound
	}
	if err != nil {
		return Ride{}, nil, err
	}

	if !rd.Status.CanTransitionTo(next) {
		return Ride{}, nil, ErrInvalidTransition
	}

	err = tx.GetContext(ctx, &rd, updateRideStatusQuery, id, next)
	if err != nil {
		return Ride{}, nil, err
	}

	var cancelled []uuid.UUID
	if next == StatusCancelled {
		err = tx.SelectContext(ctx, &cancelled, cascadeCancelBookingsQuery, id)
		if err != nil {
			return Ride{}, nil, err
		}
	}

	return rd, cancelled, tx.Commit()
}

const lockRideQuery = `SELECT * FROM rides WHERE id = $1 FOR UPDATE`

const updateRideStatusQuery = `UPDATE rides SET status = $2 WHERE id = $1 RETURNING *`

const cascadeCancelBookingsQuery = `
UPDATE bookings SET status = 'cancelled'
WHERE ride_id = $1 AND status <> 'cancelled'
RETURNING id
`

// Latest returns the most recently published active rides.
func (r *Repository) Latest(ctx context.Context, limit int) ([]WithDriver, error) {
	if limit <= 0 {
		limit = 10
	}
	var rides []WithDriver
	err := r.db.SelectContext(ctx, &rides, latestRidesQuery, limit)
	return rides, err
}

const latestRidesQuery = `
SELECT r.*, u.name AS driver_name, u.phone AS driver_phone
FROM rides r JOIN users u ON u.id = r.driver_id
WHERE r.status = 'active'
ORDER BY r.created_at DESC
LIMIT $1
`

// ByDriver returns all rides a driver has offered, newest first.
func (r *Repository) ByDriver(ctx context.Context, driverID uuid.UUID) ([]Ride, error) {
	var rides []Ride
	err := r.db.SelectContext(ctx, &rides, byDriverQuery, driverID)
	return rides, err
}

const byDriverQuery = `SELECT * FROM rides WHERE driver_id = $1 ORDER BY created_at DESC`

// Time-of-day buckets match the departure hour in the ride's stored
// timezone: morning 06-12, afternoon 12-18, evening 18-24.
var timeOfDayBuckets = map[string][2]int{
	"morning":   {6, 12},
	"afternoon": {12, 18},
	"evening":   {18, 24},
}

var sortColumns = map[string]string{
	"":          "r.departure_time ASC",
	"departure": "r.departure_time ASC",
	"price":     "r.price_per_seat ASC",
	"seats":     "r.seats_available DESC",
	"recency":   "r.created_at DESC",
}

var ErrInvalidSort = errors.New("unknown sort key")

type SearchCriteria struct {
	Origin      string
	Destination string
	Date        *time.Time // any instant within the wanted day
	Seats       int        // minimum seats still available
	PriceMin    *float64
	PriceMax    *float64
	TimeOfDay   string // morning, afternoon, evening; empty or "any" for all
	Vehicle     string
	SortBy      string
}

// Search lists active rides matching the criteria. Availability comes
// straight from the seats_available column the booking engine writes,
// so readers never see a drifted figure.
func (r *Repository) Search(ctx context.Context, c SearchCriteria) ([]WithDriver, error) {
	orderBy, ok := sortColumns[c.SortBy]
	if !ok {
		return nil, ErrInvalidSort
	}

	if c.Seats < 1 {
		c.Seats = 1
	}

	var (
		where = []string{"r.status = 'active'"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "r.seats_available >= "+arg(c.Seats))
	if c.Origin != "" {
		where = append(where, "r.origin ILIKE "+arg("%"+c.Origin+"%"))
	}
	if c.Destination != "" {
		where = append(where, "r.destination ILIKE "+arg("%"+c.Destination+"%"))
	}
	if c.Date != nil {
		dayStart := time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, c.Date.Location())
		where = append(where, "r.departure_time >= "+arg(dayStart))
		where = append(where, "r.departure_time < "+arg(dayStart.AddDate(0, 0, 1)))
	}
	if c.PriceMin != nil {
		where = append(where, "r.price_per_seat >= "+arg(*c.PriceMin))
	}
	if c.PriceMax != nil {
		where = append(where, "r.price_per_seat <= "+arg(*c.PriceMax))
	}
	if bucket, ok := timeOfDayBuckets[c.TimeOfDay]; ok {
		where = append(where, "EXTRACT(HOUR FROM r.departure_time) >= "+arg(bucket[0]))
		where = append(where, "EXTRACT(HOUR FROM r.departure_time) < "+arg(bucket[1]))
	}
	if c.Vehicle != "" && c.Vehicle != "any" {
		where = append(where, "r.vehicle ILIKE "+arg("%"+c.Vehicle+"%"))
	}

	query := `
SELECT r.*, u.name AS driver_name, u.phone AS driver_phone
FROM rides r JOIN users u ON u.id = r.driver_id
WHERE ` + strings.Join(where, "\n  AND ") + `
ORDER BY ` + orderBy

	var rides []WithDriver
	err := r.db.SelectContext(ctx, &rides, query, args...)
	return rides, err
}
