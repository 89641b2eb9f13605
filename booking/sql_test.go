package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// These tests drive the booking engine against sqlmock to pin down the
// transaction shape: which statements run, in what order, and that a
// missed conditional decrement rolls the whole reservation back.

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var rideColumns = []string{
	"id", "driver_id", "origin", "destination", "departure_time",
	"seats_total", "seats_available", "price_per_seat", "vehicle",
	"notes", "status", "created_at",
}

func rideRow(id, driverID uuid.UUID, total, available int, status string) *sqlmock.Rows {
	return sqlmock.NewRows(rideColumns).AddRow(
		id, driverID, "Dublin", "Galway", time.Now().Add(24*time.Hour),
		total, available, 15.0, "sedan", "", status, time.Now())
}

func userRow(id uuid.UUID, phone string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "phone", "created_at"}).
		AddRow(id, "Pat", phone, time.Now())
}

func bookingRow(id, rideID, passengerID uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "ride_id", "passenger_id", "status", "created_at"}).
		AddRow(id, rideID, passengerID, status, time.Now())
}

func countRow(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestCreateRollsBackWhenDecrementMisses(t *testing.T) {
	repo, mock := newMockRepo(t)

	rideID := uuid.New()
	driverID := uuid.New()
	passengerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(rideRow(rideID, driverID, 2, 1, "active"))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(passengerID, "0857654321"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM bookings\s+WHERE ride_id = \$1 AND passenger_id = \$2`).
		WillReturnRows(countRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM bookings\s+WHERE ride_id = \$1 AND status`).
		WillReturnRows(countRow(1))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(bookingRow(uuid.New(), rideID, passengerID, "pending"))
	// Zero rows from the guarded decrement: another transaction took
	// the seat between our count and our update.
	mock.ExpectQuery(`UPDATE rides SET seats_available = seats_available - 1`).
		WillReturnRows(sqlmock.NewRows(rideColumns))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), rideID, "0857654321", "Pat")
	if !errors.Is(err, ErrNoSeats) {
		t.Fatalf("Create() error = %v, want ErrNoSeats", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRejectsDriverAsPassenger(t *testing.T) {
	repo, mock := newMockRepo(t)

	rideID := uuid.New()
	driverID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(rideRow(rideID, driverID, 4, 4, "active"))
	// The upsert resolves the passenger phone to the driver's own row;
	// nothing past this point may run.
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(driverID, "0851234567"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), rideID, "0851234567", "Dara")
	if !errors.Is(err, ErrSelfBooking) {
		t.Fatalf("Create() error = %v, want ErrSelfBooking", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRejectsInactiveRide(t *testing.T) {
	repo, mock := newMockRepo(t)

	rideID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(rideRow(rideID, uuid.New(), 4, 4, "completed"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), rideID, "0857654321", "Pat")
	if !errors.Is(err, ErrRideNotActive) {
		t.Fatalf("Create() error = %v, want ErrRideNotActive", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRejectsDuplicateBooking(t *testing.T) {
	repo, mock := newMockRepo(t)

	rideID := uuid.New()
	passengerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(rideRow(rideID, uuid.New(), 4, 3, "active"))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(passengerID, "0857654321"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM bookings\s+WHERE ride_id = \$1 AND passenger_id = \$2`).
		WillReturnRows(countRow(1))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), rideID, "0857654321", "Pat")
	if !errors.Is(err, ErrDuplicateBooking) {
		t.Fatalf("Create() error = %v, want ErrDuplicateBooking", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusCancelRestoresSeat(t *testing.T) {
	repo, mock := newMockRepo(t)

	bookingID := uuid.New()
	rideID := uuid.New()
	passengerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM bookings WHERE id = \$1$`).
		WillReturnRows(bookingRow(bookingID, rideID, passengerID, "pending"))
	mock.ExpectQuery(`SELECT id FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rideID))
	mock.ExpectQuery(`SELECT \* FROM bookings WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(bookingRow(bookingID, rideID, passengerID, "pending"))
	mock.ExpectQuery(`UPDATE bookings SET status = \$2 WHERE id = \$1`).
		WillReturnRows(bookingRow(bookingID, rideID, passengerID, "cancelled"))
	mock.ExpectExec(`UPDATE rides SET seats_available = LEAST\(seats_available \+ 1, seats_total\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.UpdateStatus(context.Background(), bookingID, StatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if b.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusDoubleCancelDoesNotTouchSeats(t *testing.T) {
	repo, mock := newMockRepo(t)

	bookingID := uuid.New()
	rideID := uuid.New()
	passengerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM bookings WHERE id = \$1$`).
		WillReturnRows(bookingRow(bookingID, rideID, passengerID, "cancelled"))
	mock.ExpectQuery(`SELECT id FROM rides WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rideID))
	mock.ExpectQuery(`SELECT \* FROM bookings WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(bookingRow(bookingID, rideID, passengerID, "cancelled"))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), bookingID, StatusCancelled)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("UpdateStatus() error = %v, want ErrAlreadyCancelled", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusRejectsUnknownTarget(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), Status("pending"))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("UpdateStatus() error = %v, want ErrInvalidTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
