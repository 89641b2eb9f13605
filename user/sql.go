package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidPhone = errors.New("phone number must be 10-12 digits with optional + prefix")
	ErrNotFound     = errors.New("user not found")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ResolveOrCreate maps a phone credential to a user record, creating
// one on first use and refreshing the display name on repeat use.
func (r *Repository) ResolveOrCreate(ctx context.Context, phone, name string) (User, error) {
	return ResolveOrCreateTx(ctx, r.db, phone, name)
}

// ResolveOrCreateTx is the transaction-scoped variant, used by the
// ride and booking engines to resolve identities inside their own
// transactions. The upsert is a single statement so concurrent
// first-time callers for the same phone converge on one row.
func ResolveOrCreateTx(ctx context.Context, q sqlx.ExtContext, phone, name string) (User, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return User{}, err
	}
	var u User
	err = sqlx.GetContext(ctx, q, &u, resolveOrCreateQuery, uuid.New(), name, normalized)
	return u, err
}

// An empty name on repeat use keeps the stored one.
const resolveOrCreateQuery = `
INSERT INTO users (id, name, phone)
VALUES ($1, $2, $3)
ON CONFLICT (phone) DO UPDATE
    SET name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name)
RETURNING *
`

func (r *Repository) GetByPhone(ctx context.Context, phone string) (User, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return User{}, err
	}
	var u User
	err = r.db.GetContext(ctx, &u, getByPhoneQuery, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const getByPhoneQuery = `SELECT * FROM users WHERE phone = $1`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const getByIDQuery = `SELECT * FROM users WHERE id = $1`
