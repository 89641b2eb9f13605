package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is keyed by phone number: the marketplace uses the phone as an
// unverified natural identity, created lazily on first ride offer or
// booking.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

var phonePattern = regexp.MustCompile(`^\+?\d{10,12}$`)

// NormalizePhone strips common separators and validates the 10-12
// digit, optionally +-prefixed format.
func NormalizePhone(raw string) (string, error) {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)
	if !phonePattern.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}
