package store

import (
	"context"
	"errors"

	"roombook/pkg/domain"
)

var (
	// ErrConflict is returned by the checked write methods when the
	// requested slot overlaps an existing reservation for the same room
	// and day.
	ErrConflict = errors.New("reservation slot conflict")
	// ErrNotFound is returned by UpdateChecked when the reservation row
	// disappeared between authorization and the write.
	ErrNotFound = errors.New("reservation not found")
)

// Store defines persistence operations for reservations.
//
// CreateChecked and UpdateChecked must evaluate room availability and
// perform the write inside a single transaction so that two concurrent
// callers cannot both observe a free slot.
type Store interface {
	// CreateChecked inserts r if its slot is free, assigning the ID.
	CreateChecked(ctx context.Context, r *domain.Reservation) error
	// UpdateChecked rewrites r if its slot is free, ignoring r's own row
	// during the availability check.
	UpdateChecked(ctx context.Context, r *domain.Reservation) error
	Get(ctx context.Context, id int64) (domain.Reservation, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)

	// ListForSlot returns reservations for room on date, excluding the
	// reservation with excludeID when excludeID > 0.
	ListForSlot(ctx context.Context, room domain.Room, date domain.Date, excludeID int64) ([]domain.Reservation, error)

	// ListUpcoming and ListPast split reservations around the given
	// reference point, ordered by (date, startTime) ascending.
	ListUpcoming(ctx context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error)
	ListPast(ctx context.Context, today domain.Date, now domain.TimeOfDay) ([]domain.Reservation, error)
}

// CredentialStore persists capability grants issued after private-key
// verification.
type CredentialStore interface {
	Grant(reservationID int64, action domain.Action, key string) (string, domain.Credential, error)
	Resolve(token string) (domain.Credential, bool, error)
	Revoke(token string) error
}
