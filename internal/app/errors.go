package app

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the reservation ID resolves to nothing.
	ErrNotFound = errors.New("reservation not found")
	// ErrForbidden indicates a missing or mismatched credential. It is
	// always distinct from ErrNotFound so a wrong key is never reported
	// as a missing reservation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the room is already reserved for the
	// requested time.
	ErrConflict = errors.New("room already reserved for the requested time")
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors accumulates every violation found in one pass so the
// caller can show them all at once.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
