package filedock

import "errors"

var (
	// ErrNotFound is returned when a file record does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a write would overwrite an existing record without intent.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyConfirmed is returned when a reservation is confirmed more than once.
	ErrAlreadyConfirmed = errors.New("reservation already confirmed")
	// ErrReservationExpired is returned when a reservation lease has elapsed.
	ErrReservationExpired = errors.New("reservation expired")
	// ErrUnauthorized is returned when request authentication fails.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable is returned when the object store or metadata backend cannot be reached.
	ErrUnavailable = errors.New("upstream unavailable")
)
