package errors

import "errors"

// Shared application errors. Services wrap these with fmt.Errorf("%w: detail");
// handlers map them to stable HTTP status codes with generic messages.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized covers bad credentials and bad/missing tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks rights for an action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for invalid input data.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned for unique-key conflicts (duplicate email).
	ErrConflict = errors.New("resource state conflict")

	// ErrExpiredToken is returned when a session token has expired.
	ErrExpiredToken = errors.New("token is expired")
)
