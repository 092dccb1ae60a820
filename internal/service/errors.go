// Package service implements the application's business rules on top of the
// repositories. Services return sentinel errors from this file; handlers
// translate them to HTTP status codes and never inspect repository errors
// directly.
package service

import "errors"

var (
	// ErrForbidden means the authenticated actor is not allowed to perform
	// the operation, such as a customer editing another restaurant's floor
	// plan or declining a booking.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the request payload failed a business rule, such
	// as an unknown item kind or a party size over the restaurant's limit.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition means a booking status change is not allowed
	// from the current state, such as approving a cancelled reservation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict means a concurrent write won: a stale layout-item version
	// or a racing status change.
	ErrConflict = errors.New("conflict")
)
