// Package repository defines error values shared across repositories.
// These sentinels let handlers and the booking engine distinguish
// failure scenarios without inspecting database error strings.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup yields no rows.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatNotFound is returned when a seat number is not declared for
// the given event, or the event itself is gone.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTicketNotFound is returned when a ticket lookup yields no rows.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrValidation is returned when a write is rejected before touching
// the database: negative price, missing event/seat/holder references.
var ErrValidation = errors.New("validation failed")

// ErrEmailExists is returned when registering a user with an email
// that is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrRefreshInvalid covers every dead refresh token uniformly: an
// unknown, revoked or expired hash must be indistinguishable to the
// caller.
var ErrRefreshInvalid = errors.New("refresh token invalid")
