// Package booking holds the seat inventory and booking transaction
// engine: it decides which concurrent request wins a contested seat,
// issues and revokes tickets, and keeps occupancy, ticket lifecycle
// and revenue consistent with each other.
package booking

import (
	"errors"
	"fmt"
)

// ErrEventInPast rejects bookings once the event has started.
var ErrEventInPast = errors.New("event already started")

// ErrSeatUnavailable reports that another booking won the seat.  This
// is an expected outcome under contention, not a fault: the engine
// never retries it, because the caller's seat choice is no longer
// valid and they must pick a different seat.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrNotOwner rejects a cancellation by someone who neither holds the
// ticket nor has administrative capability.
var ErrNotOwner = errors.New("not ticket owner")

// ErrAlreadyCancelled signals an idempotent repeat cancellation; safe
// for callers to treat as terminal.
var ErrAlreadyCancelled = errors.New("ticket already cancelled")

// ErrCannotCancelCheckedIn rejects cancelling a ticket that was
// already used for entry.
var ErrCannotCancelCheckedIn = errors.New("cannot cancel a checked-in ticket")

// ErrAlreadyCheckedIn rejects a repeated check-in.
var ErrAlreadyCheckedIn = errors.New("ticket already checked in")

// ErrTicketCancelled rejects checking in a cancelled ticket.
var ErrTicketCancelled = errors.New("ticket is cancelled")

// ErrInvalidToken reports a malformed or forged entry token.  This is
// distinct from "ticket not found": a token can verify while the
// ticket it names was since cancelled.
var ErrInvalidToken = errors.New("invalid ticket token")

// StorageError reports an infrastructure fault that left, or may have
// left, inventory and ledger out of step.  It carries enough detail
// for out-of-band repair; it is never swallowed.
type StorageError struct {
	EventID    uint64
	SeatNumber string
	AttemptID  string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault (event=%d seat=%s attempt=%s): %v",
		e.EventID, e.SeatNumber, e.AttemptID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
