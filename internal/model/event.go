package model

import "time"

// Event is a bookable happening with a fixed set of seats (S1..SN)
// generated at creation time.  The seat count never changes after the
// event exists; resizing would invalidate issued tickets and is not
// supported.  Booking closes at StartsAt (UTC).  PriceCents applies to
// future bookings only; issued tickets keep the price they were sold
// at.
type Event struct {
	ID          uint64    `json:"id"`
	OrganizerID uint64    `json:"organizer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	PriceCents  int64     `json:"price_cents"`
	SeatCount   uint32    `json:"seat_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventSummary is the read-side projection used by public listings:
// the event's headline fields plus the seat availability computed at
// query time.
type EventSummary struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title"`
	Venue          string    `json:"venue"`
	StartsAt       time.Time `json:"starts_at"`
	PriceCents     int64     `json:"price_cents"`
	SeatCount      uint32    `json:"seat_count"`
	AvailableSeats uint32    `json:"available_seats"`
}

// Seat is one addressable unit of an event's capacity.  The occupancy
// flag is the single source of truth for whether a live ticket holds
// the seat; TicketID is a convenience back-reference to that ticket.
type Seat struct {
	ID         uint64  `json:"id"`
	EventID    uint64  `json:"event_id"`
	SeatNumber string  `json:"seat_number"` // unique within the event, e.g. "S12"
	Occupied   bool    `json:"occupied"`
	TicketID   *uint64 `json:"ticket_id,omitempty"`
}
