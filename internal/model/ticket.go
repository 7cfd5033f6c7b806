package model

import "time"

// TicketStatus enumerates the lifecycle states of a ticket.  The only
// legal transitions are BOOKED -> CANCELLED and BOOKED -> CHECKED_IN;
// the two terminal states never transition into each other.  Cancelled
// tickets are kept forever as audit records.
type TicketStatus string

const (
	TicketBooked    TicketStatus = "BOOKED"
	TicketCheckedIn TicketStatus = "CHECKED_IN"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is one row of the ledger: a successful booking of one seat of
// one event by one holder.  PriceCents is captured at booking time and
// is immutable afterwards, even if the event's price later changes.
type Ticket struct {
	ID         uint64       `json:"id"`
	EventID    uint64       `json:"event_id"`
	SeatNumber string       `json:"seat_number"`
	HolderID   uint64       `json:"holder_id"`
	PriceCents int64        `json:"price_cents"` // frozen at booking time
	Status     TicketStatus `json:"status"`
	Token      string       `json:"token,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
