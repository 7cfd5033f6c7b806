// Package queue defines the ticket lifecycle messages exchanged over
// the broker and the background consumer that records them.
package queue

// TicketBookedEvent is published after a booking commits. It carries
// everything downstream consumers need without a database round trip.
type TicketBookedEvent struct {
	TicketID   uint64 `json:"ticket_id"`
	EventID    uint64 `json:"event_id"`
	EventTitle string `json:"event_title"`
	SeatNumber string `json:"seat_number"`
	HolderID   uint64 `json:"holder_id"`
	PriceCents int64  `json:"price_cents"`
	BookedAt   string `json:"booked_at"`
}

// TicketCancelledEvent is published after a cancellation commits.
type TicketCancelledEvent struct {
	TicketID    uint64 `json:"ticket_id"`
	EventID     uint64 `json:"event_id"`
	SeatNumber  string `json:"seat_number"`
	HolderID    uint64 `json:"holder_id"`
	CancelledAt string `json:"cancelled_at"`
}
