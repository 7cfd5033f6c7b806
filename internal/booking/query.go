package booking

import (
	"context"

	"github.com/tickethub/tickethub/internal/model"
)

// Query serves the read side: listings, availability and revenue.
// All reads go straight to storage, so results reflect whatever the
// last committed write left there.
type Query struct {
	events  EventStore
	seats   InventoryStore
	tickets TicketLedger
}

func NewQuery(events EventStore, seats InventoryStore, tickets TicketLedger) *Query {
	return &Query{events: events, seats: seats, tickets: tickets}
}

// ListEvents returns event summaries filtered by title substring and
// status ("upcoming", "past" or "all"; empty means upcoming).
func (q *Query) ListEvents(ctx context.Context, title, status string) ([]model.EventSummary, error) {
	return q.events.SearchEvents(ctx, title, status)
}

// AvailableSeats lists every unoccupied seat of an event, in seat
// number order.
func (q *Query) AvailableSeats(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	if _, err := q.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	seats, err := q.seats.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	free := make([]model.Seat, 0, len(seats))
	for _, s := range seats {
		if !s.Occupied {
			free = append(free, s)
		}
	}
	return free, nil
}

// Revenue sums the frozen price of every non-cancelled ticket of an
// event.  Checked-in tickets keep counting; cancelled ones never do.
func (q *Query) Revenue(ctx context.Context, eventID uint64) (int64, error) {
	if _, err := q.events.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return q.tickets.RevenueByEvent(ctx, eventID)
}

// TicketsOf lists a holder's tickets, newest first.
func (q *Query) TicketsOf(ctx context.Context, holderID uint64) ([]model.Ticket, error) {
	return q.tickets.ListByHolder(ctx, holderID)
}

// Ticket fetches one ticket, with an ownership check unless the
// caller is privileged.
func (q *Query) Ticket(ctx context.Context, ticketID, userID uint64, admin bool) (*model.Ticket, error) {
	t, err := q.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !admin && t.HolderID != userID {
		return nil, ErrNotOwner
	}
	return t, nil
}

// EventStats aggregates the organizer dashboard numbers for an event.
type EventStats struct {
	EventID        uint64 `json:"event_id"`
	SeatCount      uint32 `json:"seat_count"`
	AvailableSeats uint32 `json:"available_seats"`
	TicketsSold    int    `json:"tickets_sold"`
	RevenueCents   int64  `json:"revenue_cents"`
}

// Stats computes sales figures for one event.
func (q *Query) Stats(ctx context.Context, eventID uint64) (*EventStats, error) {
	ev, err := q.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	avail, err := q.seats.CountAvailable(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tickets, err := q.tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	sold := 0
	for _, t := range tickets {
		if t.Status != model.TicketCancelled {
			sold++
		}
	}
	revenue, err := q.tickets.RevenueByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &EventStats{
		EventID:        ev.ID,
		SeatCount:      ev.SeatCount,
		AvailableSeats: avail,
		TicketsSold:    sold,
		RevenueCents:   revenue,
	}, nil
}
