package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tickethub/tickethub/internal/model"
	"github.com/tickethub/tickethub/internal/repository"
)

// EventStore supplies event metadata to the engine.
type EventStore interface {
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	SearchEvents(ctx context.Context, title, status string) ([]model.EventSummary, error)
}

// InventoryStore is the seat occupancy side of the system.  Its
// TrySetOccupied conditional write is the single serialization point
// for a seat: at most one concurrent caller observes applied=true for
// a given transition.
type InventoryStore interface {
	SeatExists(ctx context.Context, eventID uint64, seatNumber string) (bool, error)
	TrySetOccupied(ctx context.Context, eventID uint64, seatNumber string, expected, next bool) (bool, error)
	LinkTicket(ctx context.Context, eventID uint64, seatNumber string, ticketID uint64) error
	CountAvailable(ctx context.Context, eventID uint64) (uint32, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error)
}

// TicketLedger is the append-heavy record of issued tickets.
type TicketLedger interface {
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, id uint64) (*model.Ticket, error)
	SetStatus(ctx context.Context, id uint64, from, to model.TicketStatus) (bool, error)
	SetToken(ctx context.Context, id uint64, token string) error
	ListByHolder(ctx context.Context, holderID uint64) ([]model.Ticket, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error)
	RevenueByEvent(ctx context.Context, eventID uint64) (int64, error)
}

// Authorizer answers whether a user may act on someone else's ticket.
type Authorizer interface {
	IsOwnerOrAdmin(ctx context.Context, userID, holderID uint64) (bool, error)
}

// rollbackAttempts bounds the compensating seat release after a
// failed ledger write.  Past this the seat stays occupied and the
// fault is surfaced for manual reconciliation.
const rollbackAttempts = 3

// Engine owns the booking, cancellation and check-in transitions.
type Engine struct {
	events  EventStore
	seats   InventoryStore
	tickets TicketLedger
	auth    Authorizer
	tokens  *TokenService

	// now is swappable in tests.
	now func() time.Time
}

func NewEngine(events EventStore, seats InventoryStore, tickets TicketLedger, auth Authorizer, tokens *TokenService) *Engine {
	return &Engine{
		events:  events,
		seats:   seats,
		tickets: tickets,
		auth:    auth,
		tokens:  tokens,
		now:     time.Now,
	}
}

// Book attempts to reserve one seat for holderID.  The price is read
// from the event at booking time and frozen onto the ticket, so later
// price changes never touch existing tickets.
//
// The occupancy flip is the commit point: once TrySetOccupied applies,
// the seat is ours, and any ledger failure after that point triggers a
// compensating release.
func (e *Engine) Book(ctx context.Context, eventID uint64, seatNumber string, holderID uint64) (*model.Ticket, error) {
	ev, err := e.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.StartsAt.After(e.now().UTC()) {
		return nil, ErrEventInPast
	}

	ok, err := e.seats.SeatExists(ctx, eventID, seatNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrSeatNotFound
	}

	attemptID := uuid.NewString()

	applied, err := e.seats.TrySetOccupied(ctx, eventID, seatNumber, false, true)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrSeatUnavailable
	}

	ticket := &model.Ticket{
		EventID:    eventID,
		SeatNumber: seatNumber,
		HolderID:   holderID,
		PriceCents: ev.PriceCents,
		Status:     model.TicketBooked,
	}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		if relErr := e.releaseSeat(ctx, eventID, seatNumber); relErr != nil {
			return nil, &StorageError{
				EventID:    eventID,
				SeatNumber: seatNumber,
				AttemptID:  attemptID,
				Err:        errors.Join(err, relErr),
			}
		}
		return nil, err
	}

	// Back-reference from seat to ticket is advisory; the ledger is
	// authoritative, so a failure here is logged and not fatal.
	if err := e.seats.LinkTicket(ctx, eventID, seatNumber, ticket.ID); err != nil {
		log.Printf("booking: link ticket %d to seat %s/%d failed: %v", ticket.ID, seatNumber, eventID, err)
	}

	if e.tokens != nil {
		token, err := e.tokens.Issue(ticket)
		if err == nil {
			ticket.Token = token
			if err := e.tickets.SetToken(ctx, ticket.ID, token); err != nil {
				// Token is deterministic over immutable fields, so it
				// can be recomputed on demand.
				log.Printf("booking: persist token for ticket %d failed: %v", ticket.ID, err)
			}
		} else {
			log.Printf("booking: issue token for ticket %d failed: %v", ticket.ID, err)
		}
	}

	return ticket, nil
}

// releaseSeat undoes a provisional occupancy flip with bounded
// retries.  applied=false here means someone else already released or
// re-flipped the seat, which during compensation can only be the
// result of an external repair, so it is treated as done.
func (e *Engine) releaseSeat(ctx context.Context, eventID uint64, seatNumber string) error {
	var lastErr error
	for attempt := 0; attempt < rollbackAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		_, err := e.seats.TrySetOccupied(ctx, eventID, seatNumber, true, false)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Cancel releases holderID's (or an admin's target) ticket and frees
// the seat for rebooking.  The status flip BOOKED -> CANCELLED is the
// commit point and makes repeat cancellations detectable.
func (e *Engine) Cancel(ctx context.Context, ticketID, userID uint64) error {
	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}

	allowed, err := e.auth.IsOwnerOrAdmin(ctx, userID, t.HolderID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotOwner
	}

	switch t.Status {
	case model.TicketCancelled:
		return ErrAlreadyCancelled
	case model.TicketCheckedIn:
		return ErrCannotCancelCheckedIn
	}

	applied, err := e.tickets.SetStatus(ctx, ticketID, model.TicketBooked, model.TicketCancelled)
	if err != nil {
		return err
	}
	if !applied {
		// Lost a race with another transition; re-read to report the
		// accurate terminal state.
		cur, err := e.tickets.Get(ctx, ticketID)
		if err != nil {
			return err
		}
		if cur.Status == model.TicketCancelled {
			return ErrAlreadyCancelled
		}
		return ErrCannotCancelCheckedIn
	}

	applied, err = e.seats.TrySetOccupied(ctx, t.EventID, t.SeatNumber, true, false)
	if err != nil {
		return &StorageError{EventID: t.EventID, SeatNumber: t.SeatNumber, Err: err}
	}
	if !applied {
		// Ticket says BOOKED yet the seat was already free.  The
		// cancellation itself succeeded; the inconsistency predates it
		// and is left for the reconciliation sweep to report.
		log.Printf("booking: seat %s/%d already free while cancelling ticket %d", t.SeatNumber, t.EventID, ticketID)
	}
	return nil
}

// CheckIn marks a ticket as used for entry.  Exactly one concurrent
// check-in succeeds per ticket.
func (e *Engine) CheckIn(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	t, err := e.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case model.TicketCancelled:
		return nil, ErrTicketCancelled
	case model.TicketCheckedIn:
		return nil, ErrAlreadyCheckedIn
	}

	applied, err := e.tickets.SetStatus(ctx, ticketID, model.TicketBooked, model.TicketCheckedIn)
	if err != nil {
		return nil, err
	}
	if !applied {
		cur, err := e.tickets.Get(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if cur.Status == model.TicketCancelled {
			return nil, ErrTicketCancelled
		}
		return nil, ErrAlreadyCheckedIn
	}

	t.Status = model.TicketCheckedIn
	return t, nil
}

// VerifyToken checks a presented entry token and returns the live
// ticket it names.  A verified token for a cancelled ticket is still
// rejected: revocation wins over cryptographic validity.
func (e *Engine) VerifyToken(ctx context.Context, token string) (*model.Ticket, error) {
	claims, err := e.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	t, err := e.tickets.Get(ctx, claims.TicketID)
	if err != nil {
		return nil, err
	}
	if t.EventID != claims.EventID || t.SeatNumber != claims.SeatNumber {
		return nil, ErrInvalidToken
	}
	if t.Status == model.TicketCancelled {
		return nil, ErrTicketCancelled
	}
	return t, nil
}
