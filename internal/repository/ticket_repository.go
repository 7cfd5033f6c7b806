package repository

import (
	"context"
	"database/sql"

	"github.com/tickethub/tickethub/internal/model"
)

// TicketRepo is the ticket ledger: one row per successful booking,
// never deleted.  Status changes go through the same compare-and-swap
// discipline as seat occupancy so that cancellation stays idempotent
// under concurrent requests.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// Create inserts a ticket row and fills in its generated ID.  It
// rejects negative prices and missing event/seat/holder references
// with ErrValidation before touching the database.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	if t.PriceCents < 0 || t.EventID == 0 || t.SeatNumber == "" || t.HolderID == 0 {
		return ErrValidation
	}
	status := t.Status
	if status == "" {
		status = model.TicketBooked
	}
	const q = `INSERT INTO tickets (event_id, seat_number, holder_id, price_cents, status, token)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.EventID, t.SeatNumber, t.HolderID, t.PriceCents, string(status), t.Token)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = status
	return nil
}

// Get retrieves a ticket by ID, returning ErrTicketNotFound when no
// row exists.
func (r *TicketRepo) Get(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `SELECT id, event_id, seat_number, holder_id, price_cents, status, token, created_at, updated_at
	           FROM tickets WHERE id = ?`
	var t model.Ticket
	var status string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.EventID, &t.SeatNumber, &t.HolderID, &t.PriceCents,
		&status, &t.Token, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	t.Status = model.TicketStatus(status)
	return &t, nil
}

// SetStatus atomically transitions a ticket from expected to next.
// It reports applied=false with no side effect when the current status
// differs from expected; callers re-read the ticket to find out why.
func (r *TicketRepo) SetStatus(ctx context.Context, id uint64, expected, next model.TicketStatus) (bool, error) {
	const q = `UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(next), id, string(expected))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetToken stores the signed entry token issued for a ticket.  The
// token is derivable from the ticket's identity, so this column is a
// cache for listing endpoints rather than a source of truth.
func (r *TicketRepo) SetToken(ctx context.Context, id uint64, token string) error {
	const q = `UPDATE tickets SET token = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, token, id)
	return err
}

// ListByHolder returns all tickets of a user, newest first.
func (r *TicketRepo) ListByHolder(ctx context.Context, holderID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, event_id, seat_number, holder_id, price_cents, status, token, created_at, updated_at
	           FROM tickets WHERE holder_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, holderID)
}

// ListByEvent returns all tickets of an event, newest first.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, event_id, seat_number, holder_id, price_cents, status, token, created_at, updated_at
	           FROM tickets WHERE event_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, eventID)
}

func (r *TicketRepo) list(ctx context.Context, q string, arg uint64) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		var status string
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.SeatNumber, &t.HolderID, &t.PriceCents,
			&status, &t.Token, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		t.Status = model.TicketStatus(status)
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// RevenueByEvent sums the price paid over all non-cancelled tickets of
// an event.  Cancelled tickets stay in the table but never count.
func (r *TicketRepo) RevenueByEvent(ctx context.Context, eventID uint64) (int64, error) {
	const q = `SELECT COALESCE(SUM(price_cents), 0) FROM tickets
	           WHERE event_id = ? AND status != 'CANCELLED'`
	var total int64
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountLiveByEvent returns the number of non-cancelled tickets of an
// event.  Used by the reconciliation worker to validate the occupancy
// invariant against the seat table.
func (r *TicketRepo) CountLiveByEvent(ctx context.Context, eventID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM tickets WHERE event_id = ? AND status != 'CANCELLED'`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
