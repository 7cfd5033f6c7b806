package repository // repository provides raw-SQL data access for events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tickethub/tickethub/internal/model"
)

// EventRepo manages persistence for events and generates their seat
// sets.  Seats exist only as children of an event and are created in
// the same transaction as the event row.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new event together with its full seat set
// ("S1".."SN") in one transaction.  The seat count is fixed forever
// after this call.  On success the generated ID and DB-default
// timestamps are populated on the given Event.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	if ev.Title == "" || ev.SeatCount == 0 || ev.PriceCents < 0 {
		return ErrValidation
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO events (organizer_id, title, description, venue, starts_at, price_cents, seat_count)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		ev.OrganizerID, ev.Title, ev.Description, ev.Venue,
		ev.StartsAt.UTC().Format("2006-01-02 15:04:05"), ev.PriceCents, ev.SeatCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)

	// Generate the seat rows in a single bulk insert.  Seat numbers
	// follow the "S<n>" convention, 1-based.
	query := `INSERT INTO seats (event_id, seat_number) VALUES `
	args := make([]interface{}, 0, int(ev.SeatCount)*2)
	for i := uint32(0); i < ev.SeatCount; i++ {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, ev.ID, fmt.Sprintf("S%d", i+1))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	// Read back DB-defaulted fields.
	const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetEvent retrieves an event by ID.  It returns ErrEventNotFound when
// no matching row exists.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, venue, starts_at, price_cents, seat_count, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Venue,
		&ev.StartsAt, &ev.PriceCents, &ev.SeatCount, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	ev.StartsAt = ev.StartsAt.UTC()
	return &ev, nil
}

// ListIDs returns the IDs of all events, oldest first.
func (r *EventRepo) ListIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdatePrice sets a new unit price for future bookings.  Tickets that
// were already issued keep the price they were booked at.
func (r *EventRepo) UpdatePrice(ctx context.Context, id uint64, priceCents int64) error {
	if priceCents < 0 {
		return ErrValidation
	}
	const q = `UPDATE events SET price_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, priceCents, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}
