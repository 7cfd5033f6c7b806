package repository // repository for seat occupancy persistence

import (
	"context"
	"database/sql"

	"github.com/tickethub/tickethub/internal/model"
)

// SeatRepo is the inventory store: the durable record of each event's
// seats and their occupancy flag.  The only mutation it offers is a
// compare-and-swap on a single seat's flag, which is the sole
// concurrency-control mechanism for bookings.  No in-process lock can
// serve here because multiple server instances mutate the same rows.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// TrySetOccupied atomically flips a seat's occupancy flag from
// expected to next.  It returns applied=false with no side effect when
// the flag does not currently equal expected; that outcome is normal
// under contention.  When next is false the ticket back-reference is
// cleared in the same statement.  ErrSeatNotFound is returned when the
// (event, seat number) pair does not exist at all.
func (r *SeatRepo) TrySetOccupied(ctx context.Context, eventID uint64, seatNumber string, expected, next bool) (bool, error) {
	var q string
	if next {
		q = `UPDATE seats SET occupied = ?, updated_at = CURRENT_TIMESTAMP
		     WHERE event_id = ? AND seat_number = ? AND occupied = ?`
	} else {
		q = `UPDATE seats SET occupied = ?, ticket_id = NULL, updated_at = CURRENT_TIMESTAMP
		     WHERE event_id = ? AND seat_number = ? AND occupied = ?`
	}
	res, err := r.db.ExecContext(ctx, q, next, eventID, seatNumber, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Zero rows means either the flag did not match or the seat does
	// not exist; re-check existence to tell the two apart.
	exists, err := r.SeatExists(ctx, eventID, seatNumber)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrSeatNotFound
	}
	return false, nil
}

// SeatExists reports whether the seat number is declared for the event.
func (r *SeatRepo) SeatExists(ctx context.Context, eventID uint64, seatNumber string) (bool, error) {
	const q = `SELECT 1 FROM seats WHERE event_id = ? AND seat_number = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, eventID, seatNumber).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LinkTicket records the back-reference from an occupied seat to the
// ticket holding it.  The reference is a convenience pointer; the
// ledger remains the source of truth for which ticket is live.
func (r *SeatRepo) LinkTicket(ctx context.Context, eventID uint64, seatNumber string, ticketID uint64) error {
	const q = `UPDATE seats SET ticket_id = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE event_id = ? AND seat_number = ? AND occupied = 1`
	_, err := r.db.ExecContext(ctx, q, ticketID, eventID, seatNumber)
	return err
}

// ListByEvent returns all seats of an event ordered by their numeric
// position (seat numbers are "S<n>", so length-then-lexicographic
// ordering yields S1, S2, ... S10, S11).
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT id, event_id, seat_number, occupied, ticket_id
	           FROM seats WHERE event_id = ?
	           ORDER BY LENGTH(seat_number), seat_number`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		var ticketID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.EventID, &s.SeatNumber, &s.Occupied, &ticketID); err != nil {
			return nil, err
		}
		if ticketID.Valid {
			tid := uint64(ticketID.Int64)
			s.TicketID = &tid
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CountAvailable returns the number of unoccupied seats of an event.
func (r *SeatRepo) CountAvailable(ctx context.Context, eventID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE event_id = ? AND occupied = 0`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountOccupied returns the number of occupied seats of an event.  The
// reconciliation worker compares this against the ledger's live ticket
// count.
func (r *SeatRepo) CountOccupied(ctx context.Context, eventID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE event_id = ? AND occupied = 1`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
