package repository

import (
	"context"
	"strings"

	"github.com/tickethub/tickethub/internal/model"
)

// SearchEvents returns event summaries filtered by title substring and
// temporal status.  Status is one of "upcoming", "past" or "all":
// upcoming means starts_at > now and sorts soonest first, past means
// starts_at <= now and sorts most recent first.  The title match is
// case-insensitive.  Availability is computed in the same query so a
// listing never disagrees with the seat table it was read from.
func (r *EventRepo) SearchEvents(ctx context.Context, title, status string) ([]model.EventSummary, error) {
	where := []string{}
	args := []any{}

	order := "e.starts_at ASC"
	switch strings.ToLower(status) {
	case "past":
		where = append(where, "e.starts_at <= UTC_TIMESTAMP()")
		order = "e.starts_at DESC"
	case "all", "":
	default: // "upcoming"
		where = append(where, "e.starts_at > UTC_TIMESTAMP()")
	}

	if title != "" {
		where = append(where, "LOWER(e.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(title)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	q := `SELECT
			e.id,
			e.title,
			e.venue,
			e.starts_at,
			e.price_cents,
			e.seat_count,
			e.seat_count - COUNT(CASE WHEN s.occupied = 1 THEN 1 END) AS available
		FROM events e
		LEFT JOIN seats s ON s.event_id = e.id
		WHERE ` + cond + `
		GROUP BY e.id, e.title, e.venue, e.starts_at, e.price_cents, e.seat_count
		ORDER BY ` + order

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.EventSummary, 0)
	for rows.Next() {
		var s model.EventSummary
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Venue, &s.StartsAt,
			&s.PriceCents, &s.SeatCount, &s.AvailableSeats,
		); err != nil {
			return nil, err
		}
		s.StartsAt = s.StartsAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
