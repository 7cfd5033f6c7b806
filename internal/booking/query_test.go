package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub/internal/repository"
)

func newQueryFixture(t *testing.T) (*fixture, *Query) {
	t.Helper()
	f := newFixture(t)
	return f, NewQuery(f.events, f.seats, f.ledger)
}

func TestAvailableSeats(t *testing.T) {
	f, q := newQueryFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1", "S2", "S3")
	ctx := context.Background()

	_, err := f.engine.Book(ctx, 1, "S2", 42)
	require.NoError(t, err)

	free, err := q.AvailableSeats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, free, 2)
	for _, s := range free {
		assert.False(t, s.Occupied)
		assert.NotEqual(t, "S2", s.SeatNumber)
	}
}

func TestAvailableSeatsUnknownEvent(t *testing.T) {
	_, q := newQueryFixture(t)
	_, err := q.AvailableSeats(context.Background(), 7)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestRevenueExcludesCancellations(t *testing.T) {
	f, q := newQueryFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1", "S2", "S3")
	ctx := context.Background()

	t1, err := f.engine.Book(ctx, 1, "S1", 1)
	require.NoError(t, err)
	_, err = f.engine.Book(ctx, 1, "S2", 2)
	require.NoError(t, err)
	t3, err := f.engine.Book(ctx, 1, "S3", 3)
	require.NoError(t, err)

	// Checked-in tickets keep counting; cancelled ones drop out.
	_, err = f.engine.CheckIn(ctx, t3.ID)
	require.NoError(t, err)
	require.NoError(t, f.engine.Cancel(ctx, t1.ID, 1))

	rev, err := q.Revenue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), rev)
}

func TestTicketOwnershipCheck(t *testing.T) {
	f, q := newQueryFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ctx := context.Background()

	ticket, err := f.engine.Book(ctx, 1, "S1", 42)
	require.NoError(t, err)

	got, err := q.Ticket(ctx, ticket.ID, 42, false)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	_, err = q.Ticket(ctx, ticket.ID, 7, false)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = q.Ticket(ctx, ticket.ID, 7, true)
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	f, q := newQueryFixture(t)
	f.addEvent(1, 500, time.Hour, "S1", "S2", "S3", "S4")
	ctx := context.Background()

	t1, err := f.engine.Book(ctx, 1, "S1", 1)
	require.NoError(t, err)
	_, err = f.engine.Book(ctx, 1, "S2", 2)
	require.NoError(t, err)
	require.NoError(t, f.engine.Cancel(ctx, t1.ID, 1))

	stats, err := q.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stats.SeatCount)
	assert.Equal(t, uint32(3), stats.AvailableSeats)
	assert.Equal(t, 1, stats.TicketsSold)
	assert.Equal(t, int64(500), stats.RevenueCents)
}
