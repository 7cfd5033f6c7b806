package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/tickethub/internal/model"
	"github.com/tickethub/tickethub/internal/repository"
)

// memEvents is an in-memory EventStore.
type memEvents struct {
	mu     sync.Mutex
	events map[uint64]model.Event
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[uint64]model.Event{}}
}

func (m *memEvents) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := ev
	return &cp, nil
}

func (m *memEvents) SearchEvents(_ context.Context, title, status string) ([]model.EventSummary, error) {
	return nil, nil
}

func (m *memEvents) setPrice(id uint64, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.events[id]
	ev.PriceCents = cents
	m.events[id] = ev
}

type seatKey struct {
	eventID uint64
	number  string
}

// memSeats is an in-memory InventoryStore whose TrySetOccupied is
// atomic under a mutex, mirroring a conditional UPDATE.
type memSeats struct {
	mu    sync.Mutex
	seats map[seatKey]*model.Seat
	// failRelease forces release flips (true -> false) to error.
	failRelease bool
}

func newMemSeats() *memSeats {
	return &memSeats{seats: map[seatKey]*model.Seat{}}
}

func (m *memSeats) add(eventID uint64, numbers ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range numbers {
		m.seats[seatKey{eventID, n}] = &model.Seat{
			ID:         uint64(len(m.seats) + i + 1),
			EventID:    eventID,
			SeatNumber: n,
		}
	}
}

func (m *memSeats) SeatExists(_ context.Context, eventID uint64, seatNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seats[seatKey{eventID, seatNumber}]
	return ok, nil
}

func (m *memSeats) TrySetOccupied(_ context.Context, eventID uint64, seatNumber string, expected, next bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRelease && !next {
		return false, errors.New("inventory write failed")
	}
	s, ok := m.seats[seatKey{eventID, seatNumber}]
	if !ok {
		return false, repository.ErrSeatNotFound
	}
	if s.Occupied != expected {
		return false, nil
	}
	s.Occupied = next
	if !next {
		s.TicketID = nil
	}
	return true, nil
}

func (m *memSeats) LinkTicket(_ context.Context, eventID uint64, seatNumber string, ticketID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.seats[seatKey{eventID, seatNumber}]; ok && s.Occupied {
		id := ticketID
		s.TicketID = &id
	}
	return nil
}

func (m *memSeats) CountAvailable(_ context.Context, eventID uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint32
	for k, s := range m.seats {
		if k.eventID == eventID && !s.Occupied {
			n++
		}
	}
	return n, nil
}

func (m *memSeats) ListByEvent(_ context.Context, eventID uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Seat
	for k, s := range m.seats {
		if k.eventID == eventID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSeats) occupied(eventID uint64, seatNumber string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[seatKey{eventID, seatNumber}].Occupied
}

// memLedger is an in-memory TicketLedger with CAS status updates.
type memLedger struct {
	mu      sync.Mutex
	nextID  uint64
	tickets map[uint64]*model.Ticket
	// failCreate makes the next Create calls error.
	failCreate bool
}

func newMemLedger() *memLedger {
	return &memLedger{nextID: 1, tickets: map[uint64]*model.Ticket{}}
}

func (m *memLedger) Create(_ context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("ledger write failed")
	}
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now().UTC()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *memLedger) Get(_ context.Context, id uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memLedger) SetStatus(_ context.Context, id uint64, from, to model.TicketStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (m *memLedger) SetToken(_ context.Context, id uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[id]; ok {
		t.Token = token
	}
	return nil
}

func (m *memLedger) ListByHolder(_ context.Context, holderID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.HolderID == holderID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memLedger) ListByEvent(_ context.Context, eventID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memLedger) RevenueByEvent(_ context.Context, eventID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.tickets {
		if t.EventID == eventID && t.Status != model.TicketCancelled {
			sum += t.PriceCents
		}
	}
	return sum, nil
}

// staticAuth grants the holder plus a fixed set of admin IDs.
type staticAuth struct {
	admins map[uint64]bool
}

func (a staticAuth) IsOwnerOrAdmin(_ context.Context, userID, holderID uint64) (bool, error) {
	if userID == holderID {
		return true, nil
	}
	return a.admins[userID], nil
}

type fixture struct {
	events *memEvents
	seats  *memSeats
	ledger *memLedger
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := newMemEvents()
	seats := newMemSeats()
	ledger := newMemLedger()
	tokens := NewTokenService("test-secret")
	eng := NewEngine(events, seats, ledger, staticAuth{admins: map[uint64]bool{99: true}}, tokens)
	return &fixture{events: events, seats: seats, ledger: ledger, engine: eng}
}

func (f *fixture) addEvent(id uint64, priceCents int64, startsIn time.Duration, seatNumbers ...string) {
	f.events.mu.Lock()
	f.events.events[id] = model.Event{
		ID:         id,
		Title:      fmt.Sprintf("event %d", id),
		StartsAt:   time.Now().UTC().Add(startsIn),
		PriceCents: priceCents,
		SeatCount:  uint32(len(seatNumbers)),
	}
	f.events.mu.Unlock()
	f.seats.add(id, seatNumbers...)
}

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 2500, time.Hour, "S1", "S2")

	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	assert.Equal(t, model.TicketBooked, ticket.Status)
	assert.Equal(t, int64(2500), ticket.PriceCents)
	assert.Equal(t, uint64(42), ticket.HolderID)
	assert.NotEmpty(t, ticket.Token)
	assert.True(t, f.seats.occupied(1, "S1"))
}

func TestBookUnknownEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Book(context.Background(), 7, "S1", 42)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestBookUnknownSeat(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 2500, time.Hour, "S1")

	_, err := f.engine.Book(context.Background(), 1, "S9", 42)
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
}

func TestBookEventInPast(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 2500, -time.Minute, "S1")

	_, err := f.engine.Book(context.Background(), 1, "S1", 42)
	assert.ErrorIs(t, err, ErrEventInPast)
	assert.False(t, f.seats.occupied(1, "S1"))
}

func TestBookOccupiedSeat(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 2500, time.Hour, "S1")

	_, err := f.engine.Book(context.Background(), 1, "S1", 1)
	require.NoError(t, err)

	_, err = f.engine.Book(context.Background(), 1, "S1", 2)
	assert.ErrorIs(t, err, ErrSeatUnavailable)
}

// One seat, many concurrent bookers: exactly one wins.
func TestBookSingleWinnerPerSeat(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")

	const contenders = 32
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.Book(context.Background(), 1, "S1", uint64(i+1))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrSeatUnavailable)
		}
	}
	assert.Equal(t, 1, wins)
}

// More bookers than seats: total successes never exceed capacity.
func TestBookNeverOversells(t *testing.T) {
	f := newFixture(t)
	numbers := make([]string, 10)
	for i := range numbers {
		numbers[i] = fmt.Sprintf("S%d", i+1)
	}
	f.addEvent(1, 1000, time.Hour, numbers...)

	const bookers = 40
	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seat := numbers[i%len(numbers)]
			if _, err := f.engine.Book(context.Background(), 1, seat, uint64(i+1)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, int64(len(numbers)))
	avail, err := f.seats.CountAvailable(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(numbers))-uint32(successes), avail)
}

// A ledger failure after the occupancy flip must release the seat.
func TestBookRollsBackOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	f.ledger.failCreate = true

	_, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.Error(t, err)

	var se *StorageError
	assert.False(t, errors.As(err, &se), "seat released, so no storage fault expected")
	assert.False(t, f.seats.occupied(1, "S1"))

	// The seat is immediately bookable again.
	f.ledger.failCreate = false
	_, err = f.engine.Book(context.Background(), 1, "S1", 43)
	assert.NoError(t, err)
}

// When the compensating release also fails, the fault is surfaced
// with enough detail to repair by hand.
func TestBookSurfacesStorageFault(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	f.ledger.failCreate = true
	f.seats.failRelease = true

	_, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uint64(1), se.EventID)
	assert.Equal(t, "S1", se.SeatNumber)
	assert.NotEmpty(t, se.AttemptID)
}

func TestCancelByHolder(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, 42))

	got, err := f.ledger.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, got.Status)
	assert.False(t, f.seats.occupied(1, "S1"))
}

func TestCancelByAdmin(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	assert.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, 99))
}

func TestCancelByStranger(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	err = f.engine.Cancel(context.Background(), ticket.ID, 7)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.True(t, f.seats.occupied(1, "S1"))
}

func TestCancelIsIdempotentlyRejected(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, 42))
	err = f.engine.Cancel(context.Background(), ticket.ID, 42)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// The second attempt must not disturb the freed seat.
	assert.False(t, f.seats.occupied(1, "S1"))
}

func TestCancelCheckedInTicket(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)
	_, err = f.engine.CheckIn(context.Background(), ticket.ID)
	require.NoError(t, err)

	err = f.engine.Cancel(context.Background(), ticket.ID, 42)
	assert.ErrorIs(t, err, ErrCannotCancelCheckedIn)
	assert.True(t, f.seats.occupied(1, "S1"))
}

func TestCancelUnknownTicket(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Cancel(context.Background(), 404, 42)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
}

// A cancelled seat can be rebooked and the new ticket is priced at
// the event's current price, while the old ticket keeps its own.
func TestRebookAfterCancelFreezesNewPrice(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")

	first, err := f.engine.Book(context.Background(), 1, "S1", 1)
	require.NoError(t, err)
	require.NoError(t, f.engine.Cancel(context.Background(), first.ID, 1))

	f.events.setPrice(1, 1500)

	second, err := f.engine.Book(context.Background(), 1, "S1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), second.PriceCents)

	old, err := f.ledger.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), old.PriceCents)
}

func TestCheckInLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	got, err := f.engine.CheckIn(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, got.Status)

	_, err = f.engine.CheckIn(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckInCancelledTicket(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)
	require.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, 42))

	_, err = f.engine.CheckIn(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, ErrTicketCancelled)
}

// Exactly one of many concurrent check-ins succeeds.
func TestCheckInSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	const scans = 16
	var wg sync.WaitGroup
	results := make([]error, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.CheckIn(context.Background(), ticket.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestVerifyTokenAgainstLedger(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 1000, time.Hour, "S1")
	ticket, err := f.engine.Book(context.Background(), 1, "S1", 42)
	require.NoError(t, err)

	got, err := f.engine.VerifyToken(context.Background(), ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	// Revocation beats a valid signature.
	require.NoError(t, f.engine.Cancel(context.Background(), ticket.ID, 42))
	_, err = f.engine.VerifyToken(context.Background(), ticket.Token)
	assert.ErrorIs(t, err, ErrTicketCancelled)
}

// Two holders race over two seats, one cancels, a third rebooks.
func TestBookingScenario(t *testing.T) {
	f := newFixture(t)
	f.addEvent(1, 2000, time.Hour, "S1", "S2")
	ctx := context.Background()

	a, err := f.engine.Book(ctx, 1, "S1", 1)
	require.NoError(t, err)

	_, err = f.engine.Book(ctx, 1, "S1", 2)
	require.ErrorIs(t, err, ErrSeatUnavailable)

	b, err := f.engine.Book(ctx, 1, "S2", 2)
	require.NoError(t, err)

	require.NoError(t, f.engine.Cancel(ctx, a.ID, 1))

	c, err := f.engine.Book(ctx, 1, "S1", 3)
	require.NoError(t, err)

	rev, err := f.ledger.RevenueByEvent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, b.PriceCents+c.PriceCents, rev)

	avail, err := f.seats.CountAvailable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), avail)
}
