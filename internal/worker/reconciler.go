// Package worker runs scheduled background jobs.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tickethub/tickethub/internal/repository"
)

// Reconciler periodically cross-checks seat occupancy against the
// ticket ledger. A failed compensating rollback can leave a seat
// occupied with no live ticket; the sweep makes such drift visible in
// the logs instead of letting it hide until an event sells out.
type Reconciler struct {
	events   *repository.EventRepo
	seats    *repository.SeatRepo
	tickets  *repository.TicketRepo
	refresh  *repository.TokenRepo
	interval time.Duration

	scheduler gocron.Scheduler
}

func NewReconciler(events *repository.EventRepo, seats *repository.SeatRepo, tickets *repository.TicketRepo, refresh *repository.TokenRepo, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{events: events, seats: seats, tickets: tickets, refresh: refresh, interval: interval}
}

// Start schedules the sweep and returns immediately.
func (r *Reconciler) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			r.Sweep(ctx)
		}),
	)
	if err != nil {
		return err
	}
	s.Start()
	r.scheduler = s
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep.
func (r *Reconciler) Stop() {
	if r.scheduler != nil {
		_ = r.scheduler.Shutdown()
	}
}

// Sweep compares occupied seat counts with live ticket counts for
// every event and logs each mismatch. It repairs nothing on its own:
// drift needs a human decision about which side is right.
func (r *Reconciler) Sweep(ctx context.Context) {
	ids, err := r.events.ListIDs(ctx)
	if err != nil {
		log.Printf("reconciler: list events failed: %v", err)
		return
	}
	mismatches := 0
	for _, id := range ids {
		occupied, err := r.seats.CountOccupied(ctx, id)
		if err != nil {
			log.Printf("reconciler: count occupied for event %d failed: %v", id, err)
			continue
		}
		live, err := r.tickets.CountLiveByEvent(ctx, id)
		if err != nil {
			log.Printf("reconciler: count live tickets for event %d failed: %v", id, err)
			continue
		}
		if occupied != live {
			mismatches++
			log.Printf("reconciler: event %d drift: occupied_seats=%d live_tickets=%d", id, occupied, live)
		}
	}
	if mismatches > 0 {
		log.Printf("reconciler: sweep finished with %d event(s) out of step", mismatches)
	}

	if r.refresh != nil {
		// Expired refresh hashes are kept for a day past expiry so a
		// rotation race still finds the old row, then dropped.
		purged, err := r.refresh.PurgeExpired(ctx, 24*time.Hour)
		if err != nil {
			log.Printf("reconciler: purge refresh tokens failed: %v", err)
		} else if purged > 0 {
			log.Printf("reconciler: purged %d expired refresh token(s)", purged)
		}
	}
}
