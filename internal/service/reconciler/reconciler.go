package reconcilerservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cartsync/internal/models"
	"cartsync/pkg/lib/logger/sl"
)

// State of one reconciliation attempt. The machine is
// IDLE -> MERGING -> {MERGED, FAILED}; IDLE is also the terminal state
// when there was nothing to merge.
type State int

const (
	StateIdle State = iota
	StateMerging
	StateMerged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMerging:
		return "merging"
	case StateMerged:
		return "merged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GuestStore is the slice of the guest cart the reconciler needs.
type GuestStore interface {
	ReadAll(ctx context.Context, guestId string) ([]models.CartEntry, error)
	Clear(ctx context.Context, guestId string) error
}

type Merger interface {
	MergeEntries(ctx context.Context, userId string, entries []models.CartEntry) (models.MergeResult, error)
}

type Outcome struct {
	State  State
	Result models.MergeResult
	Err    error
}

// Service migrates guest cart contents into the account cart at the
// authentication boundary. The guest cart is cleared if and only if the
// merge is acknowledged; every failure leaves it intact so the next
// login retries. Failures are logged, never propagated into the login
// flow.
type Service struct {
	log     *slog.Logger
	guest   GuestStore
	merger  Merger
	timeout time.Duration

	// login event ids with a merge currently in flight; a login event
	// runs the merge at most once no matter how often it is retriggered
	// while that run lasts. Entries are removed when the run completes,
	// so the map is bounded by concurrent logins, not process lifetime.
	seen sync.Map
}

func New(log *slog.Logger, guest GuestStore, merger Merger, timeout time.Duration) *Service {
	return &Service{
		log:     log,
		guest:   guest,
		merger:  merger,
		timeout: timeout,
	}
}

// Trigger starts reconciliation for a single login event and returns
// immediately; the login response is never blocked on the returned
// channel. The channel receives exactly one Outcome and is closed, so
// callers that do care (tests, metrics) can observe the result.
func (s *Service) Trigger(eventId string, userId string, guestId string) <-chan Outcome {
	const op = "service.reconciler.Trigger"
	log := s.log.With("op", op, slog.String("event_id", eventId))

	done := make(chan Outcome, 1)

	if guestId == "" {
		done <- Outcome{State: StateIdle}
		close(done)
		return done
	}

	if _, loaded := s.seen.LoadOrStore(eventId, struct{}{}); loaded {
		log.Warn("Login event already reconciled, skipping")
		done <- Outcome{State: StateIdle}
		close(done)
		return done
	}

	go s.run(done, log, eventId, userId, guestId)

	return done
}

func (s *Service) run(done chan<- Outcome, log *slog.Logger, eventId string, userId string, guestId string) {
	defer close(done)
	defer s.seen.Delete(eventId)

	// Detached from the login request on purpose: a slow or failed
	// merge must not delay the user's navigation. The timeout stands in
	// for a network-level timeout and is treated like any other failure.
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entries, err := s.guest.ReadAll(ctx, guestId)
	if err != nil {
		log.Error("Failed to read guest cart, leaving it intact", sl.Err(err))
		done <- Outcome{State: StateFailed, Err: err}
		return
	}

	if len(entries) == 0 {
		log.Info("Guest cart empty, no merge issued")
		done <- Outcome{State: StateIdle}
		return
	}

	log.Info("Merging guest cart",
		slog.String("user_id", userId),
		slog.Int("entries", len(entries)),
	)

	result, err := s.merger.MergeEntries(ctx, userId, entries)
	if err != nil {
		log.Error("Merge failed, guest cart preserved", sl.Err(err))
		done <- Outcome{State: StateFailed, Err: err}
		return
	}

	if err := s.guest.Clear(ctx, guestId); err != nil {
		// Merged but the clear failed: the guest cart survives and the
		// next login will re-merge, doubling quantities. Loud on purpose.
		log.Warn("Merge acknowledged but guest cart clear failed", sl.Err(err))
		done <- Outcome{State: StateMerged, Result: result, Err: err}
		return
	}

	log.Info("Guest cart merged and cleared",
		slog.String("user_id", userId),
		slog.Int("dropped", result.Dropped),
	)
	done <- Outcome{State: StateMerged, Result: result}
}
