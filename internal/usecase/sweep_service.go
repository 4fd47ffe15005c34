package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/storage"
)

type SweepReport struct {
	Scanned   int
	Advanced  int
	Skipped   int
	Failed    int
	StartedAt time.Time
	Elapsed   time.Duration
}

type gameweekEngine interface {
	AdvanceToLocked(ctx context.Context, roomID string, gameweek int, force bool) (LockSummary, error)
	Resolve(ctx context.Context, roomID string, gameweek int) (ResolveSummary, error)
}

type proposalExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// SweepService runs the periodic passes that move rooms forward without
// user traffic: locking due gameweeks, resolving finalized ones and
// expiring stale deal proposals. Rooms fan out over a bounded worker pool;
// per-room conflicts are expected mid-sweep and never fail the pass.
type SweepService struct {
	store   storage.Store
	engine  gameweekEngine
	deals   proposalExpirer
	workers int
	logger  *logging.Logger
	now     func() time.Time
}

func NewSweepService(store storage.Store, engine gameweekEngine, deals proposalExpirer, workers int, logger *logging.Logger) *SweepService {
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &SweepService{
		store:   store,
		engine:  engine,
		deals:   deals,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}
}

// LockSweep locks every in-progress room whose gameweek lock time has
// passed. Not-yet-due and already-locked rooms count as skipped.
func (s *SweepService) LockSweep(ctx context.Context) (SweepReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SweepService.LockSweep")
	defer span.End()

	return s.sweepRooms(ctx, "lock", room.PhasePicksOpen, func(ctx context.Context, r room.Room) error {
		_, err := s.engine.AdvanceToLocked(ctx, r.ID, r.CurrentGameweek, false)
		return err
	})
}

// ResolveSweep resolves every locked room whose counted fixtures are all
// final. Rooms still waiting on results count as skipped.
func (s *SweepService) ResolveSweep(ctx context.Context) (SweepReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SweepService.ResolveSweep")
	defer span.End()

	return s.sweepRooms(ctx, "resolve", room.PhaseLocked, func(ctx context.Context, r room.Room) error {
		_, err := s.engine.Resolve(ctx, r.ID, r.CurrentGameweek)
		return err
	})
}

// ExpireSweep closes deal proposals that ran past their voting deadline.
func (s *SweepService) ExpireSweep(ctx context.Context) (SweepReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SweepService.ExpireSweep")
	defer span.End()

	started := s.now()
	expired, err := s.deals.ExpireDue(ctx)
	report := SweepReport{
		Scanned:   expired,
		Advanced:  expired,
		StartedAt: started,
		Elapsed:   s.now().Sub(started),
	}
	if err != nil {
		report.Failed++
		return report, fmt.Errorf("expire proposals: %w", err)
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "deal proposals expired", "count", expired)
	}

	return report, nil
}

func (s *SweepService) sweepRooms(
	ctx context.Context,
	name string,
	phase room.GameweekPhase,
	advance func(ctx context.Context, r room.Room) error,
) (SweepReport, error) {
	started := s.now()

	rooms, err := s.store.Rooms().ListByStatus(ctx, room.StatusInProgress)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list rooms: %w", err)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return SweepReport{}, fmt.Errorf("start worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		advanced int
		skipped  int
		failed   int
	)
	scanned := 0
	for _, r := range rooms {
		if r.ArchivedAt != nil || r.CurrentPhase != phase {
			continue
		}
		scanned++

		r := r
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()

			err := advance(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				advanced++
			case errors.Is(err, ErrStateConflict):
				// Another actor got there first, or the room is simply
				// not ready yet. Next pass picks it up.
				skipped++
			default:
				failed++
				s.logger.ErrorContext(ctx, "room sweep failed",
					"sweep", name, "room_id", r.ID, "gameweek", r.CurrentGameweek, "error", err)
			}
		}); err != nil {
			wg.Done()
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}
	wg.Wait()

	report := SweepReport{
		Scanned:   scanned,
		Advanced:  advanced,
		Skipped:   skipped,
		Failed:    failed,
		StartedAt: started,
		Elapsed:   s.now().Sub(started),
	}

	if scanned > 0 {
		s.logger.InfoContext(ctx, "room sweep finished",
			"sweep", name,
			"scanned", report.Scanned,
			"advanced", report.Advanced,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"elapsed_ms", report.Elapsed.Milliseconds(),
		)
	}

	return report, nil
}
