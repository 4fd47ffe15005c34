package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/storage"
)

// gameweekReresolver is the slice of EngineService outcome overrides need
// to replay an already settled gameweek.
type gameweekReresolver interface {
	Reresolve(ctx context.Context, roomID string, gameweek int) (ResolveSummary, error)
}

// FixtureService is the result-feed boundary: outcomes are written once,
// and correcting one afterwards is an explicit override that replays every
// room already resolved against the old result.
type FixtureService struct {
	store      storage.Store
	reresolver gameweekReresolver
	logger     *logging.Logger
	now        func() time.Time
}

func NewFixtureService(store storage.Store, reresolver gameweekReresolver, logger *logging.Logger) *FixtureService {
	if logger == nil {
		logger = logging.Default()
	}

	return &FixtureService{
		store:      store,
		reresolver: reresolver,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *FixtureService) ListByLeagueGameweek(ctx context.Context, leagueID string, gameweek int) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.ListByLeagueGameweek")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return nil, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	if gameweek < 1 {
		return nil, fmt.Errorf("%w: gameweek must be >= 1", ErrInvalidInput)
	}

	fixtures, err := s.store.Fixtures().ListByLeagueGameweek(ctx, leagueID, gameweek)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	return fixtures, nil
}

// RecordOutcome writes a fixture's final result. Rewriting an outcome is
// rejected; corrections go through OverrideOutcome.
func (s *FixtureService) RecordOutcome(ctx context.Context, fixtureID, rawOutcome string) (fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.RecordOutcome")
	defer span.End()

	f, outcome, err := s.loadForWrite(ctx, fixtureID, rawOutcome)
	if err != nil {
		return fixture.Fixture{}, err
	}
	if f.Final() {
		return fixture.Fixture{}, ErrOutcomeAlreadySet
	}

	now := s.now()
	if err := s.store.Fixtures().SetOutcome(ctx, f.ID, outcome, now); err != nil {
		return fixture.Fixture{}, fmt.Errorf("set outcome: %w", err)
	}

	f.Outcome = outcome
	f.FinishedAt = &now

	s.logger.InfoContext(ctx, "fixture outcome recorded",
		"fixture_id", f.ID,
		"league_id", f.LeagueID,
		"gameweek", f.Gameweek,
		"outcome", string(outcome),
	)

	return f, nil
}

// OverrideOutcome corrects a previously recorded result and replays the
// affected gameweek in every room of the league that already resolved it.
// Each replayed room gets an outcome_overridden event before resolution
// reruns so the audit trail explains the membership churn.
func (s *FixtureService) OverrideOutcome(ctx context.Context, fixtureID, rawOutcome string) (fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.OverrideOutcome")
	defer span.End()

	f, outcome, err := s.loadForWrite(ctx, fixtureID, rawOutcome)
	if err != nil {
		return fixture.Fixture{}, err
	}
	if !f.Final() {
		return fixture.Fixture{}, fmt.Errorf("%w: fixture has no outcome to override", ErrStateConflict)
	}
	previous := f.Outcome
	if previous == outcome {
		return f, nil
	}

	now := s.now()
	if err := s.store.Fixtures().SetOutcome(ctx, f.ID, outcome, now); err != nil {
		return fixture.Fixture{}, fmt.Errorf("set outcome: %w", err)
	}
	f.Outcome = outcome
	f.FinishedAt = &now

	affected, err := s.affectedRooms(ctx, f)
	if err != nil {
		return fixture.Fixture{}, err
	}

	for _, r := range affected {
		err := s.store.Within(ctx, func(tx storage.Store) error {
			return appendEvent(ctx, tx, r.ID, now, timeline.KindOutcomeOverridden, map[string]any{
				"fixture_id":       f.ID,
				"gameweek":         f.Gameweek,
				"previous_outcome": string(previous),
				"new_outcome":      string(outcome),
			})
		})
		if err != nil {
			return fixture.Fixture{}, err
		}

		if _, err := s.reresolver.Reresolve(ctx, r.ID, f.Gameweek); err != nil {
			// Replays where outcomes went back to not-final stop at the
			// finality gate; the override itself already stuck.
			if errors.Is(err, ErrFixturesNotFinal) {
				s.logger.WarnContext(ctx, "re-resolution deferred until fixtures final",
					"room_id", r.ID, "gameweek", f.Gameweek)
				continue
			}
			return fixture.Fixture{}, fmt.Errorf("re-resolve room %s: %w", r.ID, err)
		}
	}

	s.logger.WarnContext(ctx, "fixture outcome overridden",
		"fixture_id", f.ID,
		"previous_outcome", string(previous),
		"new_outcome", string(outcome),
		"rooms_replayed", len(affected),
	)

	return f, nil
}

func (s *FixtureService) loadForWrite(ctx context.Context, fixtureID, rawOutcome string) (fixture.Fixture, fixture.Outcome, error) {
	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return fixture.Fixture{}, "", fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	outcome, ok := fixture.ParseOutcome(rawOutcome)
	if !ok || outcome == fixture.OutcomeUnplayed {
		return fixture.Fixture{}, "", fmt.Errorf("%w: outcome must be home_win, away_win or draw", ErrInvalidInput)
	}

	f, exists, err := s.store.Fixtures().GetByID(ctx, fixtureID)
	if err != nil {
		return fixture.Fixture{}, "", fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return fixture.Fixture{}, "", fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
	}

	return f, outcome, nil
}

// affectedRooms finds rooms in the fixture's league whose resolution has
// already consumed the gameweek being corrected.
func (s *FixtureService) affectedRooms(ctx context.Context, f fixture.Fixture) ([]room.Room, error) {
	rooms, err := s.store.Rooms().ListByStatus(ctx, room.StatusInProgress, room.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	var affected []room.Room
	for _, r := range rooms {
		if r.LeagueID != f.LeagueID || r.ArchivedAt != nil {
			continue
		}
		lastResolved := r.CurrentGameweek
		if r.Status == room.StatusInProgress && r.CurrentPhase != room.PhaseResolved {
			lastResolved = r.CurrentGameweek - 1
		}
		if f.Gameweek == lastResolved {
			affected = append(affected, r)
		}
	}

	return affected, nil
}
