package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
	"github.com/lastpick/survival-pool/internal/storage"
)

type SubmitPickInput struct {
	RoomID   string
	UserID   string
	Gameweek int
	TeamID   string
}

// PickService owns pick submission and the derived used-team set. Picks
// stay pending and overwritable until the gameweek locks.
type PickService struct {
	store    storage.Store
	locks    *roomlock.Registry
	lockLead time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewPickService(store storage.Store, locks *roomlock.Registry, lockLead time.Duration, logger *logging.Logger) *PickService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PickService{
		store:    store,
		locks:    locks,
		lockLead: lockLead,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *PickService) Submit(ctx context.Context, input SubmitPickInput) (pick.Pick, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Submit")
	defer span.End()

	input.RoomID = strings.TrimSpace(input.RoomID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.TeamID = strings.TrimSpace(input.TeamID)

	if input.RoomID == "" || input.UserID == "" || input.TeamID == "" {
		return pick.Pick{}, fmt.Errorf("%w: room_id, user_id and team_id are required", ErrInvalidInput)
	}
	if input.Gameweek < 1 {
		return pick.Pick{}, fmt.Errorf("%w: gameweek must be >= 1", ErrInvalidInput)
	}

	var submitted pick.Pick
	err := s.locks.Do(input.RoomID, func() error {
		r, exists, err := s.store.Rooms().GetByID(ctx, input.RoomID)
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: room %s", ErrNotFound, input.RoomID)
		}
		if r.Status != room.StatusInProgress {
			return ErrRoomNotInProgress
		}
		if input.Gameweek != r.CurrentGameweek {
			return fmt.Errorf("%w: gameweek %d is not open for picks", ErrInvalidInput, input.Gameweek)
		}
		if r.CurrentPhase != room.PhasePicksOpen {
			return ErrPicksLocked
		}

		member, exists, err := s.store.Rooms().GetMember(ctx, input.RoomID, input.UserID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if !exists {
			return ErrNotAMember
		}
		if !member.Active() {
			return ErrAlreadyEliminated
		}

		t, exists, err := s.store.Teams().GetByID(ctx, r.LeagueID, input.TeamID)
		if err != nil {
			return fmt.Errorf("get team: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: team %s is not in league %s", ErrInvalidInput, input.TeamID, r.LeagueID)
		}

		// A submission arriving after the lock instant is rejected even
		// when the lock sweep has not run yet.
		fixtures, err := s.store.Fixtures().ListByLeagueGameweek(ctx, r.LeagueID, input.Gameweek)
		if err != nil {
			return fmt.Errorf("list fixtures: %w", err)
		}
		lockAt, ok := gameweekLockTime(fixtures, s.lockLead)
		if !ok {
			return fmt.Errorf("%w: no fixtures scheduled for gameweek %d", ErrInvalidInput, input.Gameweek)
		}
		if !s.now().Before(lockAt) {
			return ErrPicksLocked
		}

		used, err := s.usedTeams(ctx, s.store, input.RoomID, input.UserID)
		if err != nil {
			return err
		}
		if _, burned := used[t.ID]; burned {
			return ErrTeamAlreadyUsed
		}

		submitted = pick.Pick{
			RoomID:      input.RoomID,
			UserID:      input.UserID,
			Gameweek:    input.Gameweek,
			TeamID:      t.ID,
			Status:      pick.StatusPending,
			SubmittedAt: s.now(),
		}
		if err := s.store.Picks().Upsert(ctx, submitted); err != nil {
			return fmt.Errorf("upsert pick: %w", err)
		}
		return nil
	})
	if err != nil {
		return pick.Pick{}, err
	}

	s.logger.InfoContext(ctx, "pick submitted",
		"room_id", input.RoomID,
		"user_id", input.UserID,
		"gameweek", input.Gameweek,
		"team_id", input.TeamID,
	)

	return submitted, nil
}

func (s *PickService) Get(ctx context.Context, roomID, userID string, gameweek int) (pick.Pick, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.Get")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" || userID == "" {
		return pick.Pick{}, false, fmt.Errorf("%w: room_id and user_id are required", ErrInvalidInput)
	}

	p, exists, err := s.store.Picks().Get(ctx, roomID, userID, gameweek)
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("get pick: %w", err)
	}

	return p, exists, nil
}

// LockTime computes the pick deadline for a gameweek: the earliest counted
// kickoff minus the configured lead. Both DGW rules share one deadline per
// gameweek; the rules differ only in which fixtures count at resolution.
func (s *PickService) LockTime(ctx context.Context, roomID string, gameweek int) (time.Time, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.LockTime")
	defer span.End()

	r, exists, err := s.store.Rooms().GetByID(ctx, strings.TrimSpace(roomID))
	if err != nil {
		return time.Time{}, fmt.Errorf("get room: %w", err)
	}
	if !exists {
		return time.Time{}, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	fixtures, err := s.store.Fixtures().ListByLeagueGameweek(ctx, r.LeagueID, gameweek)
	if err != nil {
		return time.Time{}, fmt.Errorf("list fixtures: %w", err)
	}

	lockAt, ok := gameweekLockTime(fixtures, s.lockLead)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no fixtures scheduled for gameweek %d", ErrInvalidInput, gameweek)
	}

	return lockAt, nil
}

// UsedTeams returns the team IDs this member has burned in this room,
// derived by scanning locked picks so the set can never drift.
func (s *PickService) UsedTeams(ctx context.Context, roomID, userID string) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PickService.UsedTeams")
	defer span.End()

	used, err := s.usedTeams(ctx, s.store, strings.TrimSpace(roomID), strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(used))
	for teamID := range used {
		out = append(out, teamID)
	}
	sort.Strings(out)

	return out, nil
}

func (s *PickService) usedTeams(ctx context.Context, store storage.Store, roomID, userID string) (map[string]struct{}, error) {
	locked, err := store.Picks().ListLockedByRoomUser(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("list locked picks: %w", err)
	}

	out := make(map[string]struct{}, len(locked))
	for _, p := range locked {
		out[p.TeamID] = struct{}{}
	}

	return out, nil
}

func gameweekLockTime(fixtures []fixture.Fixture, lead time.Duration) (time.Time, bool) {
	var earliest time.Time
	for _, f := range fixtures {
		if earliest.IsZero() || f.KickoffAt.Before(earliest) {
			earliest = f.KickoffAt
		}
	}
	if earliest.IsZero() {
		return time.Time{}, false
	}

	return earliest.Add(-lead), true
}
