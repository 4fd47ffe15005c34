package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/payment"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
	"github.com/lastpick/survival-pool/internal/storage"
)

type LockSummary struct {
	Gameweek     int
	LockedPicks  int
	AutoAssigned int
	Disqualified int
}

type ResolveSummary struct {
	Gameweek        int
	Survivors       int
	Eliminated      int
	Completed       bool
	WinnerUserIDs   []string
	AlreadyResolved bool
	RestartedRoomID string
}

// EngineService is the authoritative state machine for a room's gameweek
// cycle: lock, resolve, completion and recurring restart. Every transition
// holds the room's lock and commits through one storage transaction.
type EngineService struct {
	store       storage.Store
	locks       *roomlock.Registry
	distributor payment.Distributor
	ids         idSource
	lockLead    time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

func NewEngineService(
	store storage.Store,
	locks *roomlock.Registry,
	distributor payment.Distributor,
	ids idSource,
	lockLead time.Duration,
	logger *logging.Logger,
) *EngineService {
	if logger == nil {
		logger = logging.Default()
	}

	return &EngineService{
		store:       store,
		locks:       locks,
		distributor: distributor,
		ids:         ids,
		lockLead:    lockLead,
		logger:      logger,
		now:         time.Now,
	}
}

// AdvanceToLocked transitions a gameweek from picks_open to locked. All
// pending picks lock; active members without a pick get the room's no-pick
// policy applied. A second call makes no state change and reports
// ErrAlreadyLocked. force bypasses the time gate for operator use.
func (s *EngineService) AdvanceToLocked(ctx context.Context, roomID string, gameweek int, force bool) (LockSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EngineService.AdvanceToLocked")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return LockSummary{}, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}

	var summary LockSummary
	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			r, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}
			if r.Status != room.StatusInProgress {
				return ErrRoomNotInProgress
			}
			if gameweek != r.CurrentGameweek {
				if gameweek < r.CurrentGameweek {
					return ErrAlreadyLocked
				}
				return fmt.Errorf("%w: gameweek %d is not current", ErrInvalidInput, gameweek)
			}
			if r.CurrentPhase != room.PhasePicksOpen {
				return ErrAlreadyLocked
			}

			fixtures, err := tx.Fixtures().ListByLeagueGameweek(ctx, r.LeagueID, gameweek)
			if err != nil {
				return fmt.Errorf("list fixtures: %w", err)
			}
			lockAt, ok := gameweekLockTime(fixtures, s.lockLead)
			if !ok {
				return fmt.Errorf("%w: no fixtures scheduled for gameweek %d", ErrInvalidInput, gameweek)
			}
			if !force && s.now().Before(lockAt) {
				return ErrLockNotDue
			}

			members, err := tx.Rooms().ListMembers(ctx, roomID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}

			now := s.now()
			out := LockSummary{Gameweek: gameweek}
			for _, m := range sortedBySeq(members) {
				if !m.Active() {
					continue
				}

				p, exists, err := tx.Picks().Get(ctx, roomID, m.UserID, gameweek)
				if err != nil {
					return fmt.Errorf("get pick: %w", err)
				}
				if exists {
					p.Status = pick.StatusLocked
					if err := tx.Picks().Upsert(ctx, p); err != nil {
						return fmt.Errorf("lock pick: %w", err)
					}
					out.LockedPicks++
					continue
				}

				switch r.Config.NoPickPolicy {
				case room.NoPickRandomEligible:
					teamID, assigned, err := s.assignEligibleTeam(ctx, tx, r, m.UserID, gameweek, fixtures)
					if err != nil {
						return err
					}
					if assigned {
						if err := tx.Picks().Upsert(ctx, pick.Pick{
							RoomID:          roomID,
							UserID:          m.UserID,
							Gameweek:        gameweek,
							TeamID:          teamID,
							Status:          pick.StatusLocked,
							SystemGenerated: true,
							SubmittedAt:     now,
						}); err != nil {
							return fmt.Errorf("record system pick: %w", err)
						}
						out.LockedPicks++
						out.AutoAssigned++
						continue
					}
					// Every team is burned; nothing left to assign.
					fallthrough
				case room.NoPickDisqualify:
					gw := gameweek
					m.Status = room.MemberEliminated
					m.EliminatedAtGameweek = &gw
					if err := tx.Rooms().UpdateMember(ctx, m); err != nil {
						return fmt.Errorf("eliminate member: %w", err)
					}
					out.Disqualified++
					if err := appendEvent(ctx, tx, roomID, now, timeline.KindElimination, map[string]any{
						"user_id":  m.UserID,
						"gameweek": gameweek,
						"reason":   "no_pick",
					}); err != nil {
						return err
					}
				}
			}

			r.CurrentPhase = room.PhaseLocked
			if err := tx.Rooms().Update(ctx, r); err != nil {
				return fmt.Errorf("update room: %w", err)
			}

			if err := appendEvent(ctx, tx, roomID, now, timeline.KindPickLocked, map[string]any{
				"gameweek":      gameweek,
				"locked_picks":  out.LockedPicks,
				"auto_assigned": out.AutoAssigned,
				"disqualified":  out.Disqualified,
			}); err != nil {
				return err
			}

			summary = out
			return nil
		})
	})
	if err != nil {
		return LockSummary{}, err
	}

	s.logger.InfoContext(ctx, "gameweek locked",
		"room_id", roomID,
		"gameweek", gameweek,
		"locked_picks", summary.LockedPicks,
		"auto_assigned", summary.AutoAssigned,
		"disqualified", summary.Disqualified,
	)

	return summary, nil
}

// Resolve settles a locked gameweek against finalized outcomes: a win for
// the picked team survives, anything else eliminates. Re-resolving an
// already-resolved gameweek returns the prior result without writing.
func (s *EngineService) Resolve(ctx context.Context, roomID string, gameweek int) (ResolveSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EngineService.Resolve")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ResolveSummary{}, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}

	var summary ResolveSummary
	var postCommit func(context.Context)
	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			r, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}

			members, err := tx.Rooms().ListMembers(ctx, roomID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}

			if resolved, prior := priorResolution(r, members, gameweek); resolved {
				summary = prior
				return nil
			}

			if r.Status != room.StatusInProgress {
				return ErrRoomNotInProgress
			}
			if gameweek != r.CurrentGameweek {
				return fmt.Errorf("%w: gameweek %d is not current", ErrInvalidInput, gameweek)
			}
			if r.CurrentPhase != room.PhaseLocked {
				return fmt.Errorf("%w: gameweek %d is not locked", ErrStateConflict, gameweek)
			}

			picks, err := tx.Picks().ListByRoomGameweek(ctx, roomID, gameweek)
			if err != nil {
				return fmt.Errorf("list picks: %w", err)
			}
			fixtures, err := tx.Fixtures().ListByLeagueGameweek(ctx, r.LeagueID, gameweek)
			if err != nil {
				return fmt.Errorf("list fixtures: %w", err)
			}

			membersByID := make(map[string]room.Membership, len(members))
			for _, m := range members {
				membersByID[m.UserID] = m
			}

			// The FixturesNotFinal gate covers every fixture any locked
			// pick counts under the room's DGW rule.
			for _, p := range picks {
				if !p.Locked() {
					continue
				}
				for _, f := range countedFixtures(fixtures, p.TeamID, r.Config.DGWRule) {
					if !f.Final() {
						return ErrFixturesNotFinal
					}
				}
			}

			now := s.now()
			out := ResolveSummary{Gameweek: gameweek}
			var wiped []room.Membership
			for _, p := range picks {
				if !p.Locked() {
					continue
				}
				m, ok := membersByID[p.UserID]
				if !ok || !m.Active() {
					continue
				}

				if survives(fixtures, p.TeamID, r.Config.DGWRule) {
					out.Survivors++
					continue
				}

				gw := gameweek
				m.Status = room.MemberEliminated
				m.EliminatedAtGameweek = &gw
				if err := tx.Rooms().UpdateMember(ctx, m); err != nil {
					return fmt.Errorf("eliminate member: %w", err)
				}
				membersByID[p.UserID] = m
				wiped = append(wiped, m)
				out.Eliminated++

				if err := appendEvent(ctx, tx, roomID, now, timeline.KindElimination, map[string]any{
					"user_id":  p.UserID,
					"gameweek": gameweek,
					"team_id":  p.TeamID,
					"system":   p.SystemGenerated,
				}); err != nil {
					return err
				}
			}

			// Eliminated members drop out of any open proposal's required
			// voter set so a deal vote cannot stall on a ghost. If the
			// remaining voters had all accepted already, the deal settles
			// here and decides the winners.
			dealWinners, err := s.shrinkOpenProposal(ctx, tx, roomID, membersByID, now)
			if err != nil {
				return err
			}

			if err := appendEvent(ctx, tx, roomID, now, timeline.KindResultsFinal, map[string]any{
				"gameweek":   gameweek,
				"eliminated": out.Eliminated,
				"survivors":  out.Survivors,
			}); err != nil {
				return err
			}

			survivors := activeMembers(membersByID)
			switch {
			case len(dealWinners) > 0:
				out.Completed = true
				out.WinnerUserIDs = dealWinners
			case len(survivors) == 1:
				out.Completed = true
				out.WinnerUserIDs = []string{survivors[0].UserID}
			case len(survivors) == 0:
				// Full wipe: everyone eliminated in this gameweek shares
				// the pot so the room never deadlocks with zero survivors.
				out.Completed = true
				for _, m := range sortedBySeq(wiped) {
					out.WinnerUserIDs = append(out.WinnerUserIDs, m.UserID)
				}
			}

			if out.Completed {
				restartedID, post, err := s.CompleteRoom(ctx, tx, r, out.WinnerUserIDs, now)
				if err != nil {
					return err
				}
				out.RestartedRoomID = restartedID
				postCommit = post
			} else {
				r.CurrentGameweek = gameweek + 1
				r.CurrentPhase = room.PhasePicksOpen
				if err := tx.Rooms().Update(ctx, r); err != nil {
					return fmt.Errorf("update room: %w", err)
				}
			}

			summary = out
			return nil
		})
	})
	if err != nil {
		return ResolveSummary{}, err
	}

	if postCommit != nil {
		postCommit(ctx)
	}

	if !summary.AlreadyResolved {
		s.logger.InfoContext(ctx, "gameweek resolved",
			"room_id", roomID,
			"gameweek", gameweek,
			"survivors", summary.Survivors,
			"eliminated", summary.Eliminated,
			"completed", summary.Completed,
		)
	}

	return summary, nil
}

// Reresolve is the administrative re-resolution entry point used after an
// outcome override. Only the most recently resolved gameweek can replay;
// memberships eliminated in it return to active before resolution reruns.
func (s *EngineService) Reresolve(ctx context.Context, roomID string, gameweek int) (ResolveSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EngineService.Reresolve")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ResolveSummary{}, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}

	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			r, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}

			lastResolved := r.CurrentGameweek
			if r.Status == room.StatusInProgress && r.CurrentPhase != room.PhaseResolved {
				lastResolved = r.CurrentGameweek - 1
			}
			if gameweek != lastResolved {
				return fmt.Errorf("%w: only the most recently resolved gameweek can re-resolve", ErrStateConflict)
			}

			members, err := tx.Rooms().ListMembers(ctx, roomID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			for _, m := range members {
				if m.EliminatedAtGameweek != nil && *m.EliminatedAtGameweek == gameweek {
					m.Status = room.MemberActive
					m.EliminatedAtGameweek = nil
					if err := tx.Rooms().UpdateMember(ctx, m); err != nil {
						return fmt.Errorf("reinstate member: %w", err)
					}
				}
			}

			r.Status = room.StatusInProgress
			r.CurrentGameweek = gameweek
			r.CurrentPhase = room.PhaseLocked
			r.WinnerUserIDs = nil
			if err := tx.Rooms().Update(ctx, r); err != nil {
				return fmt.Errorf("update room: %w", err)
			}

			return nil
		})
	})
	if err != nil {
		return ResolveSummary{}, err
	}

	s.logger.WarnContext(ctx, "gameweek re-resolution forced", "room_id", roomID, "gameweek", gameweek)

	return s.Resolve(ctx, roomID, gameweek)
}

// CompleteRoom settles a finished room: winners recorded, audited,
// recurring successor spawned, payout deferred until after commit. The
// caller must hold the room lock and pass its transaction.
func (s *EngineService) CompleteRoom(ctx context.Context, tx storage.Store, r room.Room, winners []string, now time.Time) (string, func(context.Context), error) {
	r.Status = room.StatusCompleted
	r.CurrentPhase = room.PhaseResolved
	r.WinnerUserIDs = append([]string(nil), winners...)
	if err := tx.Rooms().Update(ctx, r); err != nil {
		return "", nil, fmt.Errorf("update room: %w", err)
	}

	if err := appendEvent(ctx, tx, r.ID, now, timeline.KindRoomCompleted, map[string]any{
		"winner_user_ids": winners,
		"pot_cents":       r.PotCents,
	}); err != nil {
		return "", nil, err
	}

	restartedID := ""
	if r.Config.Recurring {
		id, err := s.spawnRecurringRoom(ctx, tx, r, now)
		if err != nil {
			return "", nil, err
		}
		restartedID = id
	}

	shares := payment.EvenShares(winners)
	if len(winners) == 1 {
		shares = payment.SoleWinner(winners[0])
	}

	roomID := r.ID
	potCents := r.PotCents
	post := func(ctx context.Context) {
		if err := s.distributor.Distribute(ctx, roomID, potCents, shares); err != nil {
			// The committed completion stays; payout retries are the
			// ledger operator's runbook, not engine state.
			s.logger.ErrorContext(ctx, "pot distribution failed", "room_id", roomID, "error", err)
		}
	}

	return restartedID, post, nil
}

// spawnRecurringRoom creates the next cycle as a brand new room: fresh
// identity, fresh invite code, empty membership, empty used-team history.
func (s *EngineService) spawnRecurringRoom(ctx context.Context, tx storage.Store, prev room.Room, now time.Time) (string, error) {
	newID, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	inviteCode, err := s.ids.NewInviteCode()
	if err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}

	next := room.Room{
		ID:               newID,
		LeagueID:         prev.LeagueID,
		Name:             prev.Name,
		HostUserID:       prev.HostUserID,
		Config:           prev.Config,
		InviteCode:       inviteCode,
		Status:           room.StatusOpen,
		StartingGameweek: prev.CurrentGameweek + 1,
		CurrentGameweek:  prev.CurrentGameweek + 1,
		CurrentPhase:     room.PhasePicksOpen,
		CreatedAt:        now,
	}
	if err := tx.Rooms().Create(ctx, next); err != nil {
		return "", fmt.Errorf("create recurring room: %w", err)
	}

	if err := appendEvent(ctx, tx, prev.ID, now, timeline.KindRoomRestarted, map[string]any{
		"new_room_id":       newID,
		"starting_gameweek": next.StartingGameweek,
	}); err != nil {
		return "", err
	}

	return newID, nil
}

// shrinkOpenProposal drops eliminated members from an open proposal's
// required voter set. When every remaining voter has already accepted,
// the shrink itself reaches unanimity: the proposal closes as accepted
// and the remaining voters come back as the winners. A shrink to zero
// voters leaves the proposal open; the full-wipe completion owns that
// outcome and expiry cleans the proposal up.
func (s *EngineService) shrinkOpenProposal(ctx context.Context, tx storage.Store, roomID string, membersByID map[string]room.Membership, now time.Time) ([]string, error) {
	p, exists, err := tx.Deals().GetOpenByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get open proposal: %w", err)
	}
	if !exists {
		return nil, nil
	}

	remaining := make([]string, 0, len(p.RequiredVoters))
	for _, userID := range p.RequiredVoters {
		if m, ok := membersByID[userID]; ok && m.Active() {
			remaining = append(remaining, userID)
		}
	}
	if len(remaining) == len(p.RequiredVoters) {
		return nil, nil
	}

	p.RequiredVoters = remaining
	if !p.Unanimous() {
		if err := tx.Deals().Update(ctx, p); err != nil {
			return nil, fmt.Errorf("shrink proposal voter set: %w", err)
		}
		return nil, nil
	}

	p.Status = deal.StatusAccepted
	p.ClosedAt = &now
	if err := tx.Deals().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("close shrunk proposal: %w", err)
	}
	if err := appendEvent(ctx, tx, roomID, now, timeline.KindDealAccepted, map[string]any{
		"proposal_id":     p.ID,
		"winner_user_ids": remaining,
	}); err != nil {
		return nil, err
	}

	return remaining, nil
}

// assignEligibleTeam deterministically picks one unused team playing this
// gameweek, keyed on (room, user, gameweek) so audits reproduce it.
func (s *EngineService) assignEligibleTeam(
	ctx context.Context,
	tx storage.Store,
	r room.Room,
	userID string,
	gameweek int,
	fixtures []fixture.Fixture,
) (string, bool, error) {
	locked, err := tx.Picks().ListLockedByRoomUser(ctx, r.ID, userID)
	if err != nil {
		return "", false, fmt.Errorf("list locked picks: %w", err)
	}
	used := make(map[string]struct{}, len(locked))
	for _, p := range locked {
		used[p.TeamID] = struct{}{}
	}

	playing := make(map[string]struct{}, len(fixtures)*2)
	for _, f := range fixtures {
		playing[f.HomeTeamID] = struct{}{}
		playing[f.AwayTeamID] = struct{}{}
	}

	eligible := make([]string, 0, len(playing))
	for teamID := range playing {
		if _, burned := used[teamID]; !burned {
			eligible = append(eligible, teamID)
		}
	}
	if len(eligible) == 0 {
		return "", false, nil
	}
	sort.Strings(eligible)

	sum := sha256.Sum256([]byte(r.ID + "|" + userID + "|" + fmt.Sprintf("%d", gameweek)))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(eligible))

	return eligible[idx], true, nil
}

// countedFixtures picks the fixtures that matter for one team under the
// room's DGW rule: first kickoff only, or every fixture the team plays.
func countedFixtures(fixtures []fixture.Fixture, teamID string, rule room.DGWRule) []fixture.Fixture {
	var involving []fixture.Fixture
	for _, f := range fixtures {
		if f.Involves(teamID) {
			involving = append(involving, f)
		}
	}
	sort.Slice(involving, func(i, j int) bool {
		return involving[i].KickoffAt.Before(involving[j].KickoffAt)
	})

	if rule == room.DGWFirstFixtureCounts && len(involving) > 1 {
		return involving[:1]
	}

	return involving
}

// survives reports whether the picked team won every counted fixture. A
// team with no fixture this gameweek cannot win, so it eliminates.
func survives(fixtures []fixture.Fixture, teamID string, rule room.DGWRule) bool {
	counted := countedFixtures(fixtures, teamID, rule)
	if len(counted) == 0 {
		return false
	}
	for _, f := range counted {
		if !f.WonBy(teamID) {
			return false
		}
	}
	return true
}

func priorResolution(r room.Room, members []room.Membership, gameweek int) (bool, ResolveSummary) {
	alreadyResolved := false
	switch {
	case r.Status == room.StatusCompleted && gameweek <= r.CurrentGameweek:
		alreadyResolved = true
	case r.Status == room.StatusInProgress && gameweek < r.CurrentGameweek:
		alreadyResolved = true
	case r.Status == room.StatusInProgress && gameweek == r.CurrentGameweek && r.CurrentPhase == room.PhaseResolved:
		alreadyResolved = true
	}
	if !alreadyResolved {
		return false, ResolveSummary{}
	}

	out := ResolveSummary{Gameweek: gameweek, AlreadyResolved: true}
	for _, m := range members {
		switch {
		case m.EliminatedAtGameweek != nil && *m.EliminatedAtGameweek == gameweek:
			out.Eliminated++
		case m.Active() || (m.EliminatedAtGameweek != nil && *m.EliminatedAtGameweek > gameweek):
			out.Survivors++
		}
	}
	// Only the final gameweek's resolution completed the room; replaying
	// an earlier one reports a mid-run snapshot.
	if r.Status == room.StatusCompleted && gameweek == r.CurrentGameweek {
		out.Completed = true
		out.WinnerUserIDs = append([]string(nil), r.WinnerUserIDs...)
	}

	return true, out
}

func activeMembers(membersByID map[string]room.Membership) []room.Membership {
	out := make([]room.Membership, 0, len(membersByID))
	for _, m := range membersByID {
		if m.Active() {
			out = append(out, m)
		}
	}
	return sortedBySeq(out)
}

func sortedBySeq(members []room.Membership) []room.Membership {
	out := append([]room.Membership(nil), members...)
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}
