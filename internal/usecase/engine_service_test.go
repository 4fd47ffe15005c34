package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
)

func TestAdvanceToLocked_LocksPendingPicks(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")

	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.submit(t, r.ID, "u-three", 1, "t-tot")

	summary := h.lock(t, r.ID, 1)
	if summary.LockedPicks != 3 {
		t.Fatalf("unexpected locked picks: got=%d want=3", summary.LockedPicks)
	}
	if summary.Disqualified != 0 {
		t.Fatalf("unexpected disqualifications: got=%d want=0", summary.Disqualified)
	}

	got := h.room(t, r.ID)
	if got.CurrentPhase != room.PhaseLocked {
		t.Fatalf("unexpected phase: got=%s want=%s", got.CurrentPhase, room.PhaseLocked)
	}

	p, exists, err := h.store.Picks().Get(context.Background(), r.ID, "u-host", 1)
	if err != nil || !exists {
		t.Fatalf("get locked pick: exists=%v err=%v", exists, err)
	}
	if !p.Locked() {
		t.Fatalf("pick not locked: status=%s", p.Status)
	}
}

func TestAdvanceToLocked_BeforeLockTimeWithoutForce(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	_, err := h.engine.AdvanceToLocked(context.Background(), r.ID, 1, false)
	if !errors.Is(err, ErrLockNotDue) {
		t.Fatalf("expected ErrLockNotDue, got %v", err)
	}

	// force bypasses the time gate.
	if _, err := h.engine.AdvanceToLocked(context.Background(), r.ID, 1, true); err != nil {
		t.Fatalf("forced lock: %v", err)
	}
}

func TestAdvanceToLocked_SecondCallIsConflictWithoutStateChange(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	eventsBefore := len(h.events(t, r.ID, timeline.KindPickLocked))

	_, err := h.engine.AdvanceToLocked(context.Background(), r.ID, 1, false)
	if !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}

	if got := len(h.events(t, r.ID, timeline.KindPickLocked)); got != eventsBefore {
		t.Fatalf("second lock call appended events: got=%d want=%d", got, eventsBefore)
	}
}

func TestAdvanceToLocked_DisqualifyPolicyEliminatesMissingPicks(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")
	h.submit(t, r.ID, "u-host", 1, "t-ars")

	summary := h.lock(t, r.ID, 1)
	if summary.Disqualified != 2 {
		t.Fatalf("unexpected disqualifications: got=%d want=2", summary.Disqualified)
	}

	m := h.member(t, r.ID, "u-two")
	if m.Active() {
		t.Fatal("member without pick should be eliminated")
	}
	if m.EliminatedAtGameweek == nil || *m.EliminatedAtGameweek != 1 {
		t.Fatalf("unexpected elimination gameweek: %v", m.EliminatedAtGameweek)
	}

	eliminations := h.events(t, r.ID, timeline.KindElimination)
	if len(eliminations) != 2 {
		t.Fatalf("unexpected elimination events: got=%d want=2", len(eliminations))
	}
	if eliminations[0].Payload["reason"] != "no_pick" {
		t.Fatalf("unexpected elimination reason: %v", eliminations[0].Payload["reason"])
	}
}

func TestAdvanceToLocked_RandomEligibleIsDeterministic(t *testing.T) {
	input := defaultRoomInput()
	input.NoPickPolicy = string(room.NoPickRandomEligible)

	assigned := make([]string, 0, 2)
	for run := 0; run < 2; run++ {
		h := newHarness(t)
		r := h.startedRoom(t, input, "u-two")
		h.submit(t, r.ID, "u-host", 1, "t-ars")

		summary := h.lock(t, r.ID, 1)
		if summary.AutoAssigned != 1 {
			t.Fatalf("unexpected auto assignments: got=%d want=1", summary.AutoAssigned)
		}

		p, exists, err := h.store.Picks().Get(context.Background(), r.ID, "u-two", 1)
		if err != nil || !exists {
			t.Fatalf("get system pick: exists=%v err=%v", exists, err)
		}
		if !p.SystemGenerated || !p.Locked() {
			t.Fatalf("expected locked system pick, got %+v", p)
		}
		assigned = append(assigned, p.TeamID)
	}

	// Identical room, user and gameweek must produce the same assignment.
	if assigned[0] != assigned[1] {
		t.Fatalf("assignment not deterministic: %s vs %s", assigned[0], assigned[1])
	}
}

func TestResolve_RequiresFinalOutcomes(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)

	_, err := h.engine.Resolve(context.Background(), r.ID, 1)
	if !errors.Is(err, ErrFixturesNotFinal) {
		t.Fatalf("expected ErrFixturesNotFinal, got %v", err)
	}
}

func TestResolve_EliminatesDrawAndLossSurvivorsAdvance(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")
	h.submit(t, r.ID, "u-host", 1, "t-ars")  // wins
	h.submit(t, r.ID, "u-two", 1, "t-che")   // draws
	h.submit(t, r.ID, "u-three", 1, "t-tot") // wins
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeDraw)
	h.score(t, "fx-1c", fixture.OutcomeHomeWin)

	summary := h.resolve(t, r.ID, 1)
	if summary.Survivors != 2 || summary.Eliminated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Completed {
		t.Fatal("room should not be completed with two survivors")
	}

	got := h.room(t, r.ID)
	if got.CurrentGameweek != 2 || got.CurrentPhase != room.PhasePicksOpen {
		t.Fatalf("room did not advance: gw=%d phase=%s", got.CurrentGameweek, got.CurrentPhase)
	}
	if h.member(t, r.ID, "u-two").Active() {
		t.Fatal("drawn pick should eliminate")
	}
	if len(h.events(t, r.ID, timeline.KindResultsFinal)) != 1 {
		t.Fatal("expected one results_final event")
	}
}

func TestResolve_SoleSurvivorWinsPot(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)

	summary := h.resolve(t, r.ID, 1)
	if !summary.Completed {
		t.Fatal("expected completion")
	}
	if len(summary.WinnerUserIDs) != 1 || summary.WinnerUserIDs[0] != "u-host" {
		t.Fatalf("unexpected winners: %v", summary.WinnerUserIDs)
	}

	got := h.room(t, r.ID)
	if got.Status != room.StatusCompleted {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if len(got.WinnerUserIDs) != 1 || got.WinnerUserIDs[0] != "u-host" {
		t.Fatalf("winners not recorded: %v", got.WinnerUserIDs)
	}

	if len(h.dist.calls) != 1 {
		t.Fatalf("unexpected distribution calls: %d", len(h.dist.calls))
	}
	call := h.dist.calls[0]
	if call.roomID != r.ID || call.potCents != 2000 {
		t.Fatalf("unexpected distribution: %+v", call)
	}
	if !call.shares["u-host"].Equal(decimalOne()) {
		t.Fatalf("sole winner share should be 1, got %s", call.shares["u-host"])
	}
	if len(h.events(t, r.ID, timeline.KindRoomCompleted)) != 1 {
		t.Fatal("expected one room_completed event")
	}
}

func TestResolve_FullWipeSplitsAmongFinalGameweekEliminated(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	// Both picks lose.
	h.score(t, "fx-1a", fixture.OutcomeAwayWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)

	summary := h.resolve(t, r.ID, 1)
	if !summary.Completed || summary.Survivors != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.WinnerUserIDs) != 2 {
		t.Fatalf("expected joint winners, got %v", summary.WinnerUserIDs)
	}

	call := h.dist.calls[0]
	half := call.shares["u-host"].Add(call.shares["u-two"])
	if !half.Equal(decimalOne()) {
		t.Fatalf("shares do not sum to 1: %s", half)
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)

	first := h.resolve(t, r.ID, 1)
	second := h.resolve(t, r.ID, 1)

	if !second.AlreadyResolved {
		t.Fatal("replay should report AlreadyResolved")
	}
	if second.Eliminated != first.Eliminated {
		t.Fatalf("replay diverged: first=%+v second=%+v", first, second)
	}
	if len(h.dist.calls) != 1 {
		t.Fatalf("pot distributed more than once: %d", len(h.dist.calls))
	}
	if len(h.events(t, r.ID, timeline.KindResultsFinal)) != 1 {
		t.Fatal("replay appended duplicate results_final event")
	}
}

func TestResolve_EarlierGameweekOfCompletedRoomIsNoOp(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.submit(t, r.ID, "u-three", 1, "t-tot")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeHomeWin)
	h.score(t, "fx-1c", fixture.OutcomeAwayWin) // eliminates u-three
	h.resolve(t, r.ID, 1)

	h.submit(t, r.ID, "u-host", 2, "t-liv")
	h.submit(t, r.ID, "u-two", 2, "t-eve")
	h.lock(t, r.ID, 2)
	h.score(t, "fx-2a", fixture.OutcomeDraw)
	h.score(t, "fx-2b", fixture.OutcomeHomeWin) // Liverpool wins for the host
	h.score(t, "fx-2c", fixture.OutcomeAwayWin) // eliminates u-two
	final := h.resolve(t, r.ID, 2)
	if !final.Completed {
		t.Fatalf("room should complete at gameweek 2: %+v", final)
	}

	replay := h.resolve(t, r.ID, 1)
	if !replay.AlreadyResolved {
		t.Fatal("earlier gameweek replay should report AlreadyResolved")
	}
	if replay.Eliminated != 1 || replay.Survivors != 2 {
		t.Fatalf("replay should snapshot gameweek 1: %+v", replay)
	}
	if replay.Completed || len(replay.WinnerUserIDs) != 0 {
		t.Fatalf("gameweek 1 did not complete the room: %+v", replay)
	}
	if len(h.dist.calls) != 1 {
		t.Fatalf("pot distributed more than once: %d", len(h.dist.calls))
	}
}

func TestResolve_DoubleGameweekBothFixturesMustWin(t *testing.T) {
	input := defaultRoomInput()
	input.DGWRule = string(room.DGWBothFixturesCount)
	input.StartingGameweek = 4

	h := newHarness(t)
	r := h.startedRoom(t, input, "u-two")
	h.current = gw1Kickoff.AddDate(0, 0, 21).Add(-24 * time.Hour)
	h.submit(t, r.ID, "u-host", 4, "t-ars") // plays fx-4a and fx-4b
	h.submit(t, r.ID, "u-two", 4, "t-che")

	h.current = gw1Kickoff.AddDate(0, 0, 21)
	if _, err := h.engine.AdvanceToLocked(context.Background(), r.ID, 4, false); err != nil {
		t.Fatalf("lock gw4: %v", err)
	}

	// Arsenal wins the first match but loses the second.
	h.score(t, "fx-4a", fixture.OutcomeHomeWin)
	h.score(t, "fx-4b", fixture.OutcomeHomeWin)
	h.score(t, "fx-4c", fixture.OutcomeHomeWin)

	summary := h.resolve(t, r.ID, 4)
	if summary.Eliminated != 1 {
		t.Fatalf("expected Arsenal pick eliminated under both_fixtures_count: %+v", summary)
	}
	if h.member(t, r.ID, "u-host").Active() {
		t.Fatal("u-host should be eliminated")
	}
}

func TestResolve_DoubleGameweekFirstFixtureOnly(t *testing.T) {
	input := defaultRoomInput()
	input.StartingGameweek = 4

	h := newHarness(t)
	r := h.startedRoom(t, input, "u-two")
	h.current = gw1Kickoff.AddDate(0, 0, 21).Add(-24 * time.Hour)
	h.submit(t, r.ID, "u-host", 4, "t-ars")
	h.submit(t, r.ID, "u-two", 4, "t-che")

	h.current = gw1Kickoff.AddDate(0, 0, 21)
	if _, err := h.engine.AdvanceToLocked(context.Background(), r.ID, 4, false); err != nil {
		t.Fatalf("lock gw4: %v", err)
	}

	// First Arsenal fixture is a win; under first_fixture_counts the later
	// loss is irrelevant and its result need not even be final.
	h.score(t, "fx-4a", fixture.OutcomeHomeWin)
	h.score(t, "fx-4c", fixture.OutcomeDraw)

	summary := h.resolve(t, r.ID, 4)
	if !summary.Completed || len(summary.WinnerUserIDs) != 1 || summary.WinnerUserIDs[0] != "u-host" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestResolve_RecurringRoomSpawnsSuccessor(t *testing.T) {
	input := defaultRoomInput()
	input.Recurring = true

	h := newHarness(t)
	r := h.startedRoom(t, input, "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)

	summary := h.resolve(t, r.ID, 1)
	if summary.RestartedRoomID == "" {
		t.Fatal("expected a successor room")
	}

	next := h.room(t, summary.RestartedRoomID)
	if next.Status != room.StatusOpen {
		t.Fatalf("successor should be open: %s", next.Status)
	}
	if next.StartingGameweek != 2 {
		t.Fatalf("successor starting gameweek: got=%d want=2", next.StartingGameweek)
	}
	if next.InviteCode == r.InviteCode {
		t.Fatal("successor must have a fresh invite code")
	}
	if next.PotCents != 0 {
		t.Fatalf("successor pot should start empty: %d", next.PotCents)
	}

	members, err := h.store.Rooms().ListMembers(context.Background(), next.ID)
	if err != nil {
		t.Fatalf("list successor members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("successor should start with no members: %d", len(members))
	}

	// Successor history is clean: a team burned in the finished room is
	// pickable again.
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-host", next.InviteCode); err != nil {
		t.Fatalf("rejoin successor: %v", err)
	}
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", next.InviteCode); err != nil {
		t.Fatalf("rejoin successor: %v", err)
	}
	if _, err := h.rooms.Start(context.Background(), next.ID, "u-host"); err != nil {
		t.Fatalf("start successor: %v", err)
	}
	h.submit(t, next.ID, "u-host", 2, "t-ars")

	if len(h.events(t, r.ID, timeline.KindRoomRestarted)) != 1 {
		t.Fatal("expected room_restarted event on the finished room")
	}
}

func TestReresolve_ReinstatesAndReplaysLastGameweek(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.submit(t, r.ID, "u-three", 1, "t-tot")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeHomeWin)
	h.resolve(t, r.ID, 1)

	if h.member(t, r.ID, "u-two").Active() {
		t.Fatal("u-two should be eliminated before the correction")
	}

	// The Chelsea result is corrected to a home win; u-two survives after
	// the replay and u-host and u-three still survive.
	h.score(t, "fx-1b", fixture.OutcomeHomeWin)
	summary, err := h.engine.Reresolve(context.Background(), r.ID, 1)
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if summary.Eliminated != 0 || summary.Survivors != 3 {
		t.Fatalf("unexpected replay summary: %+v", summary)
	}
	if !h.member(t, r.ID, "u-two").Active() {
		t.Fatal("u-two should be reinstated")
	}

	if _, err := h.engine.Reresolve(context.Background(), r.ID, 3); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("re-resolving a non-latest gameweek should conflict, got %v", err)
	}
}

func decimalOne() decimal.Decimal {
	return decimal.NewFromInt(1)
}
