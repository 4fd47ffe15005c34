package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
)

func TestSubmit_PendingPickIsOverwritable(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-host", 1, "t-tot")

	p, exists, err := h.picks.Get(context.Background(), r.ID, "u-host", 1)
	if err != nil || !exists {
		t.Fatalf("get pick: exists=%v err=%v", exists, err)
	}
	if p.TeamID != "t-tot" {
		t.Fatalf("last write should win: got=%s want=t-tot", p.TeamID)
	}
	if p.Status != pick.StatusPending {
		t.Fatalf("pick should stay pending until lock: %s", p.Status)
	}
}

func TestSubmit_RejectsBurnedTeam(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeHomeWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)
	h.resolve(t, r.ID, 1)

	_, err := h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID: r.ID, UserID: "u-host", Gameweek: 2, TeamID: "t-ars",
	})
	if !errors.Is(err, ErrTeamAlreadyUsed) {
		t.Fatalf("expected ErrTeamAlreadyUsed, got %v", err)
	}

	// An unused team is fine.
	h.submit(t, r.ID, "u-host", 2, "t-liv")
}

func TestSubmit_PendingPickDoesNotBurnTeam(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-host", 1, "t-tot")

	used, err := h.picks.UsedTeams(context.Background(), r.ID, "u-host")
	if err != nil {
		t.Fatalf("used teams: %v", err)
	}
	if len(used) != 0 {
		t.Fatalf("pending picks must not burn teams: %v", used)
	}
}

func TestSubmit_AfterLockInstantRejectedBeforeSweepRuns(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	// Jump past the lock instant without running the lock transition.
	h.current = gw1Kickoff.Add(-time.Minute)

	_, err := h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID: r.ID, UserID: "u-host", Gameweek: 1, TeamID: "t-ars",
	})
	if !errors.Is(err, ErrPicksLocked) {
		t.Fatalf("expected ErrPicksLocked, got %v", err)
	}
}

func TestSubmit_NonMemberAndEliminatedRejected(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	_, err := h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID: r.ID, UserID: "u-stranger", Gameweek: 1, TeamID: "t-ars",
	})
	if !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}

	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.lock(t, r.ID, 1) // u-two has no pick and is disqualified
	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeDraw)
	h.score(t, "fx-1c", fixture.OutcomeDraw)
	h.resolve(t, r.ID, 1)

	// Room completed with a sole survivor, so the eliminated member hits
	// the room state gate first.
	_, err = h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID: r.ID, UserID: "u-two", Gameweek: 2, TeamID: "t-liv",
	})
	if !errors.Is(err, ErrRoomNotInProgress) {
		t.Fatalf("expected ErrRoomNotInProgress, got %v", err)
	}
}

func TestSubmit_UnknownTeamRejected(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	_, err := h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID: r.ID, UserID: "u-host", Gameweek: 1, TeamID: "t-bogus",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLockTime_IsEarliestKickoffMinusLead(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	got, err := h.picks.LockTime(context.Background(), r.ID, 1)
	if err != nil {
		t.Fatalf("lock time: %v", err)
	}
	want := gw1Kickoff.Add(-testLockLead)
	if !got.Equal(want) {
		t.Fatalf("unexpected lock time: got=%s want=%s", got, want)
	}

	// Gameweek 4 has a double fixture; the earlier kickoff sets the
	// deadline for both rules.
	got, err = h.picks.LockTime(context.Background(), r.ID, 4)
	if err != nil {
		t.Fatalf("lock time gw4: %v", err)
	}
	want = gw1Kickoff.AddDate(0, 0, 21).Add(-3 * time.Hour).Add(-testLockLead)
	if !got.Equal(want) {
		t.Fatalf("unexpected gw4 lock time: got=%s want=%s", got, want)
	}
}

func TestUsedTeams_SortedAndDerivedFromLockedPicks(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")

	h.submit(t, r.ID, "u-host", 1, "t-tot")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)
	h.score(t, "fx-1a", fixture.OutcomeDraw)
	h.score(t, "fx-1b", fixture.OutcomeHomeWin)
	h.score(t, "fx-1c", fixture.OutcomeHomeWin)
	h.resolve(t, r.ID, 1)

	h.submit(t, r.ID, "u-host", 2, "t-ars")
	h.lock(t, r.ID, 2)

	used, err := h.picks.UsedTeams(context.Background(), r.ID, "u-host")
	if err != nil {
		t.Fatalf("used teams: %v", err)
	}
	if len(used) != 2 || used[0] != "t-ars" || used[1] != "t-tot" {
		t.Fatalf("unexpected used set: %v", used)
	}
}
