package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
)

func TestRecordOutcome_WritesOnce(t *testing.T) {
	h := newHarness(t)

	got, err := h.fixtures.RecordOutcome(context.Background(), "fx-1a", "home_win")
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if got.Outcome != fixture.OutcomeHomeWin || got.FinishedAt == nil {
		t.Fatalf("unexpected fixture: %+v", got)
	}

	if _, err := h.fixtures.RecordOutcome(context.Background(), "fx-1a", "draw"); !errors.Is(err, ErrOutcomeAlreadySet) {
		t.Fatalf("expected ErrOutcomeAlreadySet, got %v", err)
	}
	if _, err := h.fixtures.RecordOutcome(context.Background(), "fx-1b", "unplayed"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unplayed is not a recordable outcome, got %v", err)
	}
	if _, err := h.fixtures.RecordOutcome(context.Background(), "fx-none", "draw"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverrideOutcome_ReplaysResolvedRooms(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two", "u-three")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.submit(t, r.ID, "u-three", 1, "t-tot")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin) // Chelsea loses at first
	h.score(t, "fx-1c", fixture.OutcomeHomeWin)
	h.resolve(t, r.ID, 1)

	if h.member(t, r.ID, "u-two").Active() {
		t.Fatal("u-two should be eliminated on the original result")
	}

	got, err := h.fixtures.OverrideOutcome(context.Background(), "fx-1b", "home_win")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if got.Outcome != fixture.OutcomeHomeWin {
		t.Fatalf("outcome not overridden: %s", got.Outcome)
	}

	if !h.member(t, r.ID, "u-two").Active() {
		t.Fatal("u-two should be reinstated after the override replay")
	}

	overrides := h.events(t, r.ID, timeline.KindOutcomeOverridden)
	if len(overrides) != 1 {
		t.Fatalf("expected one outcome_overridden event, got %d", len(overrides))
	}
	if overrides[0].Payload["previous_outcome"] != string(fixture.OutcomeAwayWin) {
		t.Fatalf("unexpected payload: %v", overrides[0].Payload)
	}

	current := h.room(t, r.ID)
	if current.Status != room.StatusInProgress || current.CurrentGameweek != 2 {
		t.Fatalf("room should continue in gameweek 2: %s gw=%d", current.Status, current.CurrentGameweek)
	}
}

func TestOverrideOutcome_SameOutcomeIsNoOp(t *testing.T) {
	h := newHarness(t)

	if _, err := h.fixtures.RecordOutcome(context.Background(), "fx-1a", "draw"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := h.fixtures.OverrideOutcome(context.Background(), "fx-1a", "draw"); err != nil {
		t.Fatalf("identical override should be a no-op: %v", err)
	}
	if _, err := h.fixtures.OverrideOutcome(context.Background(), "fx-1b", "draw"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("overriding an unplayed fixture should conflict, got %v", err)
	}
}

func TestOverrideOutcome_CanFlipCompletionBack(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	h.score(t, "fx-1a", fixture.OutcomeHomeWin)
	h.score(t, "fx-1b", fixture.OutcomeAwayWin)
	h.score(t, "fx-1c", fixture.OutcomeDraw)
	h.resolve(t, r.ID, 1)

	if h.room(t, r.ID).Status != room.StatusCompleted {
		t.Fatal("room should have completed with a sole survivor")
	}

	// The corrected result keeps both picks winning, so the room reopens
	// and play continues.
	if _, err := h.fixtures.OverrideOutcome(context.Background(), "fx-1b", "home_win"); err != nil {
		t.Fatalf("override: %v", err)
	}

	reopened := h.room(t, r.ID)
	if reopened.Status != room.StatusInProgress {
		t.Fatalf("room should be back in progress: %s", reopened.Status)
	}
	if len(reopened.WinnerUserIDs) != 0 {
		t.Fatalf("winners should be cleared: %v", reopened.WinnerUserIDs)
	}
	if !h.member(t, r.ID, "u-two").Active() {
		t.Fatal("u-two should be active again")
	}
}
