package usecase

import (
	"context"
	"testing"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
)

type feedStub struct {
	results map[string][]ExternalResult
	err     error
	calls   []string
}

func (f *feedStub) FetchFinalOutcomes(_ context.Context, leagueID string, _ int) ([]ExternalResult, error) {
	f.calls = append(f.calls, leagueID)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[leagueID], nil
}

func TestIngestService_PullResults_AppliesFeedOutcomes(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)

	feed := &feedStub{results: map[string][]ExternalResult{
		testLeagueID: {
			{FixtureID: "fx-1a", Outcome: "home_win"},
			{FixtureID: "fx-1b", Outcome: "draw"},
			{FixtureID: "fx-1c", Outcome: "away_win"},
		},
	}}
	svc := NewIngestService(h.store, feed, h.fixtures, nil)

	report, err := svc.PullResults(context.Background())
	if err != nil {
		t.Fatalf("pull results: %v", err)
	}
	if report.Leagues != 1 {
		t.Fatalf("leagues = %d, want 1", report.Leagues)
	}
	if report.Applied != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 3 applied", report)
	}
	if len(feed.calls) != 1 || feed.calls[0] != testLeagueID {
		t.Fatalf("feed calls = %v", feed.calls)
	}

	fx, exists, err := h.store.Fixtures().GetByID(context.Background(), "fx-1a")
	if err != nil || !exists {
		t.Fatalf("get fixture: exists=%v err=%v", exists, err)
	}
	if fx.Outcome != fixture.OutcomeHomeWin {
		t.Fatalf("fx-1a outcome = %s, want home_win", fx.Outcome)
	}
}

func TestIngestService_PullResults_SkipsAlreadyFinalFixtures(t *testing.T) {
	h := newHarness(t)
	r := h.startedRoom(t, defaultRoomInput(), "u-two")
	h.submit(t, r.ID, "u-host", 1, "t-ars")
	h.submit(t, r.ID, "u-two", 1, "t-che")
	h.lock(t, r.ID, 1)
	h.score(t, "fx-1a", fixture.OutcomeHomeWin)

	feed := &feedStub{results: map[string][]ExternalResult{
		testLeagueID: {
			{FixtureID: "fx-1a", Outcome: "home_win"},
			{FixtureID: "fx-1b", Outcome: "draw"},
		},
	}}
	svc := NewIngestService(h.store, feed, h.fixtures, nil)

	report, err := svc.PullResults(context.Background())
	if err != nil {
		t.Fatalf("pull results: %v", err)
	}
	if report.Applied != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 1 applied 1 skipped", report)
	}
}

func TestIngestService_PullResults_SkipsIdleLeagues(t *testing.T) {
	h := newHarness(t)
	input := defaultRoomInput()
	if _, err := h.rooms.Create(context.Background(), input); err != nil {
		t.Fatalf("create room: %v", err)
	}

	feed := &feedStub{}
	svc := NewIngestService(h.store, feed, h.fixtures, nil)

	report, err := svc.PullResults(context.Background())
	if err != nil {
		t.Fatalf("pull results: %v", err)
	}
	if report.Leagues != 0 || len(feed.calls) != 0 {
		t.Fatalf("report = %+v calls = %v, want no feed traffic for lobby-only rooms", report, feed.calls)
	}
}
