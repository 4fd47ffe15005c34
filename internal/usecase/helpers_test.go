package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/infrastructure/repository/memory"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
)

const (
	testLeagueID = "test-league"
	testLockLead = 90 * time.Minute
	testDealTTL  = 48 * time.Hour
)

var gw1Kickoff = time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC)

func testTeams() []team.Team {
	return []team.Team{
		{ID: "t-ars", LeagueID: testLeagueID, Name: "Arsenal", Short: "ARS"},
		{ID: "t-liv", LeagueID: testLeagueID, Name: "Liverpool", Short: "LIV"},
		{ID: "t-che", LeagueID: testLeagueID, Name: "Chelsea", Short: "CHE"},
		{ID: "t-eve", LeagueID: testLeagueID, Name: "Everton", Short: "EVE"},
		{ID: "t-tot", LeagueID: testLeagueID, Name: "Tottenham", Short: "TOT"},
		{ID: "t-new", LeagueID: testLeagueID, Name: "Newcastle", Short: "NEW"},
	}
}

// testFixtures lays out three plain gameweeks a week apart plus a fourth
// where Arsenal plays twice.
func testFixtures() []fixture.Fixture {
	gw := func(n int) time.Time { return gw1Kickoff.AddDate(0, 0, 7*(n-1)) }

	return []fixture.Fixture{
		{ID: "fx-1a", LeagueID: testLeagueID, Gameweek: 1, HomeTeamID: "t-ars", AwayTeamID: "t-liv", KickoffAt: gw(1), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-1b", LeagueID: testLeagueID, Gameweek: 1, HomeTeamID: "t-che", AwayTeamID: "t-eve", KickoffAt: gw(1), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-1c", LeagueID: testLeagueID, Gameweek: 1, HomeTeamID: "t-tot", AwayTeamID: "t-new", KickoffAt: gw(1).Add(2 * time.Hour), Outcome: fixture.OutcomeUnplayed},

		{ID: "fx-2a", LeagueID: testLeagueID, Gameweek: 2, HomeTeamID: "t-ars", AwayTeamID: "t-che", KickoffAt: gw(2), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-2b", LeagueID: testLeagueID, Gameweek: 2, HomeTeamID: "t-liv", AwayTeamID: "t-tot", KickoffAt: gw(2), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-2c", LeagueID: testLeagueID, Gameweek: 2, HomeTeamID: "t-eve", AwayTeamID: "t-new", KickoffAt: gw(2).Add(2 * time.Hour), Outcome: fixture.OutcomeUnplayed},

		{ID: "fx-3a", LeagueID: testLeagueID, Gameweek: 3, HomeTeamID: "t-ars", AwayTeamID: "t-eve", KickoffAt: gw(3), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-3b", LeagueID: testLeagueID, Gameweek: 3, HomeTeamID: "t-che", AwayTeamID: "t-tot", KickoffAt: gw(3), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-3c", LeagueID: testLeagueID, Gameweek: 3, HomeTeamID: "t-liv", AwayTeamID: "t-new", KickoffAt: gw(3).Add(2 * time.Hour), Outcome: fixture.OutcomeUnplayed},

		{ID: "fx-4a", LeagueID: testLeagueID, Gameweek: 4, HomeTeamID: "t-ars", AwayTeamID: "t-liv", KickoffAt: gw(4).Add(-3 * time.Hour), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-4b", LeagueID: testLeagueID, Gameweek: 4, HomeTeamID: "t-tot", AwayTeamID: "t-ars", KickoffAt: gw(4).Add(2 * time.Hour), Outcome: fixture.OutcomeUnplayed},
		{ID: "fx-4c", LeagueID: testLeagueID, Gameweek: 4, HomeTeamID: "t-che", AwayTeamID: "t-new", KickoffAt: gw(4), Outcome: fixture.OutcomeUnplayed},
	}
}

type seqIDs struct {
	ids   int
	codes int
}

func (s *seqIDs) NewID() (string, error) {
	s.ids++
	return fmt.Sprintf("id-%03d", s.ids), nil
}

func (s *seqIDs) NewInviteCode() (string, error) {
	s.codes++
	return fmt.Sprintf("JOIN%02d", s.codes), nil
}

type distribution struct {
	roomID   string
	potCents int64
	shares   map[string]decimal.Decimal
}

type distributorStub struct {
	calls []distribution
	err   error
}

func (d *distributorStub) Distribute(_ context.Context, roomID string, potCents int64, shares map[string]decimal.Decimal) error {
	d.calls = append(d.calls, distribution{roomID: roomID, potCents: potCents, shares: shares})
	return d.err
}

type harness struct {
	store    *memory.Store
	rooms    *RoomService
	picks    *PickService
	engine   *EngineService
	deals    *DealService
	fixtures *FixtureService
	sweeps   *SweepService
	timeline *TimelineService
	dist     *distributorStub
	current  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:   memory.NewStore(testTeams(), testFixtures()),
		dist:    &distributorStub{},
		current: gw1Kickoff.Add(-72 * time.Hour),
	}

	logger := logging.NewNop()
	locks := roomlock.NewRegistry()
	ids := &seqIDs{}
	clock := func() time.Time { return h.current }

	h.rooms = NewRoomService(h.store, ids, locks, logger)
	h.rooms.now = clock
	h.picks = NewPickService(h.store, locks, testLockLead, logger)
	h.picks.now = clock
	h.engine = NewEngineService(h.store, locks, h.dist, ids, testLockLead, logger)
	h.engine.now = clock
	h.deals = NewDealService(h.store, locks, h.engine, ids, testDealTTL, logger)
	h.deals.now = clock
	h.fixtures = NewFixtureService(h.store, h.engine, logger)
	h.fixtures.now = clock
	h.sweeps = NewSweepService(h.store, h.engine, h.deals, 2, logger)
	h.sweeps.now = clock
	h.timeline = NewTimelineService(h.store, logger)

	return h
}

func defaultRoomInput() CreateRoomInput {
	return CreateRoomInput{
		HostUserID:       "u-host",
		LeagueID:         testLeagueID,
		Name:             "Last One Standing",
		BuyInCents:       1000,
		MaxPlayers:       4,
		Visibility:       room.VisibilityPrivate,
		DGWRule:          string(room.DGWFirstFixtureCounts),
		NoPickPolicy:     string(room.NoPickDisqualify),
		DealThreshold:    3,
		Recurring:        false,
		StartingGameweek: 1,
	}
}

// startedRoom creates a room, joins the given extra users and starts it.
func (h *harness) startedRoom(t *testing.T, input CreateRoomInput, users ...string) room.Room {
	t.Helper()
	ctx := context.Background()

	created, err := h.rooms.Create(ctx, input)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	for _, u := range users {
		if _, err := h.rooms.JoinByInviteCode(ctx, u, created.InviteCode); err != nil {
			t.Fatalf("join room as %s: %v", u, err)
		}
	}
	started, err := h.rooms.Start(ctx, created.ID, input.HostUserID)
	if err != nil {
		t.Fatalf("start room: %v", err)
	}

	return started
}

func (h *harness) submit(t *testing.T, roomID, userID string, gameweek int, teamID string) {
	t.Helper()
	if _, err := h.picks.Submit(context.Background(), SubmitPickInput{
		RoomID:   roomID,
		UserID:   userID,
		Gameweek: gameweek,
		TeamID:   teamID,
	}); err != nil {
		t.Fatalf("submit pick %s/%s gw%d: %v", userID, teamID, gameweek, err)
	}
}

func (h *harness) lock(t *testing.T, roomID string, gameweek int) LockSummary {
	t.Helper()
	h.current = gw1Kickoff.AddDate(0, 0, 7*(gameweek-1)).Add(-testLockLead)
	summary, err := h.engine.AdvanceToLocked(context.Background(), roomID, gameweek, false)
	if err != nil {
		t.Fatalf("lock gw%d: %v", gameweek, err)
	}
	return summary
}

func (h *harness) score(t *testing.T, fixtureID string, outcome fixture.Outcome) {
	t.Helper()
	if err := h.store.Fixtures().SetOutcome(context.Background(), fixtureID, outcome, h.current); err != nil {
		t.Fatalf("set outcome %s: %v", fixtureID, err)
	}
}

func (h *harness) resolve(t *testing.T, roomID string, gameweek int) ResolveSummary {
	t.Helper()
	summary, err := h.engine.Resolve(context.Background(), roomID, gameweek)
	if err != nil {
		t.Fatalf("resolve gw%d: %v", gameweek, err)
	}
	return summary
}

func (h *harness) member(t *testing.T, roomID, userID string) room.Membership {
	t.Helper()
	m, exists, err := h.store.Rooms().GetMember(context.Background(), roomID, userID)
	if err != nil {
		t.Fatalf("get member %s: %v", userID, err)
	}
	if !exists {
		t.Fatalf("member %s not found in room %s", userID, roomID)
	}
	return m
}

func (h *harness) room(t *testing.T, roomID string) room.Room {
	t.Helper()
	r, exists, err := h.store.Rooms().GetByID(context.Background(), roomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if !exists {
		t.Fatalf("room %s not found", roomID)
	}
	return r
}

func (h *harness) events(t *testing.T, roomID, kind string) []timeline.Event {
	t.Helper()
	all, err := h.store.Timeline().ListByRoom(context.Background(), roomID, 0)
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	var out []timeline.Event
	for _, e := range all {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
