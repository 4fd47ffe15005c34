package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
)

func TestCreateRoom_HostJoinsAndPotStarts(t *testing.T) {
	h := newHarness(t)

	created, err := h.rooms.Create(context.Background(), defaultRoomInput())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if created.Status != room.StatusOpen {
		t.Fatalf("unexpected status: %s", created.Status)
	}
	if created.PotCents != 1000 {
		t.Fatalf("pot should hold the host buy-in: %d", created.PotCents)
	}
	if created.InviteCode == "" {
		t.Fatal("invite code missing")
	}

	host := h.member(t, created.ID, "u-host")
	if host.JoinSeq != 1 || !host.Active() {
		t.Fatalf("unexpected host membership: %+v", host)
	}
	if len(h.events(t, created.ID, timeline.KindMemberJoined)) != 1 {
		t.Fatal("expected member_joined event for the host")
	}
}

func TestCreateRoom_ValidatesConfig(t *testing.T) {
	h := newHarness(t)

	cases := map[string]func(*CreateRoomInput){
		"one player max":     func(in *CreateRoomInput) { in.MaxPlayers = 1 },
		"negative buy-in":    func(in *CreateRoomInput) { in.BuyInCents = -100 },
		"bad dgw rule":       func(in *CreateRoomInput) { in.DGWRule = "coin_flip" },
		"bad no-pick policy": func(in *CreateRoomInput) { in.NoPickPolicy = "forgive" },
		"threshold too low":  func(in *CreateRoomInput) { in.DealThreshold = 1 },
		"threshold too high": func(in *CreateRoomInput) { in.DealThreshold = 9 },
		"bad visibility":     func(in *CreateRoomInput) { in.Visibility = "secret" },
		"zero gameweek":      func(in *CreateRoomInput) { in.StartingGameweek = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := defaultRoomInput()
			mutate(&input)
			if _, err := h.rooms.Create(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestJoinByInviteCode_AccruesPotAndFillsRoom(t *testing.T) {
	h := newHarness(t)

	input := defaultRoomInput()
	input.MaxPlayers = 3
	created, err := h.rooms.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", created.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	full, err := h.rooms.JoinByInviteCode(context.Background(), "u-three", created.InviteCode)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if full.Status != room.StatusFull {
		t.Fatalf("room should be full: %s", full.Status)
	}
	if full.PotCents != 3000 {
		t.Fatalf("unexpected pot: %d", full.PotCents)
	}

	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-late", created.InviteCode); !errors.Is(err, ErrRoomNotJoinable) {
		t.Fatalf("expected ErrRoomNotJoinable, got %v", err)
	}
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", created.InviteCode); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("duplicate join should conflict, got %v", err)
	}
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-x", "NOPE99"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code should be not found, got %v", err)
	}
}

func TestStart_RequiresHostAndQuorum(t *testing.T) {
	h := newHarness(t)

	created, err := h.rooms.Create(context.Background(), defaultRoomInput())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := h.rooms.Start(context.Background(), created.ID, "u-host"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("solo start should fail, got %v", err)
	}

	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", created.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := h.rooms.Start(context.Background(), created.ID, "u-two"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-host start should fail, got %v", err)
	}

	started, err := h.rooms.Start(context.Background(), created.ID, "u-host")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != room.StatusInProgress || started.CurrentPhase != room.PhasePicksOpen {
		t.Fatalf("unexpected state: %s/%s", started.Status, started.CurrentPhase)
	}
	if len(h.events(t, created.ID, timeline.KindGameStarted)) != 1 {
		t.Fatal("expected game_started event")
	}

	// Joining a running room is rejected.
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-late", created.InviteCode); !errors.Is(err, ErrRoomNotJoinable) {
		t.Fatalf("expected ErrRoomNotJoinable, got %v", err)
	}
	if _, err := h.rooms.Start(context.Background(), created.ID, "u-host"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("double start should conflict, got %v", err)
	}
}

func TestList_MineAndPublicScopes(t *testing.T) {
	h := newHarness(t)

	mine, err := h.rooms.Create(context.Background(), defaultRoomInput())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	publicInput := defaultRoomInput()
	publicInput.HostUserID = "u-other"
	publicInput.Name = "Open To All"
	publicInput.Visibility = room.VisibilityPublic
	open, err := h.rooms.Create(context.Background(), publicInput)
	if err != nil {
		t.Fatalf("create public room: %v", err)
	}

	got, err := h.rooms.List(context.Background(), "u-host", "")
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("default scope should hold only the member's rooms: %+v", got)
	}
	if got[0].InviteCode != mine.InviteCode {
		t.Fatal("members keep their invite codes")
	}

	got, err = h.rooms.List(context.Background(), "u-host", "public")
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if len(got) != 1 || got[0].ID != open.ID {
		t.Fatalf("public scope should hide private rooms: %+v", got)
	}
	if got[0].InviteCode != "" {
		t.Fatal("discovery listing must not leak invite codes")
	}

	// The public room's own host still sees its code.
	got, err = h.rooms.List(context.Background(), "u-other", "public")
	if err != nil {
		t.Fatalf("list public as host: %v", err)
	}
	if len(got) != 1 || got[0].InviteCode != open.InviteCode {
		t.Fatalf("host should keep the invite code: %+v", got)
	}

	// Archived rooms drop out of both scopes.
	if err := h.rooms.Archive(context.Background(), mine.ID, "u-host"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got, err = h.rooms.List(context.Background(), "u-host", "mine")
	if err != nil {
		t.Fatalf("list after archive: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("archived rooms should be hidden: %+v", got)
	}

	if _, err := h.rooms.List(context.Background(), "u-host", "everything"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegenerateInviteCode_HostOnly(t *testing.T) {
	h := newHarness(t)

	created, err := h.rooms.Create(context.Background(), defaultRoomInput())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := h.rooms.RegenerateInviteCode(context.Background(), created.ID, "u-two"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	updated, err := h.rooms.RegenerateInviteCode(context.Background(), created.ID, "u-host")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.InviteCode == created.InviteCode {
		t.Fatal("invite code should change")
	}

	// The old code stops working, the new one works.
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", created.InviteCode); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old code should be dead, got %v", err)
	}
	if _, err := h.rooms.JoinByInviteCode(context.Background(), "u-two", updated.InviteCode); err != nil {
		t.Fatalf("join with new code: %v", err)
	}
}

func TestArchive_HidesRoomButKeepsHistory(t *testing.T) {
	h := newHarness(t)

	created, err := h.rooms.Create(context.Background(), defaultRoomInput())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if err := h.rooms.Archive(context.Background(), created.ID, "u-host"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	// Archiving twice is a no-op.
	if err := h.rooms.Archive(context.Background(), created.ID, "u-host"); err != nil {
		t.Fatalf("re-archive: %v", err)
	}

	got := h.room(t, created.ID)
	if got.ArchivedAt == nil {
		t.Fatal("archived_at not set")
	}

	events, err := h.timeline.ListByRoom(context.Background(), created.ID, 10)
	if err != nil {
		t.Fatalf("timeline after archive: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("timeline should survive archival")
	}
}
