package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lastpick/survival-pool/internal/platform/cache"
	"github.com/lastpick/survival-pool/internal/platform/logging"
)

func TestTeamService_ListByLeagueCaches(t *testing.T) {
	h := newHarness(t)
	svc := NewTeamService(h.store, cache.NewStore(time.Minute), logging.NewNop())

	first, err := svc.ListByLeague(context.Background(), testLeagueID)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("unexpected team count: %d", len(first))
	}

	second, err := svc.ListByLeague(context.Background(), testLeagueID)
	if err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached read diverged: %d vs %d", len(second), len(first))
	}

	if _, err := svc.ListByLeague(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTeamService_Get(t *testing.T) {
	h := newHarness(t)
	svc := NewTeamService(h.store, nil, logging.NewNop())

	got, err := svc.Get(context.Background(), testLeagueID, "t-ars")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if got.Name != "Arsenal" {
		t.Fatalf("unexpected team: %+v", got)
	}

	if _, err := svc.Get(context.Background(), testLeagueID, "t-none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
