package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
)

type FixtureRepository struct {
	mu       sync.RWMutex
	fixtures map[string]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	byID := make(map[string]fixture.Fixture, len(fixtures))
	for _, f := range fixtures {
		byID[f.ID] = cloneFixture(f)
	}

	return &FixtureRepository{fixtures: byID}
}

func (r *FixtureRepository) GetByID(_ context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fixtures[fixtureID]
	if !ok {
		return fixture.Fixture{}, false, nil
	}

	return cloneFixture(f), true, nil
}

func (r *FixtureRepository) ListByLeagueGameweek(_ context.Context, leagueID string, gameweek int) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []fixture.Fixture
	for _, f := range r.fixtures {
		if f.LeagueID == leagueID && f.Gameweek == gameweek {
			out = append(out, cloneFixture(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *FixtureRepository) SetOutcome(_ context.Context, fixtureID string, outcome fixture.Outcome, finishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fixtures[fixtureID]
	if !ok {
		return fmt.Errorf("fixture %s not found", fixtureID)
	}

	f.Outcome = outcome
	if outcome == fixture.OutcomeUnplayed {
		f.FinishedAt = nil
	} else {
		at := finishedAt
		f.FinishedAt = &at
	}
	r.fixtures[fixtureID] = f

	return nil
}

func cloneFixture(f fixture.Fixture) fixture.Fixture {
	out := f
	if f.FinishedAt != nil {
		at := *f.FinishedAt
		out.FinishedAt = &at
	}
	return out
}
