package fixture

import (
	"context"
	"time"
)

// Repository exposes fixture reads plus the single write the result feed
// is allowed to make.
type Repository interface {
	GetByID(ctx context.Context, fixtureID string) (Fixture, bool, error)
	ListByLeagueGameweek(ctx context.Context, leagueID string, gameweek int) ([]Fixture, error)
	SetOutcome(ctx context.Context, fixtureID string, outcome Outcome, finishedAt time.Time) error
}
