package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	qb "github.com/lastpick/survival-pool/internal/platform/querybuilder"
)

type fixtureTableModel struct {
	ID         string     `db:"id"`
	LeagueID   string     `db:"league_id"`
	Gameweek   int        `db:"gameweek"`
	HomeTeamID string     `db:"home_team_id"`
	AwayTeamID string     `db:"away_team_id"`
	KickoffAt  time.Time  `db:"kickoff_at"`
	Outcome    string     `db:"outcome"`
	FinishedAt *time.Time `db:"finished_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:         m.ID,
		LeagueID:   m.LeagueID,
		Gameweek:   m.Gameweek,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		KickoffAt:  m.KickoffAt,
		Outcome:    fixture.Outcome(m.Outcome),
		FinishedAt: m.FinishedAt,
	}
}

const fixtureColumns = "id, league_id, gameweek, home_team_id, away_team_id, kickoff_at, outcome, finished_at"

type FixtureRepository struct {
	db dbtx
}

func NewFixtureRepository(db dbtx) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) GetByID(ctx context.Context, fixtureID string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select(fixtureColumns).
		From("fixtures").
		Where(qb.Eq("id", fixtureID)).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build select fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *FixtureRepository) ListByLeagueGameweek(ctx context.Context, leagueID string, gameweek int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select(fixtureColumns).
		From("fixtures").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("gameweek", gameweek),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures by gameweek: %w", err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *FixtureRepository) SetOutcome(ctx context.Context, fixtureID string, outcome fixture.Outcome, finishedAt time.Time) error {
	builder := qb.Update("fixtures").
		Set("outcome", string(outcome)).
		Where(qb.Eq("id", fixtureID))
	if outcome == fixture.OutcomeUnplayed {
		builder = builder.SetExpr("finished_at", "NULL")
	} else {
		builder = builder.Set("finished_at", finishedAt)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build update fixture query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update fixture outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fixture %s not found", fixtureID)
	}

	return nil
}
