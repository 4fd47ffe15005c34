package memory

import (
	"context"
	"sync"

	"github.com/lastpick/survival-pool/internal/domain/team"
)

type TeamRepository struct {
	mu            sync.RWMutex
	teamsByLeague map[string][]team.Team
	indexByLeague map[string]map[string]team.Team
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	teamsByLeague := make(map[string][]team.Team)
	indexByLeague := make(map[string]map[string]team.Team)

	for _, t := range teams {
		teamsByLeague[t.LeagueID] = append(teamsByLeague[t.LeagueID], t)
		if _, ok := indexByLeague[t.LeagueID]; !ok {
			indexByLeague[t.LeagueID] = make(map[string]team.Team)
		}
		indexByLeague[t.LeagueID][t.ID] = t
	}

	return &TeamRepository{
		teamsByLeague: teamsByLeague,
		indexByLeague: indexByLeague,
	}
}

func (r *TeamRepository) ListByLeague(_ context.Context, leagueID string) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := r.teamsByLeague[leagueID]
	out := make([]team.Team, 0, len(teams))
	out = append(out, teams...)

	return out, nil
}

func (r *TeamRepository) GetByID(_ context.Context, leagueID, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.indexByLeague[leagueID][teamID]
	return t, ok, nil
}
