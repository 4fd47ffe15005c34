package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/platform/cache"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/storage"
)

// TeamService serves the league team catalog. The catalog changes once a
// season, so reads go through the in-process cache.
type TeamService struct {
	store  storage.Store
	cache  *cache.Store
	logger *logging.Logger
}

func NewTeamService(store storage.Store, cacheStore *cache.Store, logger *logging.Logger) *TeamService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TeamService{store: store, cache: cacheStore, logger: logger}
}

func (s *TeamService) ListByLeague(ctx context.Context, leagueID string) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.ListByLeague")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return nil, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	load := func(ctx context.Context) (any, error) {
		teams, err := s.store.Teams().ListByLeague(ctx, leagueID)
		if err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}
		return teams, nil
	}

	if s.cache == nil {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return value.([]team.Team), nil
	}

	value, err := s.cache.GetOrLoad(ctx, "teams:league:"+leagueID, load)
	if err != nil {
		return nil, err
	}

	return value.([]team.Team), nil
}

func (s *TeamService) Get(ctx context.Context, leagueID, teamID string) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.Get")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	teamID = strings.TrimSpace(teamID)
	if leagueID == "" || teamID == "" {
		return team.Team{}, fmt.Errorf("%w: league id and team id are required", ErrInvalidInput)
	}

	t, exists, err := s.store.Teams().GetByID(ctx, leagueID, teamID)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team: %w", err)
	}
	if !exists {
		return team.Team{}, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
	}

	return t, nil
}
