package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/storage"
)

// ExternalResult is one final outcome as reported by the upstream feed.
type ExternalResult struct {
	FixtureID string
	Outcome   string
}

// ResultSource is the upstream results feed.
type ResultSource interface {
	FetchFinalOutcomes(ctx context.Context, leagueID string, gameweek int) ([]ExternalResult, error)
}

// IngestReport summarizes one pull from the results feed.
type IngestReport struct {
	Leagues   int
	Applied   int
	Skipped   int
	Failed    int
	StartedAt time.Time
	Elapsed   time.Duration
}

// IngestService pulls final outcomes from the results feed and records
// them. Leagues are derived from the rooms currently in play, so the
// poller never fetches leagues nobody is competing in.
type IngestService struct {
	store    storage.Store
	source   ResultSource
	fixtures *FixtureService
	logger   *logging.Logger
	now      func() time.Time
}

func NewIngestService(store storage.Store, source ResultSource, fixtures *FixtureService, logger *logging.Logger) *IngestService {
	if logger == nil {
		logger = logging.Default()
	}

	return &IngestService{
		store:    store,
		source:   source,
		fixtures: fixtures,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *IngestService) PullResults(ctx context.Context) (IngestReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestService.PullResults")
	defer span.End()

	started := s.now()
	report := IngestReport{StartedAt: started}

	leagues, err := s.activeLeagues(ctx)
	if err != nil {
		return report, err
	}
	report.Leagues = len(leagues)

	for _, leagueID := range leagues {
		results, err := s.source.FetchFinalOutcomes(ctx, leagueID, 0)
		if err != nil {
			report.Failed++
			s.logger.WarnContext(ctx, "fetch feed results failed", "league_id", leagueID, "error", err)
			continue
		}

		for _, result := range results {
			if _, err := s.fixtures.RecordOutcome(ctx, result.FixtureID, result.Outcome); err != nil {
				if errors.Is(err, ErrOutcomeAlreadySet) {
					report.Skipped++
					continue
				}
				report.Failed++
				s.logger.WarnContext(ctx, "record feed outcome failed", "fixture_id", result.FixtureID, "outcome", result.Outcome, "error", err)
				continue
			}
			report.Applied++
		}
	}

	report.Elapsed = s.now().Sub(started)
	return report, nil
}

func (s *IngestService) activeLeagues(ctx context.Context) ([]string, error) {
	rooms, err := s.store.Rooms().ListByStatus(ctx, room.StatusInProgress)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rooms))
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if r.ArchivedAt != nil {
			continue
		}
		if _, ok := seen[r.LeagueID]; ok {
			continue
		}
		seen[r.LeagueID] = struct{}{}
		out = append(out, r.LeagueID)
	}
	sort.Strings(out)

	return out, nil
}
