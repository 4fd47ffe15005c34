package memory

import (
	"context"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/storage"
)

// Store bundles the in-memory repositories behind the transactional
// facade. There is no rollback here: callers already serialize room
// mutations through the per-room lock, so Within just runs the callback
// against the same repositories.
type Store struct {
	teams    *TeamRepository
	fixtures *FixtureRepository
	rooms    *RoomRepository
	picks    *PickRepository
	deals    *DealRepository
	timeline *TimelineRepository
}

func NewStore(teams []team.Team, fixtures []fixture.Fixture) *Store {
	return &Store{
		teams:    NewTeamRepository(teams),
		fixtures: NewFixtureRepository(fixtures),
		rooms:    NewRoomRepository(),
		picks:    NewPickRepository(),
		deals:    NewDealRepository(),
		timeline: NewTimelineRepository(),
	}
}

func (s *Store) Teams() team.Repository        { return s.teams }
func (s *Store) Fixtures() fixture.Repository  { return s.fixtures }
func (s *Store) Rooms() room.Repository        { return s.rooms }
func (s *Store) Picks() pick.Repository        { return s.picks }
func (s *Store) Deals() deal.Repository        { return s.deals }
func (s *Store) Timeline() timeline.Repository { return s.timeline }

func (s *Store) Within(_ context.Context, fn func(tx storage.Store) error) error {
	return fn(s)
}
