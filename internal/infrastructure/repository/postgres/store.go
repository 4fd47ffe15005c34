package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/storage"
)

// Store bundles the postgres repositories behind the transactional
// facade. Within opens a database transaction and hands the callback a
// store whose repositories are bound to it; a nested Within reuses the
// caller's transaction.
type Store struct {
	db   *sqlx.DB
	inTx bool

	teams    *TeamRepository
	fixtures *FixtureRepository
	rooms    *RoomRepository
	picks    *PickRepository
	deals    *DealRepository
	timeline *TimelineRepository
}

func NewStore(db *sqlx.DB) *Store {
	return newStore(db, db, false)
}

func newStore(db *sqlx.DB, conn dbtx, inTx bool) *Store {
	return &Store{
		db:       db,
		inTx:     inTx,
		teams:    NewTeamRepository(conn),
		fixtures: NewFixtureRepository(conn),
		rooms:    NewRoomRepository(conn),
		picks:    NewPickRepository(conn),
		deals:    NewDealRepository(conn),
		timeline: NewTimelineRepository(conn),
	}
}

func (s *Store) Teams() team.Repository        { return s.teams }
func (s *Store) Fixtures() fixture.Repository  { return s.fixtures }
func (s *Store) Rooms() room.Repository        { return s.rooms }
func (s *Store) Picks() pick.Repository        { return s.picks }
func (s *Store) Deals() deal.Repository        { return s.deals }
func (s *Store) Timeline() timeline.Repository { return s.timeline }

func (s *Store) Within(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(newStore(s.db, tx, true)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
