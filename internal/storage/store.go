package storage

import (
	"context"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
)

// Store is the storage collaborator used by the use cases. Within hands
// the callback a view of the same store whose writes commit together or
// not at all; lock and resolve transitions rely on that to never
// partially commit.
type Store interface {
	Teams() team.Repository
	Fixtures() fixture.Repository
	Rooms() room.Repository
	Picks() pick.Repository
	Deals() deal.Repository
	Timeline() timeline.Repository

	Within(ctx context.Context, fn func(tx Store) error) error
}
