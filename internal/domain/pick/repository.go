package pick

import "context"

type Repository interface {
	Upsert(ctx context.Context, p Pick) error
	Get(ctx context.Context, roomID, userID string, gameweek int) (Pick, bool, error)
	ListByRoomGameweek(ctx context.Context, roomID string, gameweek int) ([]Pick, error)
	// ListLockedByRoomUser feeds the derived used-team set; pending picks
	// never burn a team.
	ListLockedByRoomUser(ctx context.Context, roomID, userID string) ([]Pick, error)
}
