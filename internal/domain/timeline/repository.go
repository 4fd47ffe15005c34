package timeline

import "context"

// Repository is append-only by contract: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]Event, error)
}
