package room

import "context"

// Repository persists rooms and memberships. Lock/resolve transitions go
// through the transactional store so room, membership, pick and timeline
// writes commit together.
type Repository interface {
	Create(ctx context.Context, r Room) error
	GetByID(ctx context.Context, roomID string) (Room, bool, error)
	GetByInviteCode(ctx context.Context, inviteCode string) (Room, bool, error)
	Update(ctx context.Context, r Room) error
	ListByStatus(ctx context.Context, statuses ...string) ([]Room, error)
	ListByMember(ctx context.Context, userID string) ([]Room, error)

	AddMember(ctx context.Context, m Membership) error
	GetMember(ctx context.Context, roomID, userID string) (Membership, bool, error)
	ListMembers(ctx context.Context, roomID string) ([]Membership, error)
	UpdateMember(ctx context.Context, m Membership) error
}
