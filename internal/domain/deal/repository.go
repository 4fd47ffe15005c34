package deal

import "context"

type Repository interface {
	Create(ctx context.Context, p Proposal) error
	GetByID(ctx context.Context, proposalID string) (Proposal, bool, error)
	GetOpenByRoom(ctx context.Context, roomID string) (Proposal, bool, error)
	Update(ctx context.Context, p Proposal) error
	ListOpen(ctx context.Context) ([]Proposal, error)
}
