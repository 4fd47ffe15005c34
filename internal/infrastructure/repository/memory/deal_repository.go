package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lastpick/survival-pool/internal/domain/deal"
)

type DealRepository struct {
	mu        sync.RWMutex
	proposals map[string]deal.Proposal
}

func NewDealRepository() *DealRepository {
	return &DealRepository{proposals: make(map[string]deal.Proposal)}
}

func (r *DealRepository) Create(_ context.Context, p deal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.proposals[p.ID]; exists {
		return fmt.Errorf("proposal %s already exists", p.ID)
	}
	for _, other := range r.proposals {
		if other.RoomID == p.RoomID && other.Status == deal.StatusOpen {
			return fmt.Errorf("room %s already has an open proposal", p.RoomID)
		}
	}
	r.proposals[p.ID] = cloneProposal(p)

	return nil
}

func (r *DealRepository) GetByID(_ context.Context, proposalID string) (deal.Proposal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.proposals[proposalID]
	if !ok {
		return deal.Proposal{}, false, nil
	}

	return cloneProposal(p), true, nil
}

func (r *DealRepository) GetOpenByRoom(_ context.Context, roomID string) (deal.Proposal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.proposals {
		if p.RoomID == roomID && p.Status == deal.StatusOpen {
			return cloneProposal(p), true, nil
		}
	}

	return deal.Proposal{}, false, nil
}

func (r *DealRepository) Update(_ context.Context, p deal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.proposals[p.ID]; !exists {
		return fmt.Errorf("proposal %s not found", p.ID)
	}
	r.proposals[p.ID] = cloneProposal(p)

	return nil
}

func (r *DealRepository) ListOpen(_ context.Context) ([]deal.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []deal.Proposal
	for _, p := range r.proposals {
		if p.Status == deal.StatusOpen {
			out = append(out, cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func cloneProposal(p deal.Proposal) deal.Proposal {
	out := p
	out.RequiredVoters = append([]string(nil), p.RequiredVoters...)
	out.Votes = make(map[string]string, len(p.Votes))
	for k, v := range p.Votes {
		out.Votes[k] = v
	}
	if p.ClosedAt != nil {
		at := *p.ClosedAt
		out.ClosedAt = &at
	}
	return out
}
