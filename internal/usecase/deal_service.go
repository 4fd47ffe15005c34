package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
	"github.com/lastpick/survival-pool/internal/storage"
)

// roomCompleter is the slice of EngineService the deal flow needs to
// settle a room when a proposal reaches unanimity.
type roomCompleter interface {
	CompleteRoom(ctx context.Context, tx storage.Store, r room.Room, winners []string, now time.Time) (string, func(context.Context), error)
}

// DealService runs the pot-split negotiation: one open proposal per room
// at a time, unanimous accept from every still-active snapshot voter, any
// reject kills it, silence past the TTL expires it.
type DealService struct {
	store     storage.Store
	locks     *roomlock.Registry
	completer roomCompleter
	ids       idSource
	ttl       time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

func NewDealService(
	store storage.Store,
	locks *roomlock.Registry,
	completer roomCompleter,
	ids idSource,
	ttl time.Duration,
	logger *logging.Logger,
) *DealService {
	if logger == nil {
		logger = logging.Default()
	}

	return &DealService{
		store:     store,
		locks:     locks,
		completer: completer,
		ids:       ids,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Propose opens a pot-split proposal. Only allowed while the survivor
// count is at or below the room's deal threshold, and only one proposal
// can be open at a time.
func (s *DealService) Propose(ctx context.Context, roomID, userID string) (deal.Proposal, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DealService.Propose")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" || userID == "" {
		return deal.Proposal{}, fmt.Errorf("%w: room id and user id are required", ErrInvalidInput)
	}

	var created deal.Proposal
	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			r, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}
			if r.Status != room.StatusInProgress {
				return ErrRoomNotInProgress
			}

			members, err := tx.Rooms().ListMembers(ctx, roomID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			var survivors []room.Membership
			for _, m := range members {
				if m.Active() {
					survivors = append(survivors, m)
				}
			}

			proposer, exists, err := tx.Rooms().GetMember(ctx, roomID, userID)
			if err != nil {
				return fmt.Errorf("get membership: %w", err)
			}
			if !exists {
				return ErrNotAMember
			}
			if !proposer.Active() {
				return ErrAlreadyEliminated
			}
			if len(survivors) > r.Config.DealThreshold {
				return fmt.Errorf("%w: %d survivors exceed the deal threshold of %d",
					ErrStateConflict, len(survivors), r.Config.DealThreshold)
			}
			if len(survivors) < 2 {
				return fmt.Errorf("%w: a deal needs at least 2 survivors", ErrStateConflict)
			}

			now := s.now()
			if open, exists, err := tx.Deals().GetOpenByRoom(ctx, roomID); err != nil {
				return fmt.Errorf("get open proposal: %w", err)
			} else if exists {
				if now.Before(open.ExpiresAt) {
					return ErrProposalPending
				}
				if err := s.expire(ctx, tx, open, now); err != nil {
					return err
				}
			}

			id, err := s.ids.NewID()
			if err != nil {
				return fmt.Errorf("generate proposal id: %w", err)
			}

			voters := make([]string, 0, len(survivors))
			for _, m := range sortedBySeq(survivors) {
				voters = append(voters, m.UserID)
			}

			p := deal.Proposal{
				ID:             id,
				RoomID:         roomID,
				ProposedBy:     userID,
				AtGameweek:     r.CurrentGameweek,
				RequiredVoters: voters,
				Votes:          map[string]string{userID: deal.VoteAccept},
				Status:         deal.StatusOpen,
				CreatedAt:      now,
				ExpiresAt:      now.Add(s.ttl),
			}
			if err := tx.Deals().Create(ctx, p); err != nil {
				return fmt.Errorf("create proposal: %w", err)
			}

			if err := appendEvent(ctx, tx, roomID, now, timeline.KindDealProposed, map[string]any{
				"proposal_id":     id,
				"proposed_by":     userID,
				"gameweek":        r.CurrentGameweek,
				"required_voters": voters,
				"expires_at":      p.ExpiresAt,
			}); err != nil {
				return err
			}

			created = p
			return nil
		})
	})
	if err != nil {
		return deal.Proposal{}, err
	}

	s.logger.InfoContext(ctx, "deal proposed",
		"room_id", roomID,
		"proposal_id", created.ID,
		"proposed_by", userID,
		"required_voters", len(created.RequiredVoters),
	)

	return created, nil
}

// Vote records one member's accept or reject on the open proposal. A
// reject closes the proposal immediately; the final accept settles the
// room with an even pot split across the required voters.
func (s *DealService) Vote(ctx context.Context, roomID, proposalID, userID, choice string) (deal.Proposal, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DealService.Vote")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	proposalID = strings.TrimSpace(proposalID)
	userID = strings.TrimSpace(userID)
	choice = strings.ToLower(strings.TrimSpace(choice))
	if roomID == "" || proposalID == "" || userID == "" {
		return deal.Proposal{}, fmt.Errorf("%w: room id, proposal id and user id are required", ErrInvalidInput)
	}
	if choice != deal.VoteAccept && choice != deal.VoteReject {
		return deal.Proposal{}, fmt.Errorf("%w: vote must be accept or reject", ErrInvalidInput)
	}

	var updated deal.Proposal
	var postCommit func(context.Context)
	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			p, exists, err := tx.Deals().GetByID(ctx, proposalID)
			if err != nil {
				return fmt.Errorf("get proposal: %w", err)
			}
			if !exists || p.RoomID != roomID {
				return fmt.Errorf("%w: proposal %s", ErrNotFound, proposalID)
			}
			if p.Terminal() {
				return ErrProposalClosed
			}

			now := s.now()
			if !now.Before(p.ExpiresAt) {
				if err := s.expire(ctx, tx, p, now); err != nil {
					return err
				}
				return ErrProposalClosed
			}

			if !p.Requires(userID) {
				return ErrNotAMember
			}
			if _, voted := p.Votes[userID]; voted {
				return ErrAlreadyVoted
			}

			if p.Votes == nil {
				p.Votes = make(map[string]string)
			}
			p.Votes[userID] = choice

			if choice == deal.VoteReject {
				p.Status = deal.StatusRejected
				p.ClosedAt = &now
				if err := tx.Deals().Update(ctx, p); err != nil {
					return fmt.Errorf("update proposal: %w", err)
				}
				if err := appendEvent(ctx, tx, roomID, now, timeline.KindDealRejected, map[string]any{
					"proposal_id": p.ID,
					"rejected_by": userID,
				}); err != nil {
					return err
				}
				updated = p
				return nil
			}

			if !p.Unanimous() {
				if err := tx.Deals().Update(ctx, p); err != nil {
					return fmt.Errorf("update proposal: %w", err)
				}
				updated = p
				return nil
			}

			p.Status = deal.StatusAccepted
			p.ClosedAt = &now
			if err := tx.Deals().Update(ctx, p); err != nil {
				return fmt.Errorf("update proposal: %w", err)
			}
			if err := appendEvent(ctx, tx, roomID, now, timeline.KindDealAccepted, map[string]any{
				"proposal_id":     p.ID,
				"winner_user_ids": p.RequiredVoters,
			}); err != nil {
				return err
			}

			r, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}
			_, post, err := s.completer.CompleteRoom(ctx, tx, r, p.RequiredVoters, now)
			if err != nil {
				return err
			}
			postCommit = post

			updated = p
			return nil
		})
	})
	if err != nil {
		return deal.Proposal{}, err
	}

	if postCommit != nil {
		postCommit(ctx)
	}

	s.logger.InfoContext(ctx, "deal vote recorded",
		"room_id", roomID,
		"proposal_id", proposalID,
		"user_id", userID,
		"choice", choice,
		"status", updated.Status,
	)

	return updated, nil
}

func (s *DealService) Get(ctx context.Context, roomID, proposalID string) (deal.Proposal, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DealService.Get")
	defer span.End()

	p, exists, err := s.store.Deals().GetByID(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return deal.Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	if !exists || p.RoomID != strings.TrimSpace(roomID) {
		return deal.Proposal{}, fmt.Errorf("%w: proposal %s", ErrNotFound, proposalID)
	}

	return p, nil
}

// ExpireDue sweeps every open proposal past its deadline into expired.
// Reads race harmlessly with votes; expiry re-checks under the room lock.
func (s *DealService) ExpireDue(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DealService.ExpireDue")
	defer span.End()

	open, err := s.store.Deals().ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open proposals: %w", err)
	}

	expired := 0
	for _, candidate := range open {
		err := s.locks.Do(candidate.RoomID, func() error {
			return s.store.Within(ctx, func(tx storage.Store) error {
				p, exists, err := tx.Deals().GetByID(ctx, candidate.ID)
				if err != nil {
					return fmt.Errorf("get proposal: %w", err)
				}
				if !exists || p.Terminal() {
					return nil
				}
				now := s.now()
				if now.Before(p.ExpiresAt) {
					return nil
				}
				if err := s.expire(ctx, tx, p, now); err != nil {
					return err
				}
				expired++
				return nil
			})
		})
		if err != nil {
			return expired, err
		}
	}

	return expired, nil
}

func (s *DealService) expire(ctx context.Context, tx storage.Store, p deal.Proposal, now time.Time) error {
	p.Status = deal.StatusExpired
	p.ClosedAt = &now
	if err := tx.Deals().Update(ctx, p); err != nil {
		return fmt.Errorf("expire proposal: %w", err)
	}

	return appendEvent(ctx, tx, p.RoomID, now, timeline.KindDealExpired, map[string]any{
		"proposal_id": p.ID,
	})
}
