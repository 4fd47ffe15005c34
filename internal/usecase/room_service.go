package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
	"github.com/lastpick/survival-pool/internal/storage"
)

type CreateRoomInput struct {
	HostUserID       string
	LeagueID         string
	Name             string
	BuyInCents       int64
	MaxPlayers       int
	Visibility       string
	DGWRule          string
	NoPickPolicy     string
	DealThreshold    int
	Recurring        bool
	StartingGameweek int
}

type idSource interface {
	NewID() (string, error)
	NewInviteCode() (string, error)
}

// RoomService owns room creation, membership and the open -> in_progress
// part of the lifecycle. Gameweek cycling lives in EngineService.
type RoomService struct {
	store  storage.Store
	ids    idSource
	locks  *roomlock.Registry
	logger *logging.Logger
	now    func() time.Time
}

func NewRoomService(store storage.Store, ids idSource, locks *roomlock.Registry, logger *logging.Logger) *RoomService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RoomService{
		store:  store,
		ids:    ids,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

func (s *RoomService) Create(ctx context.Context, input CreateRoomInput) (room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.Create")
	defer span.End()

	input.HostUserID = strings.TrimSpace(input.HostUserID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.Name = strings.TrimSpace(input.Name)

	if input.HostUserID == "" {
		return room.Room{}, fmt.Errorf("%w: host user id is required", ErrInvalidInput)
	}
	if input.LeagueID == "" {
		return room.Room{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return room.Room{}, fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	if input.StartingGameweek < 1 {
		return room.Room{}, fmt.Errorf("%w: starting gameweek must be >= 1", ErrInvalidInput)
	}

	dgwRule, ok := room.ParseDGWRule(input.DGWRule)
	if !ok {
		return room.Room{}, fmt.Errorf("%w: unknown double gameweek rule %q", ErrInvalidInput, input.DGWRule)
	}
	noPickPolicy, ok := room.ParseNoPickPolicy(input.NoPickPolicy)
	if !ok {
		return room.Room{}, fmt.Errorf("%w: unknown no-pick policy %q", ErrInvalidInput, input.NoPickPolicy)
	}

	cfg := room.Config{
		BuyInCents:    input.BuyInCents,
		MaxPlayers:    input.MaxPlayers,
		Visibility:    strings.ToLower(strings.TrimSpace(input.Visibility)),
		DGWRule:       dgwRule,
		NoPickPolicy:  noPickPolicy,
		DealThreshold: input.DealThreshold,
		Recurring:     input.Recurring,
	}
	if err := cfg.Validate(); err != nil {
		return room.Room{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	roomID, err := s.ids.NewID()
	if err != nil {
		return room.Room{}, fmt.Errorf("generate room id: %w", err)
	}
	inviteCode, err := s.ids.NewInviteCode()
	if err != nil {
		return room.Room{}, fmt.Errorf("generate invite code: %w", err)
	}

	now := s.now()
	created := room.Room{
		ID:               roomID,
		LeagueID:         input.LeagueID,
		Name:             input.Name,
		HostUserID:       input.HostUserID,
		Config:           cfg,
		InviteCode:       inviteCode,
		Status:           room.StatusOpen,
		PotCents:         cfg.BuyInCents,
		StartingGameweek: input.StartingGameweek,
		CurrentGameweek:  input.StartingGameweek,
		CurrentPhase:     room.PhasePicksOpen,
		CreatedAt:        now,
	}

	err = s.store.Within(ctx, func(tx storage.Store) error {
		if err := tx.Rooms().Create(ctx, created); err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		host := room.Membership{
			RoomID:   roomID,
			UserID:   input.HostUserID,
			Status:   room.MemberActive,
			JoinSeq:  1,
			JoinedAt: now,
		}
		if err := tx.Rooms().AddMember(ctx, host); err != nil {
			return fmt.Errorf("add host membership: %w", err)
		}
		return appendEvent(ctx, tx, roomID, now, timeline.KindMemberJoined, map[string]any{
			"user_id":  input.HostUserID,
			"join_seq": 1,
			"is_host":  true,
		})
	})
	if err != nil {
		return room.Room{}, err
	}

	s.logger.InfoContext(ctx, "room created",
		"room_id", roomID,
		"league_id", input.LeagueID,
		"host_user_id", input.HostUserID,
	)

	return created, nil
}

func (s *RoomService) Get(ctx context.Context, roomID string) (room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.Get")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return room.Room{}, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}

	r, exists, err := s.store.Rooms().GetByID(ctx, roomID)
	if err != nil {
		return room.Room{}, fmt.Errorf("get room: %w", err)
	}
	if !exists {
		return room.Room{}, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	return r, nil
}

// List returns rooms visible to a user. The default scope is the rooms the
// user belongs to; scope "public" lists open public rooms for discovery, with
// invite codes blanked unless the caller hosts the room. Archived rooms are
// hidden from both scopes.
func (s *RoomService) List(ctx context.Context, userID, scope string) ([]room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.List")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "", "mine":
		rooms, err := s.store.Rooms().ListByMember(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list rooms by member: %w", err)
		}
		out := make([]room.Room, 0, len(rooms))
		for _, r := range rooms {
			if r.ArchivedAt != nil {
				continue
			}
			out = append(out, r)
		}
		return out, nil
	case room.VisibilityPublic:
		rooms, err := s.store.Rooms().ListByStatus(ctx, room.StatusOpen)
		if err != nil {
			return nil, fmt.Errorf("list open rooms: %w", err)
		}
		out := make([]room.Room, 0, len(rooms))
		for _, r := range rooms {
			if r.ArchivedAt != nil || r.Config.Visibility != room.VisibilityPublic {
				continue
			}
			if r.HostUserID != userID {
				r.InviteCode = ""
			}
			out = append(out, r)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, scope)
	}
}

func (s *RoomService) ListMembers(ctx context.Context, roomID string) ([]room.Membership, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.ListMembers")
	defer span.End()

	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}

	members, err := s.store.Rooms().ListMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

func (s *RoomService) JoinByInviteCode(ctx context.Context, userID, inviteCode string) (room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.JoinByInviteCode")
	defer span.End()

	userID = strings.TrimSpace(userID)
	inviteCode = strings.ToUpper(strings.TrimSpace(inviteCode))
	if userID == "" {
		return room.Room{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if inviteCode == "" {
		return room.Room{}, fmt.Errorf("%w: invite code is required", ErrInvalidInput)
	}

	r, exists, err := s.store.Rooms().GetByInviteCode(ctx, inviteCode)
	if err != nil {
		return room.Room{}, fmt.Errorf("get room by invite code: %w", err)
	}
	if !exists {
		return room.Room{}, fmt.Errorf("%w: invite code %s", ErrNotFound, inviteCode)
	}

	var joined room.Room
	err = s.locks.Do(r.ID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			current, exists, err := tx.Rooms().GetByID(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, r.ID)
			}
			if current.Status != room.StatusOpen {
				return ErrRoomNotJoinable
			}

			if _, exists, err := tx.Rooms().GetMember(ctx, current.ID, userID); err != nil {
				return fmt.Errorf("get membership: %w", err)
			} else if exists {
				return fmt.Errorf("%w: already joined", ErrStateConflict)
			}

			members, err := tx.Rooms().ListMembers(ctx, current.ID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			if len(members) >= current.Config.MaxPlayers {
				return ErrRoomNotJoinable
			}

			now := s.now()
			m := room.Membership{
				RoomID:   current.ID,
				UserID:   userID,
				Status:   room.MemberActive,
				JoinSeq:  len(members) + 1,
				JoinedAt: now,
			}
			if err := tx.Rooms().AddMember(ctx, m); err != nil {
				return fmt.Errorf("add membership: %w", err)
			}

			current.PotCents += current.Config.BuyInCents
			if len(members)+1 >= current.Config.MaxPlayers {
				current.Status = room.StatusFull
			}
			if err := tx.Rooms().Update(ctx, current); err != nil {
				return fmt.Errorf("update room: %w", err)
			}

			if err := appendEvent(ctx, tx, current.ID, now, timeline.KindMemberJoined, map[string]any{
				"user_id":  userID,
				"join_seq": m.JoinSeq,
			}); err != nil {
				return err
			}

			joined = current
			return nil
		})
	})
	if err != nil {
		return room.Room{}, err
	}

	return joined, nil
}

func (s *RoomService) Start(ctx context.Context, roomID, userID string) (room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.Start")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	userID = strings.TrimSpace(userID)
	if roomID == "" || userID == "" {
		return room.Room{}, fmt.Errorf("%w: room id and user id are required", ErrInvalidInput)
	}

	var started room.Room
	err := s.locks.Do(roomID, func() error {
		return s.store.Within(ctx, func(tx storage.Store) error {
			current, exists, err := tx.Rooms().GetByID(ctx, roomID)
			if err != nil {
				return fmt.Errorf("get room: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: room %s", ErrNotFound, roomID)
			}
			if current.HostUserID != userID {
				return fmt.Errorf("%w: only the host can start the room", ErrUnauthorized)
			}
			if current.Status != room.StatusOpen && current.Status != room.StatusFull {
				return fmt.Errorf("%w: room already started", ErrStateConflict)
			}

			members, err := tx.Rooms().ListMembers(ctx, roomID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			if len(members) < 2 {
				return fmt.Errorf("%w: at least 2 members are required to start", ErrStateConflict)
			}

			now := s.now()
			current.Status = room.StatusInProgress
			current.CurrentGameweek = current.StartingGameweek
			current.CurrentPhase = room.PhasePicksOpen
			if err := tx.Rooms().Update(ctx, current); err != nil {
				return fmt.Errorf("update room: %w", err)
			}

			if err := appendEvent(ctx, tx, roomID, now, timeline.KindGameStarted, map[string]any{
				"gameweek":     current.StartingGameweek,
				"member_count": len(members),
				"pot_cents":    current.PotCents,
			}); err != nil {
				return err
			}

			started = current
			return nil
		})
	})
	if err != nil {
		return room.Room{}, err
	}

	s.logger.InfoContext(ctx, "room started", "room_id", roomID, "gameweek", started.StartingGameweek)

	return started, nil
}

func (s *RoomService) RegenerateInviteCode(ctx context.Context, roomID, userID string) (room.Room, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.RegenerateInviteCode")
	defer span.End()

	r, err := s.Get(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if r.HostUserID != strings.TrimSpace(userID) {
		return room.Room{}, fmt.Errorf("%w: only the host can regenerate the invite code", ErrUnauthorized)
	}

	code, err := s.ids.NewInviteCode()
	if err != nil {
		return room.Room{}, fmt.Errorf("generate invite code: %w", err)
	}

	var updated room.Room
	err = s.locks.Do(r.ID, func() error {
		current, exists, err := s.store.Rooms().GetByID(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: room %s", ErrNotFound, r.ID)
		}
		current.InviteCode = code
		if err := s.store.Rooms().Update(ctx, current); err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return room.Room{}, err
	}

	return updated, nil
}

// Archive hides a room from listings. It is the only way a room ever goes
// away; completion keeps the full history queryable.
func (s *RoomService) Archive(ctx context.Context, roomID, userID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.RoomService.Archive")
	defer span.End()

	r, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if r.HostUserID != strings.TrimSpace(userID) {
		return fmt.Errorf("%w: only the host can archive the room", ErrUnauthorized)
	}

	return s.locks.Do(r.ID, func() error {
		current, exists, err := s.store.Rooms().GetByID(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("get room: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: room %s", ErrNotFound, r.ID)
		}
		if current.ArchivedAt != nil {
			return nil
		}
		now := s.now()
		current.ArchivedAt = &now
		if err := s.store.Rooms().Update(ctx, current); err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		return nil
	})
}

func appendEvent(ctx context.Context, tx storage.Store, roomID string, at time.Time, kind string, payload map[string]any) error {
	if err := tx.Timeline().Append(ctx, timeline.Event{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		At:      at,
		Kind:    kind,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("append %s event: %w", kind, err)
	}
	return nil
}
