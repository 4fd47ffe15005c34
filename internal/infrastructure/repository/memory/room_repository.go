package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lastpick/survival-pool/internal/domain/room"
)

type RoomRepository struct {
	mu           sync.RWMutex
	rooms        map[string]room.Room
	byInviteCode map[string]string
	members      map[string]map[string]room.Membership
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms:        make(map[string]room.Room),
		byInviteCode: make(map[string]string),
		members:      make(map[string]map[string]room.Membership),
	}
}

func (r *RoomRepository) Create(_ context.Context, rm room.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[rm.ID]; exists {
		return fmt.Errorf("room %s already exists", rm.ID)
	}
	if _, taken := r.byInviteCode[rm.InviteCode]; taken {
		return fmt.Errorf("invite code %s already in use", rm.InviteCode)
	}

	r.rooms[rm.ID] = cloneRoom(rm)
	r.byInviteCode[rm.InviteCode] = rm.ID
	r.members[rm.ID] = make(map[string]room.Membership)

	return nil
}

func (r *RoomRepository) GetByID(_ context.Context, roomID string) (room.Room, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return room.Room{}, false, nil
	}

	return cloneRoom(rm), true, nil
}

func (r *RoomRepository) GetByInviteCode(_ context.Context, inviteCode string) (room.Room, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.byInviteCode[inviteCode]
	if !ok {
		return room.Room{}, false, nil
	}
	rm, ok := r.rooms[roomID]
	if !ok {
		return room.Room{}, false, nil
	}

	return cloneRoom(rm), true, nil
}

func (r *RoomRepository) Update(_ context.Context, rm room.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.rooms[rm.ID]
	if !ok {
		return fmt.Errorf("room %s not found", rm.ID)
	}
	if prev.InviteCode != rm.InviteCode {
		if owner, taken := r.byInviteCode[rm.InviteCode]; taken && owner != rm.ID {
			return fmt.Errorf("invite code %s already in use", rm.InviteCode)
		}
		delete(r.byInviteCode, prev.InviteCode)
		r.byInviteCode[rm.InviteCode] = rm.ID
	}
	r.rooms[rm.ID] = cloneRoom(rm)

	return nil
}

func (r *RoomRepository) ListByStatus(_ context.Context, statuses ...string) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	var out []room.Room
	for _, rm := range r.rooms {
		if _, ok := wanted[rm.Status]; ok || len(wanted) == 0 {
			out = append(out, cloneRoom(rm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *RoomRepository) ListByMember(_ context.Context, userID string) ([]room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []room.Room
	for roomID, members := range r.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		if rm, exists := r.rooms[roomID]; exists {
			out = append(out, cloneRoom(rm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *RoomRepository) AddMember(_ context.Context, m room.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[m.RoomID]
	if !ok {
		return fmt.Errorf("room %s not found", m.RoomID)
	}
	if _, exists := members[m.UserID]; exists {
		return fmt.Errorf("user %s already a member of room %s", m.UserID, m.RoomID)
	}
	members[m.UserID] = cloneMembership(m)

	return nil
}

func (r *RoomRepository) GetMember(_ context.Context, roomID, userID string) (room.Membership, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[roomID][userID]
	if !ok {
		return room.Membership{}, false, nil
	}

	return cloneMembership(m), true, nil
}

func (r *RoomRepository) ListMembers(_ context.Context, roomID string) ([]room.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.members[roomID]
	out := make([]room.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, cloneMembership(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })

	return out, nil
}

func (r *RoomRepository) UpdateMember(_ context.Context, m room.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[m.RoomID]
	if !ok {
		return fmt.Errorf("room %s not found", m.RoomID)
	}
	if _, exists := members[m.UserID]; !exists {
		return fmt.Errorf("user %s not a member of room %s", m.UserID, m.RoomID)
	}
	members[m.UserID] = cloneMembership(m)

	return nil
}

func cloneRoom(rm room.Room) room.Room {
	out := rm
	out.WinnerUserIDs = append([]string(nil), rm.WinnerUserIDs...)
	if rm.ArchivedAt != nil {
		at := *rm.ArchivedAt
		out.ArchivedAt = &at
	}
	return out
}

func cloneMembership(m room.Membership) room.Membership {
	out := m
	if m.EliminatedAtGameweek != nil {
		gw := *m.EliminatedAtGameweek
		out.EliminatedAtGameweek = &gw
	}
	return out
}
