package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lastpick/survival-pool/internal/domain/pick"
)

type pickKey struct {
	roomID   string
	userID   string
	gameweek int
}

type PickRepository struct {
	mu    sync.RWMutex
	picks map[pickKey]pick.Pick
}

func NewPickRepository() *PickRepository {
	return &PickRepository{picks: make(map[pickKey]pick.Pick)}
}

func (r *PickRepository) Upsert(_ context.Context, p pick.Pick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pickKey{roomID: p.RoomID, userID: p.UserID, gameweek: p.Gameweek}
	if existing, ok := r.picks[key]; ok && existing.Locked() && p.Status != pick.StatusLocked {
		return fmt.Errorf("pick for %s gw%d is locked", p.UserID, p.Gameweek)
	}
	r.picks[key] = p

	return nil
}

func (r *PickRepository) Get(_ context.Context, roomID, userID string, gameweek int) (pick.Pick, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.picks[pickKey{roomID: roomID, userID: userID, gameweek: gameweek}]
	return p, ok, nil
}

func (r *PickRepository) ListByRoomGameweek(_ context.Context, roomID string, gameweek int) ([]pick.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []pick.Pick
	for key, p := range r.picks {
		if key.roomID == roomID && key.gameweek == gameweek {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })

	return out, nil
}

func (r *PickRepository) ListLockedByRoomUser(_ context.Context, roomID, userID string) ([]pick.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []pick.Pick
	for key, p := range r.picks {
		if key.roomID == roomID && key.userID == userID && p.Locked() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gameweek < out[j].Gameweek })

	return out, nil
}
