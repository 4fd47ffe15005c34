package roomlock

import "sync"

// Registry hands out one mutual-exclusion domain per room so lock, resolve,
// pick and deal transitions for the same room serialize while unrelated
// rooms progress in parallel.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) lock(roomID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roomID] = l
	}

	return l
}

// Do runs fn while holding the room's lock.
func (r *Registry) Do(roomID string, fn func() error) error {
	l := r.lock(roomID)
	l.Lock()
	defer l.Unlock()

	return fn()
}
