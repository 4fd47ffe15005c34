package memory

import (
	"context"
	"sync"

	"github.com/lastpick/survival-pool/internal/domain/timeline"
)

type TimelineRepository struct {
	mu     sync.RWMutex
	byRoom map[string][]timeline.Event
}

func NewTimelineRepository() *TimelineRepository {
	return &TimelineRepository{byRoom: make(map[string][]timeline.Event)}
}

func (r *TimelineRepository) Append(_ context.Context, e timeline.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byRoom[e.RoomID] = append(r.byRoom[e.RoomID], cloneEvent(e))

	return nil
}

func (r *TimelineRepository) ListByRoom(_ context.Context, roomID string, limit int) ([]timeline.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.byRoom[roomID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	out := make([]timeline.Event, 0, len(events))
	for _, e := range events {
		out = append(out, cloneEvent(e))
	}

	return out, nil
}

func cloneEvent(e timeline.Event) timeline.Event {
	out := e
	out.Payload = make(map[string]any, len(e.Payload))
	for k, v := range e.Payload {
		out.Payload[k] = v
	}
	return out
}
