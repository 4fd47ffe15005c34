package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/storage"
)

const defaultTimelineLimit = 100

// TimelineService reads the append-only room audit trail.
type TimelineService struct {
	store  storage.Store
	logger *logging.Logger
}

func NewTimelineService(store storage.Store, logger *logging.Logger) *TimelineService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TimelineService{store: store, logger: logger}
}

// ListByRoom returns a room's events oldest first. limit <= 0 falls back
// to the default page size.
func (s *TimelineService) ListByRoom(ctx context.Context, roomID string, limit int) ([]timeline.Event, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TimelineService.ListByRoom")
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultTimelineLimit
	}

	if _, exists, err := s.store.Rooms().GetByID(ctx, roomID); err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	} else if !exists {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	events, err := s.store.Timeline().ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}

	return events, nil
}
