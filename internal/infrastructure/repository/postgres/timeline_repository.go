package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lastpick/survival-pool/internal/domain/timeline"
	qb "github.com/lastpick/survival-pool/internal/platform/querybuilder"
)

type eventTableModel struct {
	ID      string    `db:"id"`
	RoomID  string    `db:"room_id"`
	At      time.Time `db:"at"`
	Kind    string    `db:"kind"`
	Payload []byte    `db:"payload"`
}

func (m eventTableModel) toDomain() (timeline.Event, error) {
	var payload map[string]any
	if len(m.Payload) > 0 {
		if err := sonic.Unmarshal(m.Payload, &payload); err != nil {
			return timeline.Event{}, fmt.Errorf("decode event payload: %w", err)
		}
	}

	return timeline.Event{
		ID:      m.ID,
		RoomID:  m.RoomID,
		At:      m.At,
		Kind:    m.Kind,
		Payload: payload,
	}, nil
}

const eventColumns = "id, room_id, at, kind, payload"

// TimelineRepository persists room events. The table has no update or
// delete path, matching the append-only contract.
type TimelineRepository struct {
	db dbtx
}

func NewTimelineRepository(db dbtx) *TimelineRepository {
	return &TimelineRepository{db: db}
}

func (r *TimelineRepository) Append(ctx context.Context, e timeline.Event) error {
	payload, err := sonic.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	const query = `
INSERT INTO room_events (id, room_id, at, kind, payload)
VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, e.ID, e.RoomID, e.At, e.Kind, payload); err != nil {
		return fmt.Errorf("insert room event: %w", err)
	}

	return nil
}

func (r *TimelineRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]timeline.Event, error) {
	builder := qb.Select(eventColumns).
		From("room_events").
		Where(qb.Eq("room_id", roomID)).
		OrderBy("at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select room events query: %w", err)
	}

	var rows []eventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select room events: %w", err)
	}

	// Rows come back newest first so LIMIT trims the tail, but callers
	// read the timeline oldest first.
	out := make([]timeline.Event, len(rows))
	for i, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[len(rows)-1-i] = e
	}

	return out, nil
}
