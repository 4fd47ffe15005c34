package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/pick"
	qb "github.com/lastpick/survival-pool/internal/platform/querybuilder"
)

type pickTableModel struct {
	RoomID          string    `db:"room_id"`
	UserID          string    `db:"user_id"`
	Gameweek        int       `db:"gameweek"`
	TeamID          string    `db:"team_id"`
	Status          string    `db:"status"`
	SystemGenerated bool      `db:"system_generated"`
	SubmittedAt     time.Time `db:"submitted_at"`
}

func (m pickTableModel) toDomain() pick.Pick {
	return pick.Pick{
		RoomID:          m.RoomID,
		UserID:          m.UserID,
		Gameweek:        m.Gameweek,
		TeamID:          m.TeamID,
		Status:          m.Status,
		SystemGenerated: m.SystemGenerated,
		SubmittedAt:     m.SubmittedAt,
	}
}

const pickColumns = "room_id, user_id, gameweek, team_id, status, system_generated, submitted_at"

type PickRepository struct {
	db dbtx
}

func NewPickRepository(db dbtx) *PickRepository {
	return &PickRepository{db: db}
}

func (r *PickRepository) Upsert(ctx context.Context, p pick.Pick) error {
	const query = `
INSERT INTO picks (room_id, user_id, gameweek, team_id, status, system_generated, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (room_id, user_id, gameweek)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    status = EXCLUDED.status,
    system_generated = EXCLUDED.system_generated,
    submitted_at = EXCLUDED.submitted_at
WHERE picks.status <> 'locked' OR EXCLUDED.status = 'locked'`

	_, err := r.db.ExecContext(ctx, query,
		p.RoomID, p.UserID, p.Gameweek, p.TeamID, p.Status, p.SystemGenerated, p.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert pick: %w", err)
	}

	return nil
}

func (r *PickRepository) Get(ctx context.Context, roomID, userID string, gameweek int) (pick.Pick, bool, error) {
	query, args, err := qb.Select(pickColumns).
		From("picks").
		Where(
			qb.Eq("room_id", roomID),
			qb.Eq("user_id", userID),
			qb.Eq("gameweek", gameweek),
		).
		ToSQL()
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("build select pick query: %w", err)
	}

	var row pickTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pick.Pick{}, false, nil
		}
		return pick.Pick{}, false, fmt.Errorf("get pick: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *PickRepository) ListByRoomGameweek(ctx context.Context, roomID string, gameweek int) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns).
		From("picks").
		Where(
			qb.Eq("room_id", roomID),
			qb.Eq("gameweek", gameweek),
		).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select picks query: %w", err)
	}

	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select picks by gameweek: %w", err)
	}

	out := make([]pick.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *PickRepository) ListLockedByRoomUser(ctx context.Context, roomID, userID string) ([]pick.Pick, error) {
	query, args, err := qb.Select(pickColumns).
		From("picks").
		Where(
			qb.Eq("room_id", roomID),
			qb.Eq("user_id", userID),
			qb.Eq("status", pick.StatusLocked),
		).
		OrderBy("gameweek").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select locked picks query: %w", err)
	}

	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select locked picks: %w", err)
	}

	out := make([]pick.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}
