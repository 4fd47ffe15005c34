package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/lastpick/survival-pool/internal/domain/room"
	qb "github.com/lastpick/survival-pool/internal/platform/querybuilder"
)

const roomColumns = "id, league_id, name, host_user_id, invite_code, status, buy_in_cents, max_players, visibility, dgw_rule, no_pick_policy, deal_threshold, recurring, pot_cents, starting_gameweek, current_gameweek, current_phase, winner_user_ids, created_at, archived_at"

const memberColumns = "room_id, user_id, status, join_seq, eliminated_at_gameweek, joined_at"

type RoomRepository struct {
	db dbtx
}

func NewRoomRepository(db dbtx) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, rm room.Room) error {
	const query = `
INSERT INTO rooms (
    id, league_id, name, host_user_id, invite_code, status,
    buy_in_cents, max_players, visibility, dgw_rule, no_pick_policy,
    deal_threshold, recurring, pot_cents, starting_gameweek,
    current_gameweek, current_phase, winner_user_ids, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.ExecContext(ctx, query,
		rm.ID, rm.LeagueID, rm.Name, rm.HostUserID, rm.InviteCode, rm.Status,
		rm.Config.BuyInCents, rm.Config.MaxPlayers, rm.Config.Visibility,
		string(rm.Config.DGWRule), string(rm.Config.NoPickPolicy),
		rm.Config.DealThreshold, rm.Config.Recurring, rm.PotCents,
		rm.StartingGameweek, rm.CurrentGameweek, string(rm.CurrentPhase),
		pq.StringArray(rm.WinnerUserIDs), rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, roomID string) (room.Room, bool, error) {
	return r.getOne(ctx, qb.Eq("id", roomID))
}

func (r *RoomRepository) GetByInviteCode(ctx context.Context, inviteCode string) (room.Room, bool, error) {
	return r.getOne(ctx, qb.Eq("invite_code", inviteCode))
}

func (r *RoomRepository) getOne(ctx context.Context, cond qb.Condition) (room.Room, bool, error) {
	query, args, err := qb.Select(roomColumns).
		From("rooms").
		Where(cond).
		ToSQL()
	if err != nil {
		return room.Room{}, false, fmt.Errorf("build select room query: %w", err)
	}

	var row roomTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return room.Room{}, false, nil
		}
		return room.Room{}, false, fmt.Errorf("get room: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *RoomRepository) Update(ctx context.Context, rm room.Room) error {
	query, args, err := qb.Update("rooms").
		Set("invite_code", rm.InviteCode).
		Set("status", rm.Status).
		Set("pot_cents", rm.PotCents).
		Set("current_gameweek", rm.CurrentGameweek).
		Set("current_phase", string(rm.CurrentPhase)).
		Set("winner_user_ids", pq.StringArray(rm.WinnerUserIDs)).
		Set("archived_at", rm.ArchivedAt).
		Where(qb.Eq("id", rm.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update room query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("room %s not found", rm.ID)
	}

	return nil
}

func (r *RoomRepository) ListByStatus(ctx context.Context, statuses ...string) ([]room.Room, error) {
	builder := qb.Select(roomColumns).From("rooms").OrderBy("created_at", "id")
	if len(statuses) > 0 {
		values := make([]any, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, s)
		}
		builder = builder.Where(qb.In("status", values))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select rooms query: %w", err)
	}

	var rows []roomTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select rooms by status: %w", err)
	}

	out := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RoomRepository) ListByMember(ctx context.Context, userID string) ([]room.Room, error) {
	const query = `
SELECT r.id, r.league_id, r.name, r.host_user_id, r.invite_code, r.status, r.buy_in_cents, r.max_players,
       r.visibility, r.dgw_rule, r.no_pick_policy, r.deal_threshold, r.recurring, r.pot_cents,
       r.starting_gameweek, r.current_gameweek, r.current_phase, r.winner_user_ids, r.created_at, r.archived_at
FROM rooms r
JOIN room_members m ON m.room_id = r.id
WHERE m.user_id = $1
ORDER BY r.created_at, r.id`

	var rows []roomTableModel
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("select rooms by member: %w", err)
	}

	out := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RoomRepository) AddMember(ctx context.Context, m room.Membership) error {
	const query = `
INSERT INTO room_members (room_id, user_id, status, join_seq, eliminated_at_gameweek, joined_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		m.RoomID, m.UserID, m.Status, m.JoinSeq, m.EliminatedAtGameweek, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room member: %w", err)
	}

	return nil
}

func (r *RoomRepository) GetMember(ctx context.Context, roomID, userID string) (room.Membership, bool, error) {
	query, args, err := qb.Select(memberColumns).
		From("room_members").
		Where(
			qb.Eq("room_id", roomID),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return room.Membership{}, false, fmt.Errorf("build select member query: %w", err)
	}

	var row memberTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return room.Membership{}, false, nil
		}
		return room.Membership{}, false, fmt.Errorf("get room member: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *RoomRepository) ListMembers(ctx context.Context, roomID string) ([]room.Membership, error) {
	query, args, err := qb.Select(memberColumns).
		From("room_members").
		Where(qb.Eq("room_id", roomID)).
		OrderBy("join_seq").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select members query: %w", err)
	}

	var rows []memberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select room members: %w", err)
	}

	out := make([]room.Membership, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RoomRepository) UpdateMember(ctx context.Context, m room.Membership) error {
	query, args, err := qb.Update("room_members").
		Set("status", m.Status).
		Set("eliminated_at_gameweek", m.EliminatedAtGameweek).
		Where(
			qb.Eq("room_id", m.RoomID),
			qb.Eq("user_id", m.UserID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update member query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update room member: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("member %s not found in room %s", m.UserID, m.RoomID)
	}

	return nil
}
