package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/lastpick/survival-pool/internal/domain/room"
)

type roomTableModel struct {
	ID               string         `db:"id"`
	LeagueID         string         `db:"league_id"`
	Name             string         `db:"name"`
	HostUserID       string         `db:"host_user_id"`
	InviteCode       string         `db:"invite_code"`
	Status           string         `db:"status"`
	BuyInCents       int64          `db:"buy_in_cents"`
	MaxPlayers       int            `db:"max_players"`
	Visibility       string         `db:"visibility"`
	DGWRule          string         `db:"dgw_rule"`
	NoPickPolicy     string         `db:"no_pick_policy"`
	DealThreshold    int            `db:"deal_threshold"`
	Recurring        bool           `db:"recurring"`
	PotCents         int64          `db:"pot_cents"`
	StartingGameweek int            `db:"starting_gameweek"`
	CurrentGameweek  int            `db:"current_gameweek"`
	CurrentPhase     string         `db:"current_phase"`
	WinnerUserIDs    pq.StringArray `db:"winner_user_ids"`
	CreatedAt        time.Time      `db:"created_at"`
	ArchivedAt       *time.Time     `db:"archived_at"`
}

func (m roomTableModel) toDomain() room.Room {
	return room.Room{
		ID:         m.ID,
		LeagueID:   m.LeagueID,
		Name:       m.Name,
		HostUserID: m.HostUserID,
		Config: room.Config{
			BuyInCents:    m.BuyInCents,
			MaxPlayers:    m.MaxPlayers,
			Visibility:    m.Visibility,
			DGWRule:       room.DGWRule(m.DGWRule),
			NoPickPolicy:  room.NoPickPolicy(m.NoPickPolicy),
			DealThreshold: m.DealThreshold,
			Recurring:     m.Recurring,
		},
		InviteCode:       m.InviteCode,
		Status:           m.Status,
		PotCents:         m.PotCents,
		StartingGameweek: m.StartingGameweek,
		CurrentGameweek:  m.CurrentGameweek,
		CurrentPhase:     room.GameweekPhase(m.CurrentPhase),
		WinnerUserIDs:    []string(m.WinnerUserIDs),
		CreatedAt:        m.CreatedAt,
		ArchivedAt:       m.ArchivedAt,
	}
}

type memberTableModel struct {
	RoomID               string    `db:"room_id"`
	UserID               string    `db:"user_id"`
	Status               string    `db:"status"`
	JoinSeq              int       `db:"join_seq"`
	EliminatedAtGameweek *int      `db:"eliminated_at_gameweek"`
	JoinedAt             time.Time `db:"joined_at"`
}

func (m memberTableModel) toDomain() room.Membership {
	return room.Membership{
		RoomID:               m.RoomID,
		UserID:               m.UserID,
		Status:               m.Status,
		JoinSeq:              m.JoinSeq,
		EliminatedAtGameweek: m.EliminatedAtGameweek,
		JoinedAt:             m.JoinedAt,
	}
}
