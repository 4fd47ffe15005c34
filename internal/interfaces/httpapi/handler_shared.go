package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/pick"
	"github.com/lastpick/survival-pool/internal/domain/room"
	"github.com/lastpick/survival-pool/internal/domain/team"
	"github.com/lastpick/survival-pool/internal/domain/timeline"
	"github.com/lastpick/survival-pool/internal/usecase"
)

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func decodeBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathGameweek(r *http.Request) (int, error) {
	raw := r.PathValue("gameweek")
	gw, err := strconv.Atoi(raw)
	if err != nil || gw < 1 {
		return 0, fmt.Errorf("%w: invalid gameweek %q", usecase.ErrInvalidInput, raw)
	}

	return gw, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", usecase.ErrInvalidInput, name, raw)
	}

	return value, nil
}

type createRoomRequest struct {
	LeagueID         string `json:"league_id" validate:"required"`
	Name             string `json:"name" validate:"required,max=100"`
	BuyInCents       int64  `json:"buy_in_cents" validate:"gte=0"`
	MaxPlayers       int    `json:"max_players" validate:"required,gte=2"`
	Visibility       string `json:"visibility" validate:"required,oneof=public private"`
	DGWRule          string `json:"dgw_rule" validate:"required,oneof=first_fixture_counts both_fixtures_count"`
	NoPickPolicy     string `json:"no_pick_policy" validate:"required,oneof=disqualify random_eligible"`
	DealThreshold    int    `json:"deal_threshold" validate:"gte=0"`
	Recurring        bool   `json:"recurring"`
	StartingGameweek int    `json:"starting_gameweek" validate:"required,gte=1"`
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

type submitPickRequest struct {
	Gameweek int    `json:"gameweek" validate:"required,gte=1"`
	TeamID   string `json:"team_id" validate:"required"`
}

type voteRequest struct {
	Choice string `json:"choice" validate:"required,oneof=accept reject"`
}

type recordOutcomeRequest struct {
	FixtureID string `json:"fixture_id" validate:"required"`
	Outcome   string `json:"outcome" validate:"required,oneof=home_win away_win draw"`
}

type lockGameweekRequest struct {
	Gameweek int  `json:"gameweek" validate:"required,gte=1"`
	Force    bool `json:"force"`
}

type resolveGameweekRequest struct {
	Gameweek int `json:"gameweek" validate:"required,gte=1"`
}

type roomConfigDTO struct {
	BuyInCents    int64  `json:"buy_in_cents"`
	MaxPlayers    int    `json:"max_players"`
	Visibility    string `json:"visibility"`
	DGWRule       string `json:"dgw_rule"`
	NoPickPolicy  string `json:"no_pick_policy"`
	DealThreshold int    `json:"deal_threshold"`
	Recurring     bool   `json:"recurring"`
}

type roomDTO struct {
	ID               string        `json:"id"`
	LeagueID         string        `json:"league_id"`
	Name             string        `json:"name"`
	HostUserID       string        `json:"host_user_id"`
	Config           roomConfigDTO `json:"config"`
	InviteCode       string        `json:"invite_code,omitempty"`
	Status           string        `json:"status"`
	PotCents         int64         `json:"pot_cents"`
	StartingGameweek int           `json:"starting_gameweek"`
	CurrentGameweek  int           `json:"current_gameweek"`
	CurrentPhase     string        `json:"current_phase,omitempty"`
	WinnerUserIDs    []string      `json:"winner_user_ids,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

func roomToDTO(ctx context.Context, r room.Room) roomDTO {
	_, span := startSpan(ctx, "httpapi.roomToDTO")
	defer span.End()

	return roomDTO{
		ID:         r.ID,
		LeagueID:   r.LeagueID,
		Name:       r.Name,
		HostUserID: r.HostUserID,
		Config: roomConfigDTO{
			BuyInCents:    r.Config.BuyInCents,
			MaxPlayers:    r.Config.MaxPlayers,
			Visibility:    r.Config.Visibility,
			DGWRule:       string(r.Config.DGWRule),
			NoPickPolicy:  string(r.Config.NoPickPolicy),
			DealThreshold: r.Config.DealThreshold,
			Recurring:     r.Config.Recurring,
		},
		InviteCode:       r.InviteCode,
		Status:           r.Status,
		PotCents:         r.PotCents,
		StartingGameweek: r.StartingGameweek,
		CurrentGameweek:  r.CurrentGameweek,
		CurrentPhase:     string(r.CurrentPhase),
		WinnerUserIDs:    r.WinnerUserIDs,
		CreatedAt:        r.CreatedAt,
	}
}

type membershipDTO struct {
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	JoinSeq              int       `json:"join_seq"`
	EliminatedAtGameweek *int      `json:"eliminated_at_gameweek,omitempty"`
	JoinedAt             time.Time `json:"joined_at"`
}

func membershipToDTO(m room.Membership) membershipDTO {
	return membershipDTO{
		UserID:               m.UserID,
		Status:               m.Status,
		JoinSeq:              m.JoinSeq,
		EliminatedAtGameweek: m.EliminatedAtGameweek,
		JoinedAt:             m.JoinedAt,
	}
}

type pickDTO struct {
	RoomID          string    `json:"room_id"`
	UserID          string    `json:"user_id"`
	Gameweek        int       `json:"gameweek"`
	TeamID          string    `json:"team_id"`
	Status          string    `json:"status"`
	SystemGenerated bool      `json:"system_generated,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func pickToDTO(p pick.Pick) pickDTO {
	return pickDTO{
		RoomID:          p.RoomID,
		UserID:          p.UserID,
		Gameweek:        p.Gameweek,
		TeamID:          p.TeamID,
		Status:          p.Status,
		SystemGenerated: p.SystemGenerated,
		SubmittedAt:     p.SubmittedAt,
	}
}

type proposalDTO struct {
	ID             string            `json:"id"`
	RoomID         string            `json:"room_id"`
	ProposedBy     string            `json:"proposed_by"`
	AtGameweek     int               `json:"at_gameweek"`
	RequiredVoters []string          `json:"required_voters"`
	Votes          map[string]string `json:"votes"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
}

func proposalToDTO(p deal.Proposal) proposalDTO {
	return proposalDTO{
		ID:             p.ID,
		RoomID:         p.RoomID,
		ProposedBy:     p.ProposedBy,
		AtGameweek:     p.AtGameweek,
		RequiredVoters: p.RequiredVoters,
		Votes:          p.Votes,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		ExpiresAt:      p.ExpiresAt,
		ClosedAt:       p.ClosedAt,
	}
}

type teamDTO struct {
	ID       string `json:"id"`
	LeagueID string `json:"league_id"`
	Name     string `json:"name"`
	Short    string `json:"short"`
}

func teamToDTO(t team.Team) teamDTO {
	return teamDTO{
		ID:       t.ID,
		LeagueID: t.LeagueID,
		Name:     t.Name,
		Short:    t.Short,
	}
}

type fixtureDTO struct {
	ID         string     `json:"id"`
	LeagueID   string     `json:"league_id"`
	Gameweek   int        `json:"gameweek"`
	HomeTeamID string     `json:"home_team_id"`
	AwayTeamID string     `json:"away_team_id"`
	KickoffAt  time.Time  `json:"kickoff_at"`
	Outcome    string     `json:"outcome"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func fixtureToDTO(f fixture.Fixture) fixtureDTO {
	return fixtureDTO{
		ID:         f.ID,
		LeagueID:   f.LeagueID,
		Gameweek:   f.Gameweek,
		HomeTeamID: f.HomeTeamID,
		AwayTeamID: f.AwayTeamID,
		KickoffAt:  f.KickoffAt,
		Outcome:    string(f.Outcome),
		FinishedAt: f.FinishedAt,
	}
}

type timelineEventDTO struct {
	ID      string         `json:"id"`
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

func timelineEventToDTO(e timeline.Event) timelineEventDTO {
	return timelineEventDTO{
		ID:      e.ID,
		At:      e.At,
		Kind:    e.Kind,
		Payload: e.Payload,
	}
}

type lockSummaryDTO struct {
	Gameweek     int `json:"gameweek"`
	LockedPicks  int `json:"locked_picks"`
	AutoAssigned int `json:"auto_assigned"`
	Disqualified int `json:"disqualified"`
}

type resolveSummaryDTO struct {
	Gameweek        int      `json:"gameweek"`
	Survivors       int      `json:"survivors"`
	Eliminated      int      `json:"eliminated"`
	Completed       bool     `json:"completed"`
	WinnerUserIDs   []string `json:"winner_user_ids,omitempty"`
	AlreadyResolved bool     `json:"already_resolved,omitempty"`
	RestartedRoomID string   `json:"restarted_room_id,omitempty"`
}

func lockSummaryToDTO(s usecase.LockSummary) lockSummaryDTO {
	return lockSummaryDTO{
		Gameweek:     s.Gameweek,
		LockedPicks:  s.LockedPicks,
		AutoAssigned: s.AutoAssigned,
		Disqualified: s.Disqualified,
	}
}

func resolveSummaryToDTO(s usecase.ResolveSummary) resolveSummaryDTO {
	return resolveSummaryDTO{
		Gameweek:        s.Gameweek,
		Survivors:       s.Survivors,
		Eliminated:      s.Eliminated,
		Completed:       s.Completed,
		WinnerUserIDs:   s.WinnerUserIDs,
		AlreadyResolved: s.AlreadyResolved,
		RestartedRoomID: s.RestartedRoomID,
	}
}

type sweepReportDTO struct {
	Scanned   int   `json:"scanned"`
	Advanced  int   `json:"advanced"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

func sweepReportToDTO(r usecase.SweepReport) sweepReportDTO {
	return sweepReportDTO{
		Scanned:   r.Scanned,
		Advanced:  r.Advanced,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
}

type ingestReportDTO struct {
	Leagues   int   `json:"leagues"`
	Applied   int   `json:"applied"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

func ingestReportToDTO(r usecase.IngestReport) ingestReportDTO {
	return ingestReportDTO{
		Leagues:   r.Leagues,
		Applied:   r.Applied,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
}
