package httpapi

import (
	"net/http"
)

func (h *Handler) ListTeamsByLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeamsByLeague")
	defer span.End()

	leagueID := r.PathValue("leagueID")
	teams, err := h.teamService.ListByLeague(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "list teams failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamToDTO(t))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetTeamByLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeamByLeague")
	defer span.End()

	leagueID := r.PathValue("leagueID")
	teamID := r.PathValue("teamID")
	found, err := h.teamService.Get(ctx, leagueID, teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "get team failed", "league_id", leagueID, "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamToDTO(found))
}

func (h *Handler) ListFixturesByLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixturesByLeague")
	defer span.End()

	gameweek, err := queryInt(r, "gameweek", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := r.PathValue("leagueID")
	fixtures, err := h.fixtureService.ListByLeagueGameweek(ctx, leagueID, gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixtures failed", "league_id", leagueID, "gameweek", gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]fixtureDTO, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, fixtureToDTO(f))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

// RecordFixtureOutcome is the write path for the result feed. Outcomes
// are write-once; corrections go through OverrideFixtureOutcome.
func (h *Handler) RecordFixtureOutcome(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordFixtureOutcome")
	defer span.End()

	var req recordOutcomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.fixtureService.RecordOutcome(ctx, req.FixtureID, req.Outcome)
	if err != nil {
		h.logger.WarnContext(ctx, "record fixture outcome failed", "fixture_id", req.FixtureID, "outcome", req.Outcome, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixtureToDTO(updated))
}

func (h *Handler) OverrideFixtureOutcome(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.OverrideFixtureOutcome")
	defer span.End()

	var req recordOutcomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.fixtureService.OverrideOutcome(ctx, req.FixtureID, req.Outcome)
	if err != nil {
		h.logger.WarnContext(ctx, "override fixture outcome failed", "fixture_id", req.FixtureID, "outcome", req.Outcome, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "fixture outcome overridden", "fixture_id", req.FixtureID, "outcome", req.Outcome)
	writeSuccess(ctx, w, http.StatusOK, fixtureToDTO(updated))
}

func (h *Handler) ListRoomTimeline(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRoomTimeline")
	defer span.End()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	events, err := h.timelineService.ListByRoom(ctx, roomID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list room timeline failed", "room_id", roomID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]timelineEventDTO, 0, len(events))
	for _, e := range events {
		items = append(items, timelineEventToDTO(e))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
