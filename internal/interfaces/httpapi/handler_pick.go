package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lastpick/survival-pool/internal/usecase"
)

func (h *Handler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req submitPickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	submitted, err := h.pickService.Submit(ctx, usecase.SubmitPickInput{
		RoomID:   roomID,
		UserID:   principal.UserID,
		Gameweek: req.Gameweek,
		TeamID:   req.TeamID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit pick failed", "room_id", roomID, "user_id", principal.UserID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pickToDTO(submitted))
}

func (h *Handler) GetMyPick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyPick")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	gameweek, err := pathGameweek(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	found, exists, err := h.pickService.Get(ctx, roomID, principal.UserID, gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "get pick failed", "room_id", roomID, "user_id", principal.UserID, "gameweek", gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !exists {
		writeError(ctx, w, fmt.Errorf("%w: no pick for gameweek %d", usecase.ErrNotFound, gameweek))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pickToDTO(found))
}

func (h *Handler) GetLockTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLockTime")
	defer span.End()

	gameweek, err := pathGameweek(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	lockAt, err := h.pickService.LockTime(ctx, roomID, gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "get lock time failed", "room_id", roomID, "gameweek", gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"gameweek": gameweek,
		"locks_at": lockAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ListMyUsedTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyUsedTeams")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	used, err := h.pickService.UsedTeams(ctx, roomID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list used teams failed", "room_id", roomID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"team_ids": used})
}
