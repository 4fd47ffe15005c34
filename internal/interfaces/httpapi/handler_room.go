package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lastpick/survival-pool/internal/usecase"
)

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateRoom")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req createRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.roomService.Create(ctx, usecase.CreateRoomInput{
		HostUserID:       principal.UserID,
		LeagueID:         req.LeagueID,
		Name:             req.Name,
		BuyInCents:       req.BuyInCents,
		MaxPlayers:       req.MaxPlayers,
		Visibility:       req.Visibility,
		DGWRule:          req.DGWRule,
		NoPickPolicy:     req.NoPickPolicy,
		DealThreshold:    req.DealThreshold,
		Recurring:        req.Recurring,
		StartingGameweek: req.StartingGameweek,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create room failed", "user_id", principal.UserID, "league_id", req.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, roomToDTO(ctx, created))
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRooms")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	scope := r.URL.Query().Get("scope")
	rooms, err := h.roomService.List(ctx, principal.UserID, scope)
	if err != nil {
		h.logger.WarnContext(ctx, "list rooms failed", "user_id", principal.UserID, "scope", scope, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]roomDTO, 0, len(rooms))
	for _, found := range rooms {
		items = append(items, roomToDTO(ctx, found))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRoom")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	found, err := h.roomService.Get(ctx, roomID)
	if err != nil {
		h.logger.WarnContext(ctx, "get room failed", "room_id", roomID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dto := roomToDTO(ctx, found)
	if !h.isRoomMember(ctx, roomID, principal.UserID) {
		// Invite codes are only shown to people already inside the room.
		dto.InviteCode = ""
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) isRoomMember(ctx context.Context, roomID, userID string) bool {
	members, err := h.roomService.ListMembers(ctx, roomID)
	if err != nil {
		return false
	}
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}

	return false
}

func (h *Handler) ListRoomMembers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRoomMembers")
	defer span.End()

	roomID := r.PathValue("roomID")
	members, err := h.roomService.ListMembers(ctx, roomID)
	if err != nil {
		h.logger.WarnContext(ctx, "list room members failed", "room_id", roomID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]membershipDTO, 0, len(members))
	for _, m := range members {
		items = append(items, membershipToDTO(m))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinRoom")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req joinRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	joined, err := h.roomService.JoinByInviteCode(ctx, principal.UserID, req.InviteCode)
	if err != nil {
		h.logger.WarnContext(ctx, "join room failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, roomToDTO(ctx, joined))
}

func (h *Handler) StartRoom(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartRoom")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	started, err := h.roomService.Start(ctx, roomID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "start room failed", "room_id", roomID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, roomToDTO(ctx, started))
}

func (h *Handler) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegenerateInviteCode")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	updated, err := h.roomService.RegenerateInviteCode(ctx, roomID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "regenerate invite code failed", "room_id", roomID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, roomToDTO(ctx, updated))
}

func (h *Handler) ArchiveRoom(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ArchiveRoom")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	if err := h.roomService.Archive(ctx, roomID, principal.UserID); err != nil {
		h.logger.WarnContext(ctx, "archive room failed", "room_id", roomID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "archived"})
}
