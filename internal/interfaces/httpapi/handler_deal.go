package httpapi

import (
	"fmt"
	"net/http"

	"github.com/lastpick/survival-pool/internal/usecase"
)

func (h *Handler) ProposeDeal(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProposeDeal")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	roomID := r.PathValue("roomID")
	proposal, err := h.dealService.Propose(ctx, roomID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "propose deal failed", "room_id", roomID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, proposalToDTO(proposal))
}

func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDeal")
	defer span.End()

	roomID := r.PathValue("roomID")
	proposalID := r.PathValue("proposalID")
	proposal, err := h.dealService.Get(ctx, roomID, proposalID)
	if err != nil {
		h.logger.WarnContext(ctx, "get deal failed", "room_id", roomID, "proposal_id", proposalID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, proposalToDTO(proposal))
}

func (h *Handler) VoteOnDeal(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.VoteOnDeal")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	proposalID := r.PathValue("proposalID")
	proposal, err := h.dealService.Vote(ctx, roomID, proposalID, principal.UserID, req.Choice)
	if err != nil {
		h.logger.WarnContext(ctx, "vote on deal failed", "room_id", roomID, "proposal_id", proposalID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, proposalToDTO(proposal))
}
