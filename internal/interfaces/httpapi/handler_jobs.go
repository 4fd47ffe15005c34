package httpapi

import (
	"fmt"
	"net/http"

	"github.com/lastpick/survival-pool/internal/usecase"
)

// The sweep jobs are invoked by the cron scheduler through the internal
// job routes, and by the in-process scheduler when one is configured.

func (h *Handler) RunLockSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLockSweepJob")
	defer span.End()

	report, err := h.sweepService.LockSweep(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "lock sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sweepReportToDTO(report))
}

func (h *Handler) RunResolveSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunResolveSweepJob")
	defer span.End()

	report, err := h.sweepService.ResolveSweep(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sweepReportToDTO(report))
}

func (h *Handler) RunExpireSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunExpireSweepJob")
	defer span.End()

	report, err := h.sweepService.ExpireSweep(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "expire sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, sweepReportToDTO(report))
}

// RunFeedPullJob pulls final outcomes from the results feed on demand,
// outside the poll interval.
func (h *Handler) RunFeedPullJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFeedPullJob")
	defer span.End()

	if h.ingestService == nil {
		writeError(ctx, w, fmt.Errorf("%w: no results feed configured", usecase.ErrDependencyUnavailable))
		return
	}

	report, err := h.ingestService.PullResults(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "feed pull job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, ingestReportToDTO(report))
}

// LockRoomGameweek force-locks one room ahead of its deadline. Operator
// tooling only; the sweep handles the normal path.
func (h *Handler) LockRoomGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LockRoomGameweek")
	defer span.End()

	var req lockGameweekRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	summary, err := h.engineService.AdvanceToLocked(ctx, roomID, req.Gameweek, req.Force)
	if err != nil {
		h.logger.WarnContext(ctx, "lock room gameweek failed", "room_id", roomID, "gameweek", req.Gameweek, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, lockSummaryToDTO(summary))
}

func (h *Handler) ResolveRoomGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveRoomGameweek")
	defer span.End()

	var req resolveGameweekRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	roomID := r.PathValue("roomID")
	summary, err := h.engineService.Resolve(ctx, roomID, req.Gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve room gameweek failed", "room_id", roomID, "gameweek", req.Gameweek, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, resolveSummaryToDTO(summary))
}
