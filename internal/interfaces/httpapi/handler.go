package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/usecase"
)

type Handler struct {
	roomService     *usecase.RoomService
	pickService     *usecase.PickService
	dealService     *usecase.DealService
	engineService   *usecase.EngineService
	fixtureService  *usecase.FixtureService
	teamService     *usecase.TeamService
	timelineService *usecase.TimelineService
	sweepService    *usecase.SweepService
	ingestService   *usecase.IngestService
	logger          *logging.Logger
	validator       *validator.Validate
}

// NewHandler wires the HTTP surface. ingestService is nil when no results
// feed is configured; the feed pull job then reports unavailable.
func NewHandler(
	roomService *usecase.RoomService,
	pickService *usecase.PickService,
	dealService *usecase.DealService,
	engineService *usecase.EngineService,
	fixtureService *usecase.FixtureService,
	teamService *usecase.TeamService,
	timelineService *usecase.TimelineService,
	sweepService *usecase.SweepService,
	ingestService *usecase.IngestService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		roomService:     roomService,
		pickService:     pickService,
		dealService:     dealService,
		engineService:   engineService,
		fixtureService:  fixtureService,
		teamService:     teamService,
		timelineService: timelineService,
		sweepService:    sweepService,
		ingestService:   ingestService,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
