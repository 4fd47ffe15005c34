package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/lastpick/survival-pool/external/ledger"
	"github.com/lastpick/survival-pool/external/resultsfeed"
	"github.com/lastpick/survival-pool/internal/config"
	"github.com/lastpick/survival-pool/internal/domain/payment"
	"github.com/lastpick/survival-pool/internal/infrastructure/account/gatekeeper"
	"github.com/lastpick/survival-pool/internal/infrastructure/repository/memory"
	"github.com/lastpick/survival-pool/internal/infrastructure/repository/postgres"
	"github.com/lastpick/survival-pool/internal/interfaces/httpapi"
	"github.com/lastpick/survival-pool/internal/platform/cache"
	idgen "github.com/lastpick/survival-pool/internal/platform/id"
	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/platform/resilience"
	"github.com/lastpick/survival-pool/internal/platform/roomlock"
	"github.com/lastpick/survival-pool/internal/storage"
	"github.com/lastpick/survival-pool/internal/usecase"
)

// App is the wired service graph: storage, collaborator clients, the HTTP
// server and the background scheduler.
type App struct {
	Server    *http.Server
	Scheduler *Scheduler

	db     *sqlx.DB
	logger *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	store, db, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	locks := roomlock.NewRegistry()
	ids := idgen.NewRandomGenerator()

	var cacheStore *cache.Store
	if cfg.CacheEnabled {
		cacheStore = cache.NewStore(cfg.CacheTTL)
	}

	engineSvc := usecase.NewEngineService(store, locks, newDistributor(cfg, logger), ids, cfg.LockLeadTime, logger)
	roomSvc := usecase.NewRoomService(store, ids, locks, logger)
	pickSvc := usecase.NewPickService(store, locks, cfg.LockLeadTime, logger)
	dealSvc := usecase.NewDealService(store, locks, engineSvc, ids, cfg.DealProposalTTL, logger)
	fixtureSvc := usecase.NewFixtureService(store, engineSvc, logger)
	teamSvc := usecase.NewTeamService(store, cacheStore, logger)
	timelineSvc := usecase.NewTimelineService(store, logger)
	sweepSvc := usecase.NewSweepService(store, engineSvc, dealSvc, cfg.SweepWorkers, logger)

	var ingestSvc *usecase.IngestService
	if cfg.FeedEnabled {
		feed := resultsfeed.NewClient(resultsfeed.ClientConfig{
			BaseURL: cfg.FeedBaseURL,
			Token:   cfg.FeedToken,
			Timeout: cfg.FeedTimeout,
			Logger:  logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled: true,
			},
		})
		ingestSvc = usecase.NewIngestService(store, feed, fixtureSvc, logger)
	}

	verifier := gatekeeper.NewClient(
		&http.Client{Timeout: cfg.GateTimeout},
		cfg.GateBaseURL,
		cfg.GateIntrospectPath,
		cfg.GateServiceKey,
		resilience.CircuitBreakerConfig{
			Enabled:          cfg.GateCircuitEnabled,
			FailureThreshold: cfg.GateCircuitFailureCount,
			OpenTimeout:      cfg.GateCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GateCircuitHalfOpenMaxReq,
		},
		logger,
	)

	handler := httpapi.NewHandler(roomSvc, pickSvc, dealSvc, engineSvc, fixtureSvc, teamSvc, timelineSvc, sweepSvc, ingestSvc, logger)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:    server,
		Scheduler: NewScheduler(sweepSvc, ingestSvc, cfg.SweepInterval, cfg.FeedPollInterval, logger),
		db:        db,
		logger:    logger,
	}, nil
}

// Close stops the scheduler and releases the storage connections. The
// HTTP server is shut down by the caller first so in-flight requests can
// still reach the database.
func (a *App) Close() error {
	a.Scheduler.Stop()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// newStore picks the storage backend: postgres when DB_URL is set, the
// seeded in-memory store otherwise. The in-memory store is for local
// development only; nothing survives a restart.
func newStore(cfg config.Config, logger *logging.Logger) (storage.Store, *sqlx.DB, error) {
	if cfg.DBURL == "" {
		logger.Warn("DB_URL not set, using in-memory storage")
		return memory.NewStore(memory.SeedTeams(), memory.SeedFixtures()), nil, nil
	}

	db, err := otelsqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	return postgres.NewStore(db), db, nil
}

func newDistributor(cfg config.Config, logger *logging.Logger) payment.Distributor {
	if !cfg.LedgerEnabled {
		return logDistributor{logger: logger}
	}

	return ledger.NewClient(ledger.ClientConfig{
		BaseURL:    cfg.LedgerBaseURL,
		APIKey:     cfg.LedgerToken,
		Timeout:    cfg.LedgerTimeout,
		MaxRetries: cfg.LedgerMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LedgerCircuitEnabled,
			FailureThreshold: cfg.LedgerCircuitFailureCount,
			OpenTimeout:      cfg.LedgerCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LedgerCircuitHalfOpenMaxReq,
		},
	})
}

// logDistributor records payouts in the log instead of moving money.
// Stands in for the ledger in environments without one.
type logDistributor struct {
	logger *logging.Logger
}

func (d logDistributor) Distribute(ctx context.Context, roomID string, potCents int64, shares map[string]decimal.Decimal) error {
	d.logger.InfoContext(ctx, "payout recorded without ledger",
		"room_id", roomID,
		"pot_cents", potCents,
		"winners", len(shares),
	)
	return nil
}
