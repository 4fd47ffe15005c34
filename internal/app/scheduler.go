package app

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/lastpick/survival-pool/internal/platform/logging"
	"github.com/lastpick/survival-pool/internal/usecase"
)

// Scheduler drives the periodic engine work: lock and resolve sweeps,
// deal proposal expiry, and the results feed poll. Each loop runs on its
// own goroutine so a slow feed pull never delays a lock sweep.
type Scheduler struct {
	sweeps        *usecase.SweepService
	ingest        *usecase.IngestService
	sweepInterval time.Duration
	pollInterval  time.Duration
	logger        *logging.Logger

	wg   conc.WaitGroup
	stop chan struct{}
}

func NewScheduler(
	sweeps *usecase.SweepService,
	ingest *usecase.IngestService,
	sweepInterval time.Duration,
	pollInterval time.Duration,
	logger *logging.Logger,
) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Scheduler{
		sweeps:        sweeps,
		ingest:        ingest,
		sweepInterval: sweepInterval,
		pollInterval:  pollInterval,
		logger:        logger,
		stop:          make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Go(s.runSweeps)
	if s.ingest != nil {
		s.wg.Go(s.runFeedPoll)
	}
	s.logger.Info("scheduler started",
		"sweep_interval", s.sweepInterval.String(),
		"feed_poll_enabled", s.ingest != nil,
	)
}

// Stop waits for any in-flight pass to finish before returning.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runSweeps() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepOnce(context.Background())
		}
	}
}

// sweepOnce runs lock before resolve so a room whose results are already
// final still observes the lock transition first.
func (s *Scheduler) sweepOnce(ctx context.Context) {
	if report, err := s.sweeps.LockSweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "lock sweep failed", "error", err)
	} else if report.Advanced > 0 || report.Failed > 0 {
		s.logger.InfoContext(ctx, "lock sweep finished",
			"scanned", report.Scanned, "advanced", report.Advanced, "failed", report.Failed)
	}

	if report, err := s.sweeps.ResolveSweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "resolve sweep failed", "error", err)
	} else if report.Advanced > 0 || report.Failed > 0 {
		s.logger.InfoContext(ctx, "resolve sweep finished",
			"scanned", report.Scanned, "advanced", report.Advanced, "failed", report.Failed)
	}

	if _, err := s.sweeps.ExpireSweep(ctx); err != nil {
		s.logger.ErrorContext(ctx, "expire sweep failed", "error", err)
	}
}

func (s *Scheduler) runFeedPoll() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx := context.Background()
			report, err := s.ingest.PullResults(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "feed poll failed", "error", err)
				continue
			}
			if report.Applied > 0 || report.Failed > 0 {
				s.logger.InfoContext(ctx, "feed poll finished",
					"leagues", report.Leagues,
					"applied", report.Applied,
					"skipped", report.Skipped,
					"failed", report.Failed,
					"elapsed_ms", report.Elapsed.Milliseconds(),
				)
			}
		}
	}
}
