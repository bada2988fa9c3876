package usecase

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"portfolio-backend/internal/infrastructure/logging"
)

// RefreshScheduler periodically recomputes every cached portfolio so that
// live prices move even when holdings do not.
type RefreshScheduler struct {
	cron       *cron.Cron
	portfolios *PortfolioService
	logger     *logging.Logger
	ctx        context.Context
}

// NewRefreshScheduler registers the refresh task. spec uses the six-field
// cron format with seconds.
func NewRefreshScheduler(ctx context.Context, portfolios *PortfolioService, spec string, logger *logging.Logger) (*RefreshScheduler, error) {
	s := &RefreshScheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		portfolios: portfolios,
		logger:     logger,
		ctx:        ctx,
	}
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("register refresh task: %w", err)
	}
	return s, nil
}

func (s *RefreshScheduler) refresh() {
	s.logger.Debug().Msg("scheduled refresh")
	s.portfolios.RefreshAll(s.ctx)
}

func (s *RefreshScheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("refresh scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *RefreshScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("refresh scheduler stopped")
}
