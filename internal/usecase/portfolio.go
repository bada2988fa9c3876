package usecase

import (
	"context"
	"fmt"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// Enricher produces one enriched holding per input holding, in input order.
type Enricher interface {
	Enrich(ctx context.Context, holdings []domain.Holding) []domain.EnrichedHolding
}

// Alerter is told about every freshly enriched portfolio.
type Alerter interface {
	Notify(ctx context.Context, p domain.Portfolio)
}

// Alerters notifies each Alerter in turn.
type Alerters []Alerter

func (a Alerters) Notify(ctx context.Context, p domain.Portfolio) {
	for _, alerter := range a {
		alerter.Notify(ctx, p)
	}
}

// PortfolioService runs enrichment passes over a user's holdings.
type PortfolioService struct {
	store    domain.HoldingStore
	enricher Enricher
	cache    domain.PortfolioRepository
	alerter  Alerter
	logger   *logging.Logger
	now      func() time.Time
}

// NewPortfolioService wires the service. alerter may be nil.
func NewPortfolioService(store domain.HoldingStore, enricher Enricher, cache domain.PortfolioRepository, alerter Alerter, logger *logging.Logger) *PortfolioService {
	return &PortfolioService{
		store:    store,
		enricher: enricher,
		cache:    cache,
		alerter:  alerter,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh reads the user's holdings once and recomputes the whole portfolio.
// When overlapping passes finish out of order, the cache keeps the one over
// the latest snapshot and the superseded pass raises no alerts.
func (s *PortfolioService) Refresh(ctx context.Context, userID string) (domain.Portfolio, error) {
	start := s.now()

	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("list holdings: %w", err)
	}

	enriched := s.enricher.Enrich(ctx, holdings)
	p := domain.Portfolio{
		UserID:     userID,
		Holdings:   enriched,
		Summary:    domain.Summarize(enriched),
		SnapshotAt: start.UTC(),
		EnrichedAt: s.now().UTC(),
	}
	if !s.cache.SavePortfolio(p) {
		s.logger.Debug().Str("user", userID).Msg("discarding pass superseded by a newer snapshot")
		return p, nil
	}

	if s.alerter != nil {
		s.alerter.Notify(ctx, p)
	}

	s.logger.Debug().
		Str("user", userID).
		Int("holdings", len(enriched)).
		Dur("took", s.now().Sub(start)).
		Msg("portfolio enriched")
	return p, nil
}

// RefreshAll recomputes every portfolio currently held in the cache.
func (s *PortfolioService) RefreshAll(ctx context.Context) {
	for _, userID := range s.cache.UserIDs() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Refresh(ctx, userID); err != nil {
			s.logger.Error().Err(err).Str("user", userID).Msg("scheduled refresh failed")
		}
	}
}

// Latest returns the cached portfolio of the last pass, if any.
func (s *PortfolioService) Latest(userID string) (domain.Portfolio, bool) {
	return s.cache.GetPortfolio(userID)
}

// OnHoldingsChanged calls fn with a full recompute once right away and again
// after every add or delete on the user's holdings. Changes that arrive while
// a pass is running are coalesced into one further pass, and fn is never
// called concurrently with itself. The returned function stops the
// subscription.
func (s *PortfolioService) OnHoldingsChanged(ctx context.Context, userID string, fn func(domain.Portfolio)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	pending := make(chan struct{}, 1)
	trigger := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	unsubscribe, err := s.store.Subscribe(ctx, userID, trigger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to holdings: %w", err)
	}
	trigger()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				p, err := s.Refresh(ctx, userID)
				if err != nil {
					if ctx.Err() == nil {
						s.logger.Error().Err(err).Str("user", userID).Msg("refresh after change failed")
					}
					continue
				}
				if ctx.Err() == nil {
					fn(p)
				}
			}
		}
	}()

	return func() {
		cancel()
		unsubscribe()
	}, nil
}
