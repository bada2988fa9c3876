package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"portfolio-backend/internal/domain"
)

// IndicatorFetcher is the part of IndicatorService the enricher depends on.
type IndicatorFetcher interface {
	FetchIndicators(ctx context.Context, coinID string) domain.IndicatorSnapshot
}

// PortfolioEnricher joins holdings with live prices, indicators and a
// recommendation. Per-request timeouts belong to the market provider.
type PortfolioEnricher struct {
	market      domain.MarketDataProvider
	indicators  IndicatorFetcher
	diagnostics domain.DiagnosticSink
	currency    string
	concurrency int
}

func NewPortfolioEnricher(market domain.MarketDataProvider, indicators IndicatorFetcher, diagnostics domain.DiagnosticSink, currency string, concurrency int) *PortfolioEnricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PortfolioEnricher{
		market:      market,
		indicators:  indicators,
		diagnostics: diagnostics,
		currency:    currency,
		concurrency: concurrency,
	}
}

// Enrich enriches every holding concurrently. The result has the same order
// as holdings. A failure for one holding only degrades that holding: its
// price falls back to 0 and its indicators to nil.
//
// When the provider can batch, all spot prices come from one call made
// alongside the indicator fetches.
func (e *PortfolioEnricher) Enrich(ctx context.Context, holdings []domain.Holding) []domain.EnrichedHolding {
	result := make([]domain.EnrichedHolding, len(holdings))
	if len(holdings) == 0 {
		return result
	}

	price := e.perCoinPrice
	if batch, ok := e.market.(domain.BatchPriceProvider); ok {
		price = e.batchPrices(ctx, batch, holdings)
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			result[i] = e.enrichOne(ctx, h, price)
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// priceFunc resolves the spot price of one coin, 0 when unavailable.
type priceFunc func(ctx context.Context, coinID string) float64

func (e *PortfolioEnricher) enrichOne(ctx context.Context, h domain.Holding, spot priceFunc) domain.EnrichedHolding {
	var (
		wg    sync.WaitGroup
		price float64
		snap  domain.IndicatorSnapshot
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		price = spot(ctx, h.CoinID)
	}()
	go func() {
		defer wg.Done()
		snap = e.indicators.FetchIndicators(ctx, h.CoinID)
	}()
	wg.Wait()

	return domain.EnrichedHolding{
		Holding:        h,
		CurrentPrice:   price,
		Profit:         (price - h.BuyPrice) * h.Quantity,
		Indicators:     snap,
		Recommendation: Recommend(price, snap.RSI, snap.SMA7, snap.SMA21),
	}
}

func (e *PortfolioEnricher) perCoinPrice(ctx context.Context, coinID string) float64 {
	price, err := e.market.SpotPrice(ctx, coinID, e.currency)
	if err != nil {
		e.diagnostics.Report(coinID, fmt.Errorf("fetch spot price: %w", err))
		return 0
	}
	return price
}

// batchPrices starts one batched price request for the distinct coins of
// holdings. The returned func blocks until that request has finished.
func (e *PortfolioEnricher) batchPrices(ctx context.Context, batch domain.BatchPriceProvider, holdings []domain.Holding) priceFunc {
	var (
		done   = make(chan struct{})
		prices map[string]float64
		err    error
	)
	go func() {
		defer close(done)
		prices, err = batch.SpotPrices(ctx, distinctCoins(holdings), e.currency)
	}()

	return func(_ context.Context, coinID string) float64 {
		<-done
		if err != nil {
			e.diagnostics.Report(coinID, fmt.Errorf("fetch spot price: %w", err))
			return 0
		}
		price, ok := prices[coinID]
		if !ok {
			e.diagnostics.Report(coinID, fmt.Errorf("fetch spot price: %s: %w", coinID, domain.ErrPriceNotFound))
			return 0
		}
		return price
	}
}

func distinctCoins(holdings []domain.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	coins := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if !seen[h.CoinID] {
			seen[h.CoinID] = true
			coins = append(coins, h.CoinID)
		}
	}
	return coins
}
