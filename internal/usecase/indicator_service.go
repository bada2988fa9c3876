package usecase

import (
	"context"
	"fmt"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/indicators"
)

const (
	ShortSMAPeriod = 7
	LongSMAPeriod  = 21
)

// IndicatorService turns a coin's price history into its latest indicator
// snapshot. Per-request timeouts belong to the market provider.
type IndicatorService struct {
	market      domain.MarketDataProvider
	diagnostics domain.DiagnosticSink
	currency    string
	historyDays int
}

func NewIndicatorService(market domain.MarketDataProvider, diagnostics domain.DiagnosticSink, currency string, historyDays int) *IndicatorService {
	return &IndicatorService{
		market:      market,
		diagnostics: diagnostics,
		currency:    currency,
		historyDays: historyDays,
	}
}

// FetchIndicators returns SMA-7, SMA-21 and RSI-14 rounded to two decimals.
// It never fails: any fetch error is reported to the diagnostic sink and an
// all-nil snapshot is returned.
func (s *IndicatorService) FetchIndicators(ctx context.Context, coinID string) domain.IndicatorSnapshot {
	prices, err := s.closes(ctx, coinID)
	if err != nil {
		s.diagnostics.Report(coinID, fmt.Errorf("fetch indicators: %w", err))
		return domain.IndicatorSnapshot{}
	}

	return domain.IndicatorSnapshot{
		SMA7:  indicators.RoundPtr(indicators.Last(indicators.CalculateSMA(prices, ShortSMAPeriod))),
		SMA21: indicators.RoundPtr(indicators.Last(indicators.CalculateSMA(prices, LongSMAPeriod))),
		RSI:   indicators.RoundPtr(indicators.Last(indicators.CalculateRSI(prices, indicators.DefaultRSIPeriod))),
	}
}

// Chart returns the raw history with the full indicator series and Bollinger
// bands. Unlike FetchIndicators it surfaces fetch errors to the caller.
func (s *IndicatorService) Chart(ctx context.Context, coinID string) (domain.CoinChart, error) {
	points, err := s.history(ctx, coinID)
	if err != nil {
		return domain.CoinChart{}, err
	}
	prices := closingPrices(points)
	bands := indicators.CalculateBollingerBands(prices, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerWidth)

	return domain.CoinChart{
		CoinID:   coinID,
		Currency: s.currency,
		Prices:   points,
		SMA7:     indicators.CalculateSMA(prices, ShortSMAPeriod),
		SMA21:    indicators.CalculateSMA(prices, LongSMAPeriod),
		RSI:      indicators.CalculateRSI(prices, indicators.DefaultRSIPeriod),
		Bands: domain.Bands{
			Period: indicators.DefaultBollingerPeriod,
			Upper:  bands.Upper,
			Middle: bands.Middle,
			Lower:  bands.Lower,
		},
	}, nil
}

func (s *IndicatorService) closes(ctx context.Context, coinID string) ([]float64, error) {
	points, err := s.history(ctx, coinID)
	if err != nil {
		return nil, err
	}
	return closingPrices(points), nil
}

func (s *IndicatorService) history(ctx context.Context, coinID string) ([]domain.PricePoint, error) {
	return s.market.PriceHistory(ctx, coinID, s.currency, s.historyDays)
}

func closingPrices(points []domain.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
