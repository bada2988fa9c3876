package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/coingecko"
)

func newTestEnricher(market *fakeMarket, sink *recordingSink) *PortfolioEnricher {
	indicators := NewIndicatorService(market, sink, "inr", 30)
	return NewPortfolioEnricher(market, indicators, sink, "inr", 4)
}

func holding(id, coin string, qty, buy float64) domain.Holding {
	return domain.Holding{ID: id, UserID: "u1", CoinID: coin, Quantity: qty, BuyPrice: buy}
}

func TestEnrich_Profit(t *testing.T) {
	market := newFakeMarket()
	market.prices["bitcoin"] = 1200000
	market.histories["bitcoin"] = zigzag(30, 1200000)
	e := newTestEnricher(market, &recordingSink{})

	got := e.Enrich(context.Background(), []domain.Holding{holding("h1", "bitcoin", 2, 1000000)})

	require.Len(t, got, 1)
	assert.Equal(t, 1200000.0, got[0].CurrentPrice)
	assert.Equal(t, 400000.0, got[0].Profit)
	assert.Equal(t, "h1", got[0].ID)
}

func TestEnrich_IndicatorFailureIsolated(t *testing.T) {
	market := newFakeMarket()
	for coin, price := range map[string]float64{"bitcoin": 100, "ethereum": 50, "solana": 10} {
		market.prices[coin] = price
		market.histories[coin] = zigzag(30, price)
	}
	market.failHist["ethereum"] = true
	sink := &recordingSink{}
	e := newTestEnricher(market, sink)

	holdings := []domain.Holding{
		holding("h1", "bitcoin", 1, 90),
		holding("h2", "ethereum", 1, 40),
		holding("h3", "solana", 1, 5),
	}
	got := e.Enrich(context.Background(), holdings)

	require.Len(t, got, 3)
	for i, h := range holdings {
		assert.Equal(t, h.ID, got[i].ID)
	}

	assert.Equal(t, domain.Hold, got[1].Recommendation)
	assert.True(t, got[1].Indicators.IsEmpty())
	assert.Equal(t, 50.0, got[1].CurrentPrice)

	for _, i := range []int{0, 2} {
		assert.NotNil(t, got[i].Indicators.SMA7)
		assert.NotNil(t, got[i].Indicators.SMA21)
		assert.NotNil(t, got[i].Indicators.RSI)
	}
	assert.Equal(t, []string{"ethereum"}, sink.reported())
}

func TestEnrich_PriceFailureFallsBackToZero(t *testing.T) {
	market := newFakeMarket()
	market.histories["bitcoin"] = zigzag(30, 100)
	market.failPrice["bitcoin"] = true
	sink := &recordingSink{}
	e := newTestEnricher(market, sink)

	got := e.Enrich(context.Background(), []domain.Holding{holding("h1", "bitcoin", 2, 10)})

	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].CurrentPrice)
	assert.Equal(t, -20.0, got[0].Profit)
	assert.NotNil(t, got[0].Indicators.RSI)
	assert.Equal(t, []string{"bitcoin"}, sink.reported())
}

func TestEnrich_PreservesOrderUnderVaryingLatency(t *testing.T) {
	market := newFakeMarket()
	coins := []string{"a", "b", "c", "d", "e", "f"}
	holdings := make([]domain.Holding, len(coins))
	for i, coin := range coins {
		market.prices[coin] = float64(i + 1)
		market.delays[coin] = time.Duration(len(coins)-i) * 5 * time.Millisecond
		holdings[i] = holding(coin, coin, 1, 1)
	}
	e := newTestEnricher(market, &recordingSink{})

	got := e.Enrich(context.Background(), holdings)

	require.Len(t, got, len(coins))
	for i, coin := range coins {
		assert.Equal(t, coin, got[i].CoinID)
		assert.Equal(t, float64(i+1), got[i].CurrentPrice)
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	market := newFakeMarket()
	market.prices["bitcoin"] = 120
	market.prices["ethereum"] = 80
	market.histories["bitcoin"] = series(30, 100, 1)
	market.histories["ethereum"] = series(30, 100, -1)
	e := newTestEnricher(market, &recordingSink{})

	holdings := []domain.Holding{
		holding("h1", "bitcoin", 1, 100),
		holding("h2", "ethereum", 3, 90),
	}
	first := e.Enrich(context.Background(), holdings)
	second := e.Enrich(context.Background(), holdings)

	assert.Equal(t, first, second)
}

func TestEnrich_Empty(t *testing.T) {
	e := newTestEnricher(newFakeMarket(), &recordingSink{})

	got := e.Enrich(context.Background(), nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func newBatchEnricher(market *batchMarket, sink *recordingSink) *PortfolioEnricher {
	indicators := NewIndicatorService(market, sink, "inr", 30)
	return NewPortfolioEnricher(market, indicators, sink, "inr", 4)
}

func TestEnrich_BatchPrices(t *testing.T) {
	market := &batchMarket{fakeMarket: newFakeMarket()}
	market.prices["bitcoin"] = 100
	market.prices["ethereum"] = 50
	for _, coin := range []string{"bitcoin", "ethereum", "notacoin"} {
		market.histories[coin] = zigzag(30, 10)
	}
	sink := &recordingSink{}
	e := newBatchEnricher(market, sink)

	got := e.Enrich(context.Background(), []domain.Holding{
		holding("h1", "bitcoin", 1, 90),
		holding("h2", "ethereum", 2, 40),
		holding("h3", "bitcoin", 1, 80),
		holding("h4", "notacoin", 1, 1),
	})

	require.Len(t, got, 4)
	assert.Equal(t, []float64{100, 50, 100, 0}, []float64{got[0].CurrentPrice, got[1].CurrentPrice, got[2].CurrentPrice, got[3].CurrentPrice})
	assert.Equal(t, 20.0, got[2].Profit)
	assert.Equal(t, [][]string{{"bitcoin", "ethereum", "notacoin"}}, market.batches)
	assert.Equal(t, []string{"notacoin"}, sink.reported())
}

func TestEnrich_BatchFailureDegradesPricesOnly(t *testing.T) {
	market := &batchMarket{fakeMarket: newFakeMarket(), batchErr: errUpstream}
	market.histories["bitcoin"] = zigzag(30, 10)
	market.histories["ethereum"] = zigzag(30, 10)
	sink := &recordingSink{}
	e := newBatchEnricher(market, sink)

	got := e.Enrich(context.Background(), []domain.Holding{
		holding("h1", "bitcoin", 1, 5),
		holding("h2", "ethereum", 1, 5),
	})

	for _, h := range got {
		assert.Zero(t, h.CurrentPrice)
		assert.NotNil(t, h.Indicators.RSI)
	}
	assert.ElementsMatch(t, []string{"bitcoin", "ethereum"}, sink.reported())
}

// coinGeckoStub serves /simple/price for any ids and a 30-day zigzag history
// for any coin.
func coinGeckoStub(t *testing.T, priceCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/simple/price":
			priceCalls.Add(1)
			body := map[string]map[string]float64{}
			for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
				body[id] = map[string]float64{"inr": 1000}
			}
			json.NewEncoder(w).Encode(body)
		case strings.HasSuffix(r.URL.Path, "/market_chart"):
			prices := make([][2]float64, 30)
			for i, p := range zigzag(30, 1000) {
				prices[i] = [2]float64{float64(1700000000000 + int64(i)*86400000), p}
			}
			json.NewEncoder(w).Encode(map[string]any{"prices": prices})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnrich_RateLimitedClientCompletesLargePortfolio(t *testing.T) {
	var priceCalls atomic.Int32
	srv := coinGeckoStub(t, &priceCalls)

	// 60/min allows a burst of 10, then one request per second. The 12
	// history requests plus one price batch wait longer than the timeout.
	client := coingecko.NewClient(
		coingecko.WithBaseURL(srv.URL),
		coingecko.WithRateLimit(60),
		coingecko.WithTimeout(200*time.Millisecond),
	)
	sink := &recordingSink{}
	e := NewPortfolioEnricher(client, NewIndicatorService(client, sink, "inr", 30), sink, "inr", 10)

	holdings := make([]domain.Holding, 12)
	for i := range holdings {
		coin := fmt.Sprintf("coin-%02d", i)
		holdings[i] = holding(coin, coin, 1, 500)
	}

	got := e.Enrich(context.Background(), holdings)

	require.Len(t, got, len(holdings))
	for i, h := range got {
		assert.Equal(t, holdings[i].ID, h.ID)
		assert.Equal(t, 1000.0, h.CurrentPrice, h.CoinID)
		assert.NotNil(t, h.Indicators.RSI, h.CoinID)
	}
	assert.Empty(t, sink.reported())
	assert.Equal(t, int32(1), priceCalls.Load())
}
