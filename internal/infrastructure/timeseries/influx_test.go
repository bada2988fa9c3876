package timeseries

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

func TestPortfolioRecorder_Notify(t *testing.T) {
	var (
		mu    sync.Mutex
		body  string
		query string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, query = string(data), r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := NewPortfolioRecorder(srv.URL, "token", "acme", "portfolio", logging.NewSilentLogger())
	defer rec.Close()

	rsi := 55.5
	rec.Notify(context.Background(), domain.Portfolio{
		UserID: "u1",
		Holdings: []domain.EnrichedHolding{{
			Holding:        domain.Holding{ID: "h1", CoinID: "bitcoin", Quantity: 2},
			CurrentPrice:   100,
			Profit:         20,
			Indicators:     domain.IndicatorSnapshot{RSI: &rsi},
			Recommendation: domain.Hold,
		}},
		Summary:    domain.PortfolioSummary{TotalInvested: 180, CurrentValue: 200, TotalProfit: 20, Count: 1},
		EnrichedAt: time.Unix(1700000000, 0),
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, query, "org=acme")
	assert.Contains(t, query, "bucket=portfolio")

	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "portfolio_value,user=u1 "))
	assert.Contains(t, lines[0], "value=200")
	assert.True(t, strings.HasPrefix(lines[1], "holding_value,coin=bitcoin,holding=h1,user=u1 "))
	assert.Contains(t, lines[1], "rsi=55.5")
}

func TestPortfolioPoints_SkipsMissingRSI(t *testing.T) {
	points := portfolioPoints(domain.Portfolio{
		UserID:   "u1",
		Holdings: []domain.EnrichedHolding{{Holding: domain.Holding{ID: "h1", CoinID: "bitcoin"}}},
	})

	require.Len(t, points, 2)
	for _, f := range points[1].FieldList() {
		assert.NotEqual(t, "rsi", f.Key)
	}
}
