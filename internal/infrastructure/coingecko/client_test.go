package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL), WithRateLimit(6000), WithAPIKey("demo-key"))
}

func TestSpotPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "inr", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		w.Write([]byte(`{"bitcoin":{"inr":1200000}}`))
	})

	price, err := client.SpotPrice(context.Background(), "bitcoin", "inr")
	require.NoError(t, err)
	assert.Equal(t, 1200000.0, price)
}

func TestSpotPrice_UnknownCoin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	price, err := client.SpotPrice(context.Background(), "notacoin", "inr")
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
	assert.Zero(t, price)
}

func TestPriceHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/ethereum/market_chart", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[[1700000060000,11.5],[1700000000000,10],[1700000120000,12]],"total_volumes":[]}`))
	})

	points, err := client.PriceHistory(context.Background(), "ethereum", "inr", 30)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{10, 11.5, 12}, []float64{points[0].Price, points[1].Price, points[2].Price})
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), points[0].Time)
}

func TestPriceHistory_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
	}{
		{"not found", http.StatusNotFound, `{"error":"coin not found"}`, true},
		{"rate limited", http.StatusTooManyRequests, `{}`, true},
		{"bad json", http.StatusOK, `{"prices":`, false},
		{"short point", http.StatusOK, `{"prices":[[1700000000000]]}`, false},
		{"null price", http.StatusOK, `{"prices":[[1700000000000,null]]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.PriceHistory(context.Background(), "bitcoin", "inr", 30)
			require.Error(t, err)

			var apiErr *APIError
			assert.Equal(t, tt.wantAPI, errors.As(err, &apiErr))
			if tt.wantAPI {
				assert.Equal(t, tt.status, apiErr.StatusCode)
			}
			assert.Equal(t, tt.status == http.StatusNotFound, errors.Is(err, domain.ErrPriceNotFound))
		})
	}
}

func TestPriceHistory_ContextTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.PriceHistory(ctx, "bitcoin", "inr", 30)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSpotPrices_OneRequest(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "bitcoin,ethereum,notacoin", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"bitcoin":{"inr":1200000},"ethereum":{"inr":250000}}`))
	})

	prices, err := client.SpotPrices(context.Background(), []string{"bitcoin", "ethereum", "notacoin"}, "inr")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bitcoin": 1200000, "ethereum": 250000}, prices)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSpotPrices_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	prices, err := client.SpotPrices(context.Background(), nil, "inr")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestClient_TimeoutBoundsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(6000), WithTimeout(50*time.Millisecond))

	_, err := client.SpotPrice(context.Background(), "bitcoin", "inr")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_LimiterWaitNotCountedAgainstTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"inr":1}}`))
	}))
	t.Cleanup(srv.Close)
	// 60/min gives a burst of 10 and one token per second afterwards.
	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(60), WithTimeout(100*time.Millisecond))

	for i := 0; i < 11; i++ {
		_, err := client.SpotPrice(context.Background(), "bitcoin", "inr")
		require.NoError(t, err, "request %d", i)
	}
}
