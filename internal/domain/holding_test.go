package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHolding(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))

	h, err := NewHolding("u1", "  Bitcoin ", 2, 1000000, now)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", h.CoinID)
	assert.Equal(t, "u1", h.UserID)
	assert.Empty(t, h.ID)
	assert.Equal(t, time.UTC, h.AddedAt.Location())
	assert.True(t, h.AddedAt.Equal(now))
}

func TestNewHolding_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		coinID   string
		quantity float64
		buyPrice float64
	}{
		{"missing user", "", "bitcoin", 1, 1},
		{"blank coin", "u1", "   ", 1, 1},
		{"zero quantity", "u1", "bitcoin", 0, 1},
		{"negative quantity", "u1", "bitcoin", -1, 1},
		{"zero buy price", "u1", "bitcoin", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHolding(tt.userID, tt.coinID, tt.quantity, tt.buyPrice, time.Now())
			assert.ErrorIs(t, err, ErrInvalidHolding)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]EnrichedHolding{
		{Holding: Holding{Quantity: 2, BuyPrice: 1000000}, CurrentPrice: 1200000, Profit: 400000},
		{Holding: Holding{Quantity: 1, BuyPrice: 100}, CurrentPrice: 0, Profit: -100},
	})

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 2000100.0, s.TotalInvested)
	assert.Equal(t, 2400000.0, s.CurrentValue)
	assert.Equal(t, 399900.0, s.TotalProfit)

	assert.Equal(t, PortfolioSummary{}, Summarize(nil))
}

func TestRecommendationIsStrong(t *testing.T) {
	assert.True(t, StrongBuy.IsStrong())
	assert.True(t, StrongSell.IsStrong())
	assert.False(t, Buy.IsStrong())
	assert.False(t, Hold.IsStrong())
	assert.False(t, Sell.IsStrong())
}

func TestNormalizeCoinID(t *testing.T) {
	assert.Equal(t, "bitcoin", NormalizeCoinID("  BitCoin\t"))
	assert.Equal(t, "", NormalizeCoinID("   "))
}
