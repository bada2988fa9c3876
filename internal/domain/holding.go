package domain

import (
	"fmt"
	"strings"
	"time"
)

// Holding is a user's recorded position in one coin.
type Holding struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	CoinID   string    `json:"coinId"`
	Quantity float64   `json:"quantity"`
	BuyPrice float64   `json:"buyPrice"`
	AddedAt  time.Time `json:"addedAt"`
}

// NewHolding validates user input and returns a holding ready to be stored.
// The coin id is trimmed and lowercased.
// NormalizeCoinID trims and lowercases a user-supplied coin id.
func NormalizeCoinID(coinID string) string {
	return strings.ToLower(strings.TrimSpace(coinID))
}

func NewHolding(userID, coinID string, quantity, buyPrice float64, now time.Time) (Holding, error) {
	coinID = NormalizeCoinID(coinID)
	switch {
	case userID == "":
		return Holding{}, fmt.Errorf("%w: missing user", ErrInvalidHolding)
	case coinID == "":
		return Holding{}, fmt.Errorf("%w: coin name is required", ErrInvalidHolding)
	case !(quantity > 0):
		return Holding{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidHolding)
	case !(buyPrice > 0):
		return Holding{}, fmt.Errorf("%w: buy price must be positive", ErrInvalidHolding)
	}
	return Holding{
		UserID:   userID,
		CoinID:   coinID,
		Quantity: quantity,
		BuyPrice: buyPrice,
		AddedAt:  now.UTC(),
	}, nil
}

// EnrichedHolding is a holding joined with live market data for one
// enrichment pass. It is never persisted.
type EnrichedHolding struct {
	Holding
	CurrentPrice   float64           `json:"currentPrice"`
	Profit         float64           `json:"profit"`
	Indicators     IndicatorSnapshot `json:"indicators"`
	Recommendation Recommendation    `json:"recommendation"`
}

// PortfolioSummary aggregates an enriched portfolio.
type PortfolioSummary struct {
	TotalInvested float64 `json:"totalInvested"`
	CurrentValue  float64 `json:"currentValue"`
	TotalProfit   float64 `json:"totalProfit"`
	Count         int     `json:"count"`
}

// Summarize totals the enriched holdings.
func Summarize(holdings []EnrichedHolding) PortfolioSummary {
	var s PortfolioSummary
	for _, h := range holdings {
		s.TotalInvested += h.BuyPrice * h.Quantity
		s.CurrentValue += h.CurrentPrice * h.Quantity
		s.TotalProfit += h.Profit
	}
	s.Count = len(holdings)
	return s
}

// Portfolio is the view model handed to the presentation layer.
type Portfolio struct {
	UserID     string            `json:"userId"`
	Holdings   []EnrichedHolding `json:"holdings"`
	Summary    PortfolioSummary  `json:"summary"`
	SnapshotAt time.Time         `json:"snapshotAt"` // when the holdings were read
	EnrichedAt time.Time         `json:"enrichedAt"`
}
