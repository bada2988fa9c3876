package domain

import "time"

// PricePoint is one sample of a coin's price history.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// IndicatorSnapshot holds the latest indicator values for a coin.
// A nil field means the history was too short or could not be fetched.
type IndicatorSnapshot struct {
	SMA7  *float64 `json:"sma7"`
	SMA21 *float64 `json:"sma21"`
	RSI   *float64 `json:"rsi"`
}

// IsEmpty reports whether no indicator could be computed.
func (s IndicatorSnapshot) IsEmpty() bool {
	return s.SMA7 == nil && s.SMA21 == nil && s.RSI == nil
}

// CoinChart is a price history with the full indicator series aligned to
// its last points.
type CoinChart struct {
	CoinID   string       `json:"coinId"`
	Currency string       `json:"currency"`
	Prices   []PricePoint `json:"prices"`
	SMA7     []float64    `json:"sma7"`
	SMA21    []float64    `json:"sma21"`
	RSI      []float64    `json:"rsi"`
	Bands    Bands        `json:"bands"`
}

// Bands are Bollinger bands aligned with the SMA series of the same period.
type Bands struct {
	Period int       `json:"period"`
	Upper  []float64 `json:"upper"`
	Middle []float64 `json:"middle"`
	Lower  []float64 `json:"lower"`
}
