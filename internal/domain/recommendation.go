package domain

// Recommendation is the advisory label attached to an enriched holding.
type Recommendation string

const (
	StrongBuy  Recommendation = "Strong Buy"
	Buy        Recommendation = "Buy"
	Hold       Recommendation = "Hold"
	Sell       Recommendation = "Sell"
	StrongSell Recommendation = "Strong Sell"
)

// IsStrong reports whether the label is one of the two extreme signals.
func (r Recommendation) IsStrong() bool {
	return r == StrongBuy || r == StrongSell
}
