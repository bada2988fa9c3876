package usecase

import "portfolio-backend/internal/domain"

// Recommend maps the live price and the latest indicators to an advisory
// label. Missing indicators always yield Hold. The rules are evaluated in
// order and the first match wins.
func Recommend(currentPrice float64, rsi, sma7, sma21 *float64) domain.Recommendation {
	if rsi == nil || sma7 == nil || sma21 == nil {
		return domain.Hold
	}
	r, s7, s21 := *rsi, *sma7, *sma21

	switch {
	case r < 30:
		return domain.StrongBuy
	case r > 70:
		return domain.StrongSell
	case currentPrice > s21 && r >= 40 && r <= 60:
		return domain.Hold
	case currentPrice < s21 && r < 40:
		return domain.Buy
	case s7 > s21 && currentPrice > s7 && r > 60:
		return domain.Sell
	}
	return domain.Hold
}
