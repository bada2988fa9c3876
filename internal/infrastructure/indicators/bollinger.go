package indicators

import "math"

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerWidth  = 2.0
)

type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// CalculateBollingerBands returns the SMA of each window of period prices
// with bands width population standard deviations above and below it. The
// series are aligned with CalculateSMA and empty when there are fewer than
// period prices.
func CalculateBollingerBands(prices []float64, period int, width float64) BollingerBands {
	middle := CalculateSMA(prices, period)
	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))

	for i, ma := range middle {
		window := prices[i : i+period]
		sumSqDiff := 0.0
		for _, p := range window {
			diff := p - ma
			sumSqDiff += diff * diff
		}
		stdDev := math.Sqrt(sumSqDiff / float64(period))

		upper[i] = ma + width*stdDev
		lower[i] = ma - width*stdDev
	}

	return BollingerBands{Upper: upper, Middle: middle, Lower: lower}
}
