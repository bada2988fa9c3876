package indicators

// CalculateSMA computes the Simple Moving Average of every window of period
// consecutive prices. The result has len(prices)-period+1 values and is empty
// when there are fewer than period prices.
func CalculateSMA(prices []float64, period int) []float64 {
	mustPositive(period)
	if len(prices) < period {
		return []float64{}
	}

	sma := make([]float64, 0, len(prices)-period+1)
	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += prices[j]
		}
		sma = append(sma, sum/float64(period))
	}
	return sma
}
