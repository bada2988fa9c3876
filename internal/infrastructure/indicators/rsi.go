package indicators

// DefaultRSIPeriod is the lookback used for the reported RSI.
const DefaultRSIPeriod = 14

// zeroLossRS is the relative strength used when the average loss is zero.
// RSI then settles at 100 - 100/101 instead of dividing by zero.
const zeroLossRS = 100.0

// CalculateRSI computes the Relative Strength Index with Wilder smoothing.
//
// The first period deltas seed the average gain and loss. Every later price
// updates both averages and emits one value, so the result holds
// len(prices)-period-1 values and is empty when len(prices) <= period+1.
func CalculateRSI(prices []float64, period int) []float64 {
	mustPositive(period)
	if len(prices) <= period+1 {
		return []float64{}
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change >= 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rsi := make([]float64, 0, len(prices)-period-1)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		rs := zeroLossRS
		if avgLoss != 0 {
			rs = avgGain / avgLoss
		}
		rsi = append(rsi, 100-100/(1+rs))
	}
	return rsi
}
