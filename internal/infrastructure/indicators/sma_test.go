package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		period   int
		expected []float64
	}{
		{
			name:     "seven point window",
			prices:   []float64{10, 11, 12, 13, 14, 15, 16},
			period:   7,
			expected: []float64{13},
		},
		{
			name:     "sliding by one",
			prices:   []float64{10, 20, 30, 40, 50},
			period:   3,
			expected: []float64{20, 30, 40},
		},
		{
			name:     "period of one is the input",
			prices:   []float64{3, 1, 4},
			period:   1,
			expected: []float64{3, 1, 4},
		},
		{
			name:     "insufficient data",
			prices:   []float64{10, 20},
			period:   5,
			expected: []float64{},
		},
		{
			name:     "no data",
			prices:   nil,
			period:   7,
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateSMA(tt.prices, tt.period)
			require.Len(t, result, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], result[i], 1e-9)
			}
		})
	}
}

func TestCalculateSMA_Length(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(100 + i%5)
	}
	for period := 1; period <= 35; period++ {
		want := len(prices) - period + 1
		if want < 0 {
			want = 0
		}
		assert.Len(t, CalculateSMA(prices, period), want, "period %d", period)
	}
}

func TestCalculateSMA_PanicsOnBadPeriod(t *testing.T) {
	assert.Panics(t, func() { CalculateSMA([]float64{1, 2, 3}, 0) })
	assert.Panics(t, func() { CalculateSMA([]float64{1, 2, 3}, -7) })
}

func TestLastAndRound(t *testing.T) {
	assert.Nil(t, Last(nil))
	assert.Nil(t, RoundPtr(nil))

	v := Last([]float64{1, 2, 3.14159})
	require.NotNil(t, v)
	assert.Equal(t, 3.14159, *v)
	assert.Equal(t, 3.14, *RoundPtr(v))
	assert.Equal(t, 2.68, Round2(2.675000001))
	assert.Equal(t, -1.5, Round2(-1.499999))
}
