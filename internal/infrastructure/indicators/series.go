package indicators

import (
	"fmt"
	"math"
)

// Last returns a pointer to the final value of a series, or nil when the
// series is empty.
func Last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundPtr rounds the pointed-to value to two decimal places. Nil stays nil.
func RoundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

func mustPositive(period int) {
	if period <= 0 {
		panic(fmt.Sprintf("indicators: period must be positive, got %d", period))
	}
}
