// Package pricing computes the monthly box price from the weight and volume
// band midpoints.
package pricing

import "math"

// Calculator prices a box from representative band midpoints.
type Calculator struct {
	weights []float64
	volumes []float64
}

// New builds a Calculator over the configured band midpoints. The slices must
// include the zero "unknown" band; it counts toward the averaging divisor.
func New(weights, volumes []float64) Calculator {
	return Calculator{
		weights: append([]float64(nil), weights...),
		volumes: append([]float64(nil), volumes...),
	}
}

// Price returns the monthly price in rubles. A zero operand means the client
// did not know the value; it is replaced by the arithmetic mean of the full
// band table (the zero band stays in the divisor). When both operands are
// zero the two means multiply instead of compounding, which yields a lower
// quote than any pair of known extremes; that asymmetry is the established
// contract and must not be normalized away.
func (c Calculator) Price(weight, volume float64) int {
	if volume == 0 {
		volume = mean(c.volumes)
	}
	if weight == 0 {
		weight = mean(c.weights)
	}
	return int(math.Round(weight * volume * 100))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
