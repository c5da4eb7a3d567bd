package anomaly

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrInsufficientData is returned when fewer than two points are given
	ErrInsufficientData = errors.New("at least two data points are required")

	// ErrNonFinite is returned when the input or result is NaN or infinite
	ErrNonFinite = errors.New("non-finite value in quartile computation")
)

// Quartiles returns Q1 and Q3 using the exclusive four-partition method:
// with m = n+1, cut point i sits at position i*m/4 of the sorted data and is
// linearly interpolated between its neighbours.
func Quartiles(values []float64) (q1, q3 float64, err error) {
	n := len(values)
	if n < 2 {
		return 0, 0, ErrInsufficientData
	}
	data := make([]float64, n)
	copy(data, values)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, ErrNonFinite
		}
	}
	sort.Float64s(data)

	cut := func(i int) float64 {
		m := n + 1
		j := i * m / 4
		if j < 1 {
			j = 1
		} else if j > n-1 {
			j = n - 1
		}
		delta := float64(i*m - j*4)
		return (data[j-1]*(4-delta) + data[j]*delta) / 4
	}

	q1, q3 = cut(1), cut(3)
	if math.IsNaN(q1) || math.IsInf(q1, 0) || math.IsNaN(q3) || math.IsInf(q3, 0) {
		return 0, 0, ErrNonFinite
	}
	return q1, q3, nil
}
