package dataprocessing

import (
	"errors"
	"math"
)

// PercentChange returns (current - previous) / previous * 100.
func PercentChange(previous, current float64) (float64, error) {
	if previous == 0 {
		return 0, errors.New("previous value is zero")
	}
	return (current - previous) / previous * 100, nil
}

// SampleStdDev returns the standard deviation of values with an n-1 denominator.
func SampleStdDev(values []float64) (float64, error) {
	n := len(values)
	if n < 2 {
		return 0, errors.New("need at least two values")
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1)), nil
}

// RollingStdDev computes SampleStdDev over every trailing window of the given
// size. out[i] is nil until a full window of non-nil values ends at i.
func RollingStdDev(values []*float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window < 2 {
		return out
	}

	buf := make([]float64, 0, window)
	for i := window - 1; i < len(values); i++ {
		buf = buf[:0]
		for _, v := range values[i-window+1 : i+1] {
			if v == nil {
				break
			}
			buf = append(buf, *v)
		}
		if len(buf) != window {
			continue
		}
		if sd, err := SampleStdDev(buf); err == nil {
			out[i] = &sd
		}
	}
	return out
}
