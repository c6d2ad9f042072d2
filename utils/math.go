package utils

import (
	"golang.org/x/exp/constraints"
)

// Clamp returns min if value is lesser than min, max if value is greater them max or value if the input value is
// between min and max.
func Clamp[T constraints.Integer | constraints.Float](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Square returns n*n. math.Pow(x, 2) is slow, this is faster.
func Square[T constraints.Integer | constraints.Float](n T) T {
	return n * n
}
