package tensor

import "math"

// ReLU clamps negative elements to zero in place.
func (t *Tensor) ReLU() {
	for i, v := range t.data {
		if v < 0 {
			t.data[i] = 0
		}
	}
}

// ReLUSlice clamps negative elements of x to zero in place.
func ReLUSlice(x []float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// PReLUSlice applies a parametric rectifier in place: negative elements are
// scaled by slope, nonnegative elements pass through.
func PReLUSlice(x []float64, slope float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = v * slope
		}
	}
}

// SoftmaxStrided normalizes count elements of x spaced stride apart,
// starting at x[0], so they are nonnegative and sum to one. The maximum is
// subtracted before exponentiation for numerical stability.
func SoftmaxStrided(x []float64, count, stride int) {
	maxV := x[0]
	for c := 1; c < count; c++ {
		if v := x[c*stride]; v > maxV {
			maxV = v
		}
	}
	sum := 0.0
	for c := 0; c < count; c++ {
		e := math.Exp(x[c*stride] - maxV)
		x[c*stride] = e
		sum += e
	}
	inv := 1.0 / sum
	for c := 0; c < count; c++ {
		x[c*stride] *= inv
	}
}
