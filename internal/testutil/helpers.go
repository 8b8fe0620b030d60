// Package testutil provides reusable test helper functions for the
// separation-network tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	SoftmaxTolerance = 1e-9
	ForwardTolerance = 1e-12
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertNonnegative verifies that every element of the tensor is >= 0.
func AssertNonnegative(t *testing.T, x *tensor.Tensor, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range x.Data() {
		if v < 0 {
			return assert.Fail(t, "negative element",
				"element %d is %f, want >= 0", i, v)
		}
	}
	return true
}

// AssertShape verifies the tensor dimensions.
func AssertShape(t *testing.T, x *tensor.Tensor, want ...int) bool {
	t.Helper()
	return assert.Equal(t, want, x.Dims(), "tensor shape mismatch")
}

// AssertMaskSimplex verifies the separator's softmax invariant on a mask
// tensor [M, K, C, N]: every element lies in [0, 1] and for every
// (batch, frame, filter) triple the values sum to 1 over the source axis.
func AssertMaskSimplex(t *testing.T, mask *tensor.Tensor, tolerance float64) bool {
	t.Helper()
	if !assert.Equal(t, 4, mask.Rank(), "mask must be rank 4") {
		return false
	}
	m, k, c, n := mask.Dim(0), mask.Dim(1), mask.Dim(2), mask.Dim(3)
	if !AssertAllInRange(t, mask.Data(), 0, 1) {
		return false
	}
	for b := 0; b < m; b++ {
		for f := 0; f < k; f++ {
			for fl := 0; fl < n; fl++ {
				sum := 0.0
				for s := 0; s < c; s++ {
					sum += mask.At(b, f, s, fl)
				}
				if !assert.InDelta(t, 1.0, sum, tolerance,
					"mask sum over sources at (batch=%d, frame=%d, filter=%d)", b, f, fl) {
					return false
				}
			}
		}
	}
	return true
}

// AssertTensorsInDelta verifies that two tensors have identical shapes and
// elementwise-equal data within tolerance.
func AssertTensorsInDelta(t *testing.T, want, got *tensor.Tensor, tolerance float64) bool {
	t.Helper()
	if !assert.Equal(t, want.Dims(), got.Dims(), "tensor shape mismatch") {
		return false
	}
	for i, v := range want.Data() {
		if !assert.InDelta(t, v, got.Data()[i], tolerance, "element %d", i) {
			return false
		}
	}
	return true
}

// RandTensor returns a tensor filled with values in [-1, 1) from a seeded rng.
func RandTensor(seed int64, dims ...int) *tensor.Tensor {
	rng := rand.New(rand.NewSource(seed))
	x := tensor.New(dims...)
	data := x.Data()
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return x
}
