package layers

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convtas/go-conv-tasnet/internal/testutil"
	"github.com/convtas/go-conv-tasnet/tensor"
)

const convTolerance = 1e-12

// naiveDepthwise computes the causal dilated depthwise convolution directly
// from its definition: y[t] = sum_p w[p] * x[t - (P-1-p)*dilation], with x
// treated as zero before its start.
func naiveDepthwise(c *depthwiseConv, x *tensor.Tensor) *tensor.Tensor {
	m, k := x.Dim(0), x.Dim(2)
	out := tensor.New(m, c.channels, k)
	for b := 0; b < m; b++ {
		for ch := 0; ch < c.channels; ch++ {
			kern := c.weight.Data()[ch*c.kernel : (ch+1)*c.kernel]
			for t := 0; t < k; t++ {
				sum := 0.0
				for p := 0; p < c.kernel; p++ {
					src := t - (c.kernel-1-p)*c.dilation
					if src >= 0 {
						sum += kern[p] * x.At(b, ch, src)
					}
				}
				out.Set(sum, b, ch, t)
			}
		}
	}
	return out
}

func TestDepthwiseConv_MatchesDefinition(t *testing.T) {
	tests := []struct {
		name     string
		kernel   int
		dilation int
	}{
		{"kernel3_dilation1", 3, 1},
		{"kernel3_dilation2", 3, 2},
		{"kernel3_dilation4", 3, 4},
		{"kernel2_dilation8", 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			conv := newDepthwiseConv(testChannels, tt.kernel, tt.dilation, rng)
			x := testutil.RandTensor(2, testBatch, testChannels, 16)

			got := conv.Apply(x)
			want := naiveDepthwise(conv, x)

			testutil.AssertTensorsInDelta(t, want, got, convTolerance)
		})
	}
}

func TestDepthwiseConv_PreservesLength(t *testing.T) {
	// Kernel 3 with dilation 4 pads 8 samples on the left and chomps 8 from
	// the raw output, so the time axis length is unchanged.
	rng := rand.New(rand.NewSource(1))
	conv := newDepthwiseConv(testChannels, 3, 4, rng)
	require.Equal(t, 8, conv.pad)

	x := testutil.RandTensor(3, 1, testChannels, 10)
	out := conv.Apply(x)

	testutil.AssertShape(t, out, 1, testChannels, 10)
}

func TestDepthwiseConv_Causal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	conv := newDepthwiseConv(1, 3, 2, rng)

	const steps = 12
	const disturbed = 7
	base := testutil.RandTensor(5, 1, 1, steps)
	perturbed := base.Clone()
	perturbed.Set(perturbed.At(0, 0, disturbed)+5, 0, 0, disturbed)

	a := conv.Apply(base)
	b := conv.Apply(perturbed)

	for s := 0; s < disturbed; s++ {
		assert.Equal(t, a.At(0, 0, s), b.At(0, 0, s),
			"output at step %d must not see future step %d", s, disturbed)
	}
	assert.NotEqual(t, a.At(0, 0, disturbed), b.At(0, 0, disturbed))
}

func TestPointwiseConv_ProjectsChannels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	conv := newPointwiseConv(3, 2, rng)
	// Hand-set weights: out0 = 2*in0, out1 = in1 + in2.
	copy(conv.weight.Data(), []float64{
		2, 0, 0,
		0, 1, 1,
	})

	x := tensor.FromSlice([]float64{
		1, 2, // channel 0
		3, 4, // channel 1
		5, 6, // channel 2
	}, 1, 3, 2)
	out := conv.Apply(x)

	testutil.AssertShape(t, out, 1, 2, 2)
	assert.InDelta(t, 2.0, out.At(0, 0, 0), convTolerance)
	assert.InDelta(t, 4.0, out.At(0, 0, 1), convTolerance)
	assert.InDelta(t, 8.0, out.At(0, 1, 0), convTolerance)
	assert.InDelta(t, 10.0, out.At(0, 1, 1), convTolerance)
}

func TestKaimingUniform_WithinBound(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := tensor.New(16, 4)
	kaimingUniform(w, 4, rng)

	testutil.AssertAllInRange(t, w.Data(), -0.5, 0.5)

	nonZero := 0
	for _, v := range w.Data() {
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 0, "weights must actually be initialized")
}

func TestPReLU_DefaultSlope(t *testing.T) {
	p := newPReLU()
	x := tensor.FromSlice([]float64{-4, 2}, 2)
	p.Apply(x)

	assert.Equal(t, []float64{-1, 2}, x.Data())
}
