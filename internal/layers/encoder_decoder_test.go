package layers

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convtas/go-conv-tasnet/internal/testutil"
	"github.com/convtas/go-conv-tasnet/tensor"
)

const (
	edFrameLen = 4
	edFilters  = 3
	edFrames   = 5
)

func TestEncoder_OutputShapeAndNonnegativity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := NewEncoder(edFrameLen, edFilters, rng)
	mix := testutil.RandTensor(2, testBatch, edFrames, edFrameLen)

	latent := enc.Apply(mix)

	testutil.AssertShape(t, latent, testBatch, edFrames, edFilters)
	testutil.AssertNonnegative(t, latent)
}

func TestEncoder_KnownFilterBank(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	enc := NewEncoder(2, 2, rng)
	// Filter 0 sums the frame, filter 1 takes the (negated) difference.
	copy(enc.weight.Data(), []float64{
		1, 1,
		-1, 1,
	})

	mix := tensor.FromSlice([]float64{3, 1}, 1, 1, 2)
	latent := enc.Apply(mix)

	assert.Equal(t, 4.0, latent.At(0, 0, 0), "sum filter")
	assert.Equal(t, 0.0, latent.At(0, 0, 1), "negative response must be rectified")
}

func TestDecoder_OutputShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dec := NewDecoder(edFilters, edFrameLen, rng)
	latent := testutil.RandTensor(3, testBatch, edFrames, edFilters)
	latent.ReLU()
	mask := uniformMask(testBatch, edFrames, 2, edFilters)

	out := dec.Apply(latent, mask)

	testutil.AssertShape(t, out, testBatch, 2, edFrames, edFrameLen)
	testutil.AssertNoNaNOrInf(t, out.Data())
}

func TestDecoder_MaskSelectsSources(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dec := NewDecoder(edFilters, edFrameLen, rng)
	latent := testutil.RandTensor(4, 1, edFrames, edFilters)
	latent.ReLU()

	// Source 0 takes the whole latent representation, source 1 nothing.
	mask := tensor.New(1, edFrames, 2, edFilters)
	for f := 0; f < edFrames; f++ {
		for n := 0; n < edFilters; n++ {
			mask.Set(1, 0, f, 0, n)
		}
	}

	out := dec.Apply(latent, mask)

	for f := 0; f < edFrames; f++ {
		for l := 0; l < edFrameLen; l++ {
			assert.InDelta(t, 0, out.At(0, 1, f, l), 0,
				"fully masked source must reconstruct to silence")
		}
	}
}

func TestDecoder_SharedBasisAcrossSources(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dec := NewDecoder(edFilters, edFrameLen, rng)
	latent := testutil.RandTensor(5, 1, edFrames, edFilters)
	latent.ReLU()

	// Identical masks must yield identical reconstructions, because all
	// sources share one synthesis basis.
	mask := uniformMask(1, edFrames, 2, edFilters)
	out := dec.Apply(latent, mask)

	for f := 0; f < edFrames; f++ {
		for l := 0; l < edFrameLen; l++ {
			assert.Equal(t, out.At(0, 0, f, l), out.At(0, 1, f, l))
		}
	}
}

// uniformMask builds a valid mask assigning every source an equal share.
func uniformMask(m, k, c, n int) *tensor.Tensor {
	mask := tensor.New(m, k, c, n)
	v := 1.0 / float64(c)
	data := mask.Data()
	for i := range data {
		data[i] = v
	}
	return mask
}
