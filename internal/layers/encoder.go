package layers

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// Encoder maps a framed waveform batch [M, K, L] to a nonnegative latent
// representation [M, K, N] by projecting each frame through a learned filter
// bank of N filters of width L (no bias) and rectifying the result.
type Encoder struct {
	frameLen int
	filters  int
	weight   *tensor.Tensor // [N, L]
}

// NewEncoder constructs an encoder with frame length l and n filters.
func NewEncoder(l, n int, rng *rand.Rand) *Encoder {
	e := &Encoder{
		frameLen: l,
		filters:  n,
		weight:   tensor.New(n, l),
	}
	kaimingUniform(e.weight, l, rng)
	return e
}

// Apply returns the latent batch [M, K, N] for a waveform batch [M, K, L].
// Each per-batch slab is one matrix product X·Uᵀ followed by rectification.
func (e *Encoder) Apply(mixture *tensor.Tensor) *tensor.Tensor {
	m, k := mixture.Dim(0), mixture.Dim(1)
	out := tensor.New(m, k, e.filters)
	u := mat.NewDense(e.filters, e.frameLen, e.weight.Data())
	for b := 0; b < m; b++ {
		xm := mat.NewDense(k, e.frameLen, mixture.Data()[b*k*e.frameLen:(b+1)*k*e.frameLen])
		om := mat.NewDense(k, e.filters, out.Data()[b*k*e.filters:(b+1)*k*e.filters])
		om.Mul(xm, u.T())
	}
	out.ReLU()
	return out
}

// VisitParams calls fn for each learnable tensor of the encoder.
func (e *Encoder) VisitParams(prefix string, fn func(name string, t *tensor.Tensor)) {
	fn(prefix+".weight", e.weight)
}
