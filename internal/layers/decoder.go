package layers

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// Decoder reconstructs per-source waveforms from the latent representation
// and the estimated masks. Masking happens in the latent domain; a single
// synthesis basis of L outputs per N latent channels (no bias) is shared by
// all sources.
type Decoder struct {
	filters  int
	frameLen int
	basis    *tensor.Tensor // [L, N]
}

// NewDecoder constructs a decoder mapping n latent channels back to frames
// of length l.
func NewDecoder(n, l int, rng *rand.Rand) *Decoder {
	d := &Decoder{
		filters:  n,
		frameLen: l,
		basis:    tensor.New(l, n),
	}
	kaimingUniform(d.basis, n, rng)
	return d
}

// Apply combines the latent batch [M, K, N] with masks [M, K, C, N] and
// returns source estimates [M, C, K, L].
func (d *Decoder) Apply(latent, mask *tensor.Tensor) *tensor.Tensor {
	m, k := latent.Dim(0), latent.Dim(1)
	c := mask.Dim(2)
	n, l := d.filters, d.frameLen

	// Masked latent weights, [M, K, C, N].
	sourceW := make([]float64, m*k*c*n)
	for b := 0; b < m; b++ {
		for t := 0; t < k; t++ {
			lat := latent.Data()[(b*k+t)*n : (b*k+t+1)*n]
			for s := 0; s < c; s++ {
				off := ((b*k+t)*c + s) * n
				row := sourceW[off : off+n]
				copy(row, lat)
				floats.Mul(row, mask.Data()[off:off+n])
			}
		}
	}

	// Shared basis: one (K·C, N)·(N, L) product per batch element, then
	// regroup the rows from frame-major to source-major order.
	out := tensor.New(m, c, k, l)
	v := mat.NewDense(l, n, d.basis.Data())
	synth := make([]float64, k*c*l)
	for b := 0; b < m; b++ {
		src := mat.NewDense(k*c, n, sourceW[b*k*c*n:(b+1)*k*c*n])
		om := mat.NewDense(k*c, l, synth)
		om.Mul(src, v.T())
		for t := 0; t < k; t++ {
			for s := 0; s < c; s++ {
				dst := out.Data()[(((b*c+s)*k)+t)*l : (((b*c+s)*k)+t+1)*l]
				copy(dst, synth[(t*c+s)*l:(t*c+s+1)*l])
			}
		}
	}
	return out
}

// VisitParams calls fn for each learnable tensor of the decoder.
func (d *Decoder) VisitParams(prefix string, fn func(name string, t *tensor.Tensor)) {
	fn(prefix+".weight", d.basis)
}
