package layers

import (
	"math"
	"math/rand"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// paramFunc receives each learnable tensor with its fully qualified name.
type paramFunc func(name string, t *tensor.Tensor)

// kaimingUniform fills t with samples from U(-bound, bound) where
// bound = 1/sqrt(fanIn), the standard initialization for convolution weights.
func kaimingUniform(t *tensor.Tensor, fanIn int, rng *rand.Rand) {
	bound := 1.0 / math.Sqrt(float64(fanIn))
	data := t.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
}

// prelu is a parametric rectifier with a single learnable negative slope,
// initialized to 0.25.
type prelu struct {
	slope *tensor.Tensor // [1]
}

func newPReLU() *prelu {
	s := tensor.New(1)
	s.Data()[0] = 0.25
	return &prelu{slope: s}
}

func (p *prelu) Apply(x *tensor.Tensor) {
	tensor.PReLUSlice(x.Data(), p.slope.Data()[0])
}

func (p *prelu) visitParams(prefix string, fn paramFunc) {
	fn(prefix+".slope", p.slope)
}

// pointwiseConv is a kernel-size-1 convolution projecting inC channels to
// outC channels over channel-first input [M, inC, K], no bias. Each batch
// element reduces to a single matrix product W·X computed with gonum.
type pointwiseConv struct {
	inC, outC int
	weight    *tensor.Tensor // [outC, inC]
}

func newPointwiseConv(inC, outC int, rng *rand.Rand) *pointwiseConv {
	c := &pointwiseConv{
		inC:    inC,
		outC:   outC,
		weight: tensor.New(outC, inC),
	}
	kaimingUniform(c.weight, inC, rng)
	return c
}

// Apply returns a fresh [M, outC, K] tensor.
func (c *pointwiseConv) Apply(x *tensor.Tensor) *tensor.Tensor {
	m, k := x.Dim(0), x.Dim(2)
	out := tensor.New(m, c.outC, k)
	w := mat.NewDense(c.outC, c.inC, c.weight.Data())
	for b := 0; b < m; b++ {
		xm := mat.NewDense(c.inC, k, x.Data()[b*c.inC*k:(b+1)*c.inC*k])
		om := mat.NewDense(c.outC, k, out.Data()[b*c.outC*k:(b+1)*c.outC*k])
		om.Mul(w, xm)
	}
	return out
}

func (c *pointwiseConv) visitParams(prefix string, fn paramFunc) {
	fn(prefix+".weight", c.weight)
}

// depthwiseConv convolves each channel of a [M, C, K] input independently
// with its own kernel of size P and the given dilation. The input is padded
// on the left by (P-1)*dilation and the same amount is trimmed from the right
// of the raw convolution output (the chomp), so the output length equals the
// input length and no output sample depends on future input.
type depthwiseConv struct {
	channels int
	kernel   int
	dilation int
	pad      int
	weight   *tensor.Tensor // [C, P]
}

func newDepthwiseConv(channels, kernel, dilation int, rng *rand.Rand) *depthwiseConv {
	c := &depthwiseConv{
		channels: channels,
		kernel:   kernel,
		dilation: dilation,
		pad:      (kernel - 1) * dilation,
		weight:   tensor.New(channels, kernel),
	}
	// Depthwise groups make the fan-in the kernel size alone.
	kaimingUniform(c.weight, kernel, rng)
	return c
}

// Apply returns a fresh tensor with the same [M, C, K] shape as the input.
func (c *depthwiseConv) Apply(x *tensor.Tensor) *tensor.Tensor {
	m, k := x.Dim(0), x.Dim(2)
	out := tensor.New(m, c.channels, k)
	w := c.weight.Data()
	padded := make([]float64, c.pad+k)
	for b := 0; b < m; b++ {
		for ch := 0; ch < c.channels; ch++ {
			off := (b*c.channels + ch) * k
			row := x.Data()[off : off+k]
			dst := out.Data()[off : off+k]
			kern := w[ch*c.kernel : (ch+1)*c.kernel]
			for i := range padded[:c.pad] {
				padded[i] = 0
			}
			copy(padded[c.pad:], row)
			if c.dilation == 1 {
				// Contiguous taps: one SIMD dot product per output sample.
				for t := 0; t < k; t++ {
					dst[t] = f64.DotProductUnsafe(kern, padded[t:t+c.kernel])
				}
				continue
			}
			// Dilated taps are strided, so accumulate one shifted,
			// scaled copy of the input per tap instead.
			for t := range dst {
				dst[t] = 0
			}
			for p := 0; p < c.kernel; p++ {
				floats.AddScaled(dst, kern[p], padded[p*c.dilation:p*c.dilation+k])
			}
		}
	}
	return out
}

func (c *depthwiseConv) visitParams(prefix string, fn paramFunc) {
	fn(prefix+".weight", c.weight)
}
