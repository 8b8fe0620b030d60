package layers

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// depthwiseSeparable factors an H->B convolution into a depthwise dilated
// causal convolution over the H channels followed by a pointwise projection
// down to B channels, with a rectifier and normalization in between.
// Input [M, H, K] -> output [M, B, K].
type depthwiseSeparable struct {
	depth *depthwiseConv
	act   *prelu
	norm  *affineNorm
	point *pointwiseConv
}

func newDepthwiseSeparable(inC, outC, kernel, dilation int, kind NormKind, rng *rand.Rand) *depthwiseSeparable {
	return &depthwiseSeparable{
		depth: newDepthwiseConv(inC, kernel, dilation, rng),
		act:   newPReLU(),
		norm:  newNorm(kind, inC),
		point: newPointwiseConv(inC, outC, rng),
	}
}

func (s *depthwiseSeparable) Apply(x *tensor.Tensor) *tensor.Tensor {
	y := s.depth.Apply(x)
	s.act.Apply(y)
	s.norm.Apply(y)
	return s.point.Apply(y)
}

func (s *depthwiseSeparable) visitParams(prefix string, fn paramFunc) {
	s.depth.visitParams(prefix+".depthwise", fn)
	s.act.visitParams(prefix+".prelu", fn)
	s.norm.visitParams(prefix+".norm", fn)
	s.point.visitParams(prefix+".pointwise", fn)
}

// temporalBlock widens B channels to H, applies the depthwise-separable
// convolution back down to B, and adds the block input as a residual before
// a final rectification. Input and output are both [M, B, K]; the matching
// channel counts that make the residual valid are fixed by construction.
type temporalBlock struct {
	in   *pointwiseConv
	act  *prelu
	norm *affineNorm
	ds   *depthwiseSeparable
}

func newTemporalBlock(bottleneck, hidden, kernel, dilation int, kind NormKind, rng *rand.Rand) *temporalBlock {
	return &temporalBlock{
		in:   newPointwiseConv(bottleneck, hidden, rng),
		act:  newPReLU(),
		norm: newNorm(kind, hidden),
		ds:   newDepthwiseSeparable(hidden, bottleneck, kernel, dilation, kind, rng),
	}
}

func (b *temporalBlock) Apply(x *tensor.Tensor) *tensor.Tensor {
	y := b.in.Apply(x)
	b.act.Apply(y)
	b.norm.Apply(y)
	out := b.ds.Apply(y)
	floats.Add(out.Data(), x.Data())
	out.ReLU()
	return out
}

func (b *temporalBlock) visitParams(prefix string, fn paramFunc) {
	b.in.visitParams(prefix+".conv", fn)
	b.act.visitParams(prefix+".prelu", fn)
	b.norm.visitParams(prefix+".norm", fn)
	b.ds.visitParams(prefix+".dsconv", fn)
}
