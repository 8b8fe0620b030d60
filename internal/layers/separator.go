package layers

import (
	"math/rand"
	"strconv"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// Separator is the temporal convolutional mask estimator. It maps the latent
// batch [M, K, N] to per-source masks [M, K, C, N] that are nonnegative and
// sum to one over the source axis.
//
// Pipeline: channel-wise layer norm -> 1x1 bottleneck N->B -> R repeats of X
// temporal blocks whose dilation doubles per block (1, 2, 4, ..., 2^(X-1),
// restarting each repeat) -> 1x1 mask projection B->C·N -> softmax over the
// source axis. The doubling dilations grow the receptive field exponentially
// while the parameter count stays linear in depth.
type Separator struct {
	filters int
	sources int

	norm       *affineNorm
	bottleneck *pointwiseConv
	repeats    [][]*temporalBlock
	maskConv   *pointwiseConv
}

// NewSeparator constructs the mask estimator for n latent filters,
// bottleneck width b, block width h, kernel size p, x blocks per repeat,
// r repeats and c sources, with the given norm variant inside the blocks.
// The input-side layer norm is always channel-wise.
func NewSeparator(n, b, h, p, x, r, c int, kind NormKind, rng *rand.Rand) *Separator {
	s := &Separator{
		filters:    n,
		sources:    c,
		norm:       newNorm(NormChannel, n),
		bottleneck: newPointwiseConv(n, b, rng),
		maskConv:   newPointwiseConv(b, c*n, rng),
	}
	s.repeats = make([][]*temporalBlock, r)
	for ri := range s.repeats {
		blocks := make([]*temporalBlock, x)
		for xi := range blocks {
			blocks[xi] = newTemporalBlock(b, h, p, 1<<xi, kind, rng)
		}
		s.repeats[ri] = blocks
	}
	return s
}

// Apply estimates masks for the latent batch.
func (s *Separator) Apply(latent *tensor.Tensor) *tensor.Tensor {
	m, k, n := latent.Dim(0), latent.Dim(1), latent.Dim(2)

	// [M, K, N] -> channel-first [M, N, K].
	x := tensor.New(m, n, k)
	for b := 0; b < m; b++ {
		for t := 0; t < k; t++ {
			row := latent.Data()[(b*k+t)*n : (b*k+t+1)*n]
			for c := 0; c < n; c++ {
				x.Data()[(b*n+c)*k+t] = row[c]
			}
		}
	}

	s.norm.Apply(x)
	y := s.bottleneck.Apply(x)
	for _, blocks := range s.repeats {
		for _, blk := range blocks {
			y = blk.Apply(y)
		}
	}
	score := s.maskConv.Apply(y) // [M, C*N, K]

	// [M, C*N, K] -> [M, K, C, N], then softmax across the C axis for each
	// (batch, frame, filter) triple.
	mask := tensor.New(m, k, s.sources, n)
	for b := 0; b < m; b++ {
		for c := 0; c < s.sources; c++ {
			for f := 0; f < n; f++ {
				srcRow := score.Data()[(b*s.sources*n+c*n+f)*k : (b*s.sources*n+c*n+f+1)*k]
				for t := 0; t < k; t++ {
					mask.Data()[((b*k+t)*s.sources+c)*n+f] = srcRow[t]
				}
			}
		}
	}
	for b := 0; b < m; b++ {
		for t := 0; t < k; t++ {
			base := (b*k + t) * s.sources * n
			for f := 0; f < n; f++ {
				tensor.SoftmaxStrided(mask.Data()[base+f:], s.sources, n)
			}
		}
	}
	return mask
}

// Sources returns the number of separated sources C.
func (s *Separator) Sources() int { return s.sources }

// VisitParams calls fn for each learnable tensor of the separator.
func (s *Separator) VisitParams(prefix string, fn func(name string, t *tensor.Tensor)) {
	s.norm.visitParams(prefix+".norm", fn)
	s.bottleneck.visitParams(prefix+".bottleneck", fn)
	for ri, blocks := range s.repeats {
		for xi, blk := range blocks {
			blk.visitParams(prefix+repeatBlockName(ri, xi), fn)
		}
	}
	s.maskConv.visitParams(prefix+".mask", fn)
}

func repeatBlockName(r, x int) string {
	return ".repeat" + strconv.Itoa(r) + ".block" + strconv.Itoa(x)
}
