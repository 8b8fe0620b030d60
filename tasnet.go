package tasnet

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/convtas/go-conv-tasnet/internal/layers"
	"github.com/convtas/go-conv-tasnet/tensor"
)

// Common errors returned by the package.
var (
	// ErrInvalidConfig indicates invalid network hyperparameters.
	ErrInvalidConfig = errors.New("invalid network configuration")

	// ErrBadCheckpoint indicates a malformed or incomplete checkpoint.
	ErrBadCheckpoint = errors.New("malformed checkpoint")
)

// Config holds the network hyperparameters. They are fixed at construction
// and define every tensor shape in the model.
type Config struct {
	// N is the number of filters in the encoder/decoder filter bank.
	N int

	// L is the length of each waveform frame in samples.
	L int

	// B is the number of channels in the bottleneck 1x1 convolution.
	B int

	// H is the number of channels inside the convolutional blocks.
	H int

	// P is the kernel size of the depthwise convolutions.
	P int

	// X is the number of convolutional blocks per repeat; block x uses
	// dilation 2^x.
	X int

	// R is the number of repeats of the X-block stack.
	R int

	// C is the number of sources to separate.
	C int

	// NormType selects the normalization variant inside the blocks:
	// "gLN" (global), "cLN" (channel-wise) or "BN" (batch norm).
	// Empty defaults to "gLN".
	NormType string

	// Seed initializes the weight RNG. The same seed reproduces the same
	// initial parameters.
	Seed int64
}

// Validate checks that every hyperparameter is usable.
func (c *Config) Validate() error {
	type field struct {
		name  string
		value int
	}
	for _, f := range []field{
		{"N", c.N}, {"L", c.L}, {"B", c.B}, {"H", c.H},
		{"P", c.P}, {"X", c.X}, {"R", c.R}, {"C", c.C},
	} {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.P < 2 {
		return fmt.Errorf("%w: kernel size P must be at least 2, got %d", ErrInvalidConfig, c.P)
	}
	if c.NormType != "" {
		if _, err := layers.ParseNormKind(c.NormType); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// normKind resolves the configured norm variant, defaulting to gLN.
func (c *Config) normKind() layers.NormKind {
	if c.NormType == "" {
		return layers.NormGlobal
	}
	kind, err := layers.ParseNormKind(c.NormType)
	if err != nil {
		// Validate has already rejected unknown strings.
		return layers.NormGlobal
	}
	return kind
}

// Network composes the encoder, separator and decoder. Parameters are owned
// by the network and mutated only through LoadStateDict or an external
// optimizer.
type Network struct {
	cfg       Config
	encoder   *layers.Encoder
	separator *layers.Separator
	decoder   *layers.Decoder
}

// New constructs a network from the given hyperparameters with freshly
// initialized weights.
func New(cfg *Config) (*Network, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := *cfg
	if c.NormType == "" {
		c.NormType = layers.NormGlobal.String()
	}
	rng := rand.New(rand.NewSource(c.Seed))
	return &Network{
		cfg:       c,
		encoder:   layers.NewEncoder(c.L, c.N, rng),
		separator: layers.NewSeparator(c.N, c.B, c.H, c.P, c.X, c.R, c.C, c.normKind(), rng),
		decoder:   layers.NewDecoder(c.N, c.L, rng),
	}, nil
}

// Config returns a copy of the network hyperparameters.
func (n *Network) Config() Config { return n.cfg }

// Forward separates a mixture batch [M, K, L] into per-source estimates
// [M, C, K, L]. The computation is deterministic and side-effect free; a
// shape that disagrees with the configured hyperparameters panics at the
// failing tensor operation.
func (n *Network) Forward(mixture *tensor.Tensor) *tensor.Tensor {
	latent := n.encoder.Apply(mixture)
	mask := n.separator.Apply(latent)
	return n.decoder.Apply(latent, mask)
}

// EncodeMixture exposes the encoder output [M, K, N] for inspection.
func (n *Network) EncodeMixture(mixture *tensor.Tensor) *tensor.Tensor {
	return n.encoder.Apply(mixture)
}

// EstimateMasks exposes the separator output [M, K, C, N] for inspection.
func (n *Network) EstimateMasks(latent *tensor.Tensor) *tensor.Tensor {
	return n.separator.Apply(latent)
}

// visitParams walks every learnable tensor with its qualified name.
func (n *Network) visitParams(fn func(name string, t *tensor.Tensor)) {
	n.encoder.VisitParams("encoder", fn)
	n.separator.VisitParams("separator", fn)
	n.decoder.VisitParams("decoder", fn)
}

// StateDict returns a deep copy of every learnable parameter keyed by its
// qualified name.
func (n *Network) StateDict() map[string]*tensor.Tensor {
	dict := make(map[string]*tensor.Tensor)
	n.visitParams(func(name string, t *tensor.Tensor) {
		dict[name] = t.Clone()
	})
	return dict
}

// LoadStateDict copies parameter values from dict into the network. Loading
// is strict and all-or-nothing: every network parameter must be present with
// a matching shape, and unknown names are rejected. The network is not
// modified on error.
func (n *Network) LoadStateDict(dict map[string]*tensor.Tensor) error {
	var err error
	seen := make(map[string]bool, len(dict))
	n.visitParams(func(name string, t *tensor.Tensor) {
		if err != nil {
			return
		}
		src, ok := dict[name]
		if !ok {
			err = fmt.Errorf("%w: missing parameter %q", ErrBadCheckpoint, name)
			return
		}
		if !t.SameShape(src) {
			err = fmt.Errorf("%w: parameter %q has shape %v, want %v",
				ErrBadCheckpoint, name, src.Dims(), t.Dims())
			return
		}
		seen[name] = true
	})
	if err != nil {
		return err
	}
	for name := range dict {
		if !seen[name] {
			return fmt.Errorf("%w: unexpected parameter %q", ErrBadCheckpoint, name)
		}
	}
	n.visitParams(func(name string, t *tensor.Tensor) {
		copy(t.Data(), dict[name].Data())
	})
	return nil
}

// Parameters returns the live parameter tensors keyed by name, for use by an
// external optimizer. Mutating the returned tensors changes the network.
func (n *Network) Parameters() map[string]*tensor.Tensor {
	params := make(map[string]*tensor.Tensor)
	n.visitParams(func(name string, t *tensor.Tensor) {
		params[name] = t
	})
	return params
}

// NumParameters returns the total learnable parameter count.
func (n *Network) NumParameters() int {
	total := 0
	n.visitParams(func(_ string, t *tensor.Tensor) {
		total += t.Len()
	})
	return total
}
