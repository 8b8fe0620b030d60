// Package mixture synthesizes noisy training mixtures for the separation
// network: it scales a pair of source recordings to a target signal-to-noise
// ratio, sums them, and keeps the scaled references aligned with the mixture
// so the trainer sees consistent (mixture, sources) examples. It also writes
// the .scp file-list manifests that index a generated dataset.
package mixture

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/tphakala/simd/f64"
)

// RMS returns the root-mean-square level of x, 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Sqrt(f64.DotProductUnsafe(x, x) / float64(len(x)))
}

// ActiveLevel returns the RMS level of x measured only over frames whose
// energy is within thresholdDB of the loudest frame. Silent stretches are
// excluded so SNR scaling reflects the audible part of the recording.
// Falls back to plain RMS when frameLen is out of range.
func ActiveLevel(x []float64, frameLen int, thresholdDB float64) float64 {
	if frameLen <= 0 || frameLen > len(x) {
		return RMS(x)
	}
	frames := len(x) / frameLen
	powers := make([]float64, frames)
	maxPower := 0.0
	for f := 0; f < frames; f++ {
		seg := x[f*frameLen : (f+1)*frameLen]
		powers[f] = f64.DotProductUnsafe(seg, seg) / float64(frameLen)
		if powers[f] > maxPower {
			maxPower = powers[f]
		}
	}
	if maxPower == 0 {
		return 0
	}
	floor := maxPower * math.Pow(10, -thresholdDB/10)
	sum, count := 0.0, 0
	for _, p := range powers {
		if p >= floor {
			sum += p
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// Options configures mixture generation.
type Options struct {
	// MinSNR and MaxSNR bound the uniformly drawn signal-to-noise ratio in
	// dB (signal = first source, noise = second).
	MinSNR float64
	MaxSNR float64

	// UseActiveLevel measures source levels over active frames only,
	// instead of whole-file RMS.
	UseActiveLevel bool

	// ActiveFrameLen is the frame length for active-level measurement.
	ActiveFrameLen int

	// ActiveThresholdDB is the energy window below the loudest frame that
	// still counts as active.
	ActiveThresholdDB float64

	// Seed initializes the generator RNG.
	Seed int64
}

// Generator produces SNR-scaled mixtures with a deterministic rng.
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// NewGenerator returns a generator for the given options. A zero MaxSNR with
// zero MinSNR yields fixed 0 dB mixtures.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.MaxSNR < opts.MinSNR {
		return nil, fmt.Errorf("invalid SNR range [%g, %g]", opts.MinSNR, opts.MaxSNR)
	}
	if opts.UseActiveLevel && opts.ActiveFrameLen <= 0 {
		return nil, fmt.Errorf("active-level measurement needs a positive frame length")
	}
	return &Generator{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// SNR draws the next target signal-to-noise ratio in dB.
func (g *Generator) SNR() float64 {
	if g.opts.MaxSNR == g.opts.MinSNR {
		return g.opts.MinSNR
	}
	return g.opts.MinSNR + g.rng.Float64()*(g.opts.MaxSNR-g.opts.MinSNR)
}

// Pick returns a random index below n.
func (g *Generator) Pick(n int) int { return g.rng.Intn(n) }

func (g *Generator) level(x []float64) float64 {
	if g.opts.UseActiveLevel {
		return ActiveLevel(x, g.opts.ActiveFrameLen, g.opts.ActiveThresholdDB)
	}
	return RMS(x)
}

// Mix combines two source recordings at the drawn SNR. Both inputs are
// truncated to the shorter length; the second source is scaled to hit the
// target ratio; if the sum clips, all three signals are attenuated together
// so mixture and references stay aligned. Returns the mixture, the two
// references as they appear in the mixture, and the SNR used.
func (g *Generator) Mix(s1, s2 []float64) (mix, ref1, ref2 []float64, snr float64, err error) {
	n := len(s1)
	if len(s2) < n {
		n = len(s2)
	}
	if n == 0 {
		return nil, nil, nil, 0, fmt.Errorf("empty source signal")
	}
	ref1 = append([]float64(nil), s1[:n]...)
	ref2 = append([]float64(nil), s2[:n]...)

	l1, l2 := g.level(ref1), g.level(ref2)
	if l1 == 0 || l2 == 0 {
		return nil, nil, nil, 0, fmt.Errorf("silent source signal")
	}
	snr = g.SNR()
	// Scale the second source so 20*log10(l1/l2') = snr.
	gain := l1 / (l2 * math.Pow(10, snr/20))
	f64.Scale(ref2, ref2, gain)

	mix = make([]float64, n)
	peak := 0.0
	for i := range mix {
		mix[i] = ref1[i] + ref2[i]
		if a := math.Abs(mix[i]); a > peak {
			peak = a
		}
	}
	if peak > 1 {
		att := 1 / peak
		f64.Scale(mix, mix, att)
		f64.Scale(ref1, ref1, att)
		f64.Scale(ref2, ref2, att)
	}
	return mix, ref1, ref2, snr, nil
}

// Entry is one line of a .scp manifest: an utterance ID and the path of its
// audio file.
type Entry struct {
	ID   string
	Path string
}

// WriteManifest writes entries as "id path" lines.
func WriteManifest(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if e.ID == "" || e.Path == "" {
			return fmt.Errorf("manifest entry needs both id and path, got %+v", e)
		}
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.ID, e.Path); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadManifest parses "id path" lines written by WriteManifest.
func ReadManifest(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		var e Entry
		if _, err := fmt.Sscanf(line, "%s %s", &e.ID, &e.Path); err != nil {
			return nil, fmt.Errorf("malformed manifest line %q: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
