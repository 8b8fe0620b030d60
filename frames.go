package tasnet

import (
	"fmt"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// FrameSignal slices a mono waveform into K frames of frameLen samples taken
// every hop samples, zero-padding the tail, and returns them as a [K, frameLen]
// tensor ready to be batched for Forward. hop == frameLen gives disjoint
// frames; hop == frameLen/2 gives the usual 50% overlap.
func FrameSignal(signal []float64, frameLen, hop int) (*tensor.Tensor, error) {
	if frameLen <= 0 {
		return nil, fmt.Errorf("%w: frame length must be positive, got %d", ErrInvalidConfig, frameLen)
	}
	if hop <= 0 || hop > frameLen {
		return nil, fmt.Errorf("%w: hop must be in [1, frame length], got %d", ErrInvalidConfig, hop)
	}
	if len(signal) == 0 {
		return nil, fmt.Errorf("%w: empty signal", ErrInvalidConfig)
	}
	frames := 1
	if len(signal) > frameLen {
		frames += (len(signal) - frameLen + hop - 1) / hop
	}
	out := tensor.New(frames, frameLen)
	for k := 0; k < frames; k++ {
		start := k * hop
		end := start + frameLen
		if end > len(signal) {
			end = len(signal)
		}
		copy(out.Data()[k*frameLen:], signal[start:end])
	}
	return out, nil
}

// OverlapAdd reassembles a [K, frameLen] frame tensor produced with the given
// hop back into a waveform. Overlapping regions are averaged by the number of
// frames covering each sample, so FrameSignal followed by OverlapAdd is the
// identity up to the zero-padded tail.
func OverlapAdd(frames *tensor.Tensor, hop int) []float64 {
	k, frameLen := frames.Dim(0), frames.Dim(1)
	n := (k-1)*hop + frameLen
	out := make([]float64, n)
	weight := make([]float64, n)
	for f := 0; f < k; f++ {
		row := frames.Data()[f*frameLen : (f+1)*frameLen]
		for i, v := range row {
			out[f*hop+i] += v
			weight[f*hop+i]++
		}
	}
	for i := range out {
		if weight[i] > 0 {
			out[i] /= weight[i]
		}
	}
	return out
}
