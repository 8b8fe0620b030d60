package tasnet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tasnet "github.com/convtas/go-conv-tasnet"
)

const frameTolerance = 1e-12

func TestFrameSignal_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		frameLen   int
		hop        int
		wantFrames int
	}{
		{"exact_fit_no_overlap", 12, 4, 4, 3},
		{"padding_needed", 10, 4, 4, 3},
		{"half_overlap", 12, 4, 2, 5},
		{"single_short_frame", 3, 4, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := make([]float64, tt.samples)
			for i := range signal {
				signal[i] = float64(i + 1)
			}
			frames, err := tasnet.FrameSignal(signal, tt.frameLen, tt.hop)
			require.NoError(t, err)
			assert.Equal(t, []int{tt.wantFrames, tt.frameLen}, frames.Dims())
		})
	}
}

func TestFrameSignal_InvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		signal   []float64
		frameLen int
		hop      int
	}{
		{"empty_signal", nil, 4, 2},
		{"zero_frame", []float64{1}, 0, 1},
		{"zero_hop", []float64{1, 2}, 2, 0},
		{"hop_exceeds_frame", []float64{1, 2}, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tasnet.FrameSignal(tt.signal, tt.frameLen, tt.hop)
			assert.ErrorIs(t, err, tasnet.ErrInvalidConfig)
		})
	}
}

func TestOverlapAdd_InvertsFraming(t *testing.T) {
	signal := []float64{1, -2, 3, -4, 5, -6, 7, -8}

	for _, hop := range []int{2, 4} {
		frames, err := tasnet.FrameSignal(signal, 4, hop)
		require.NoError(t, err)

		restored := tasnet.OverlapAdd(frames, hop)
		require.GreaterOrEqual(t, len(restored), len(signal))
		for i, want := range signal {
			assert.InDelta(t, want, restored[i], frameTolerance,
				"hop %d, sample %d", hop, i)
		}
	}
}

func TestOverlapAdd_PaddedTailStaysSilent(t *testing.T) {
	signal := []float64{1, 2, 3}
	frames, err := tasnet.FrameSignal(signal, 4, 4)
	require.NoError(t, err)

	restored := tasnet.OverlapAdd(frames, 4)
	assert.Len(t, restored, 4)
	assert.InDelta(t, 0, restored[3], frameTolerance)
}
