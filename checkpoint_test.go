package tasnet_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tasnet "github.com/convtas/go-conv-tasnet"
	"github.com/convtas/go-conv-tasnet/internal/testutil"
)

const testEpoch = 7

var testOptimState = json.RawMessage(`{"lr":0.001,"momentum":0.9}`)

func trainedCheckpoint(t *testing.T) (*tasnet.Network, *tasnet.Checkpoint) {
	t.Helper()
	net, err := tasnet.New(smallConfig())
	require.NoError(t, err)
	ckpt := tasnet.Serialize(net, testOptimState, testEpoch,
		[]float64{1.5, 1.2, 1.0}, []float64{1.6, 1.4, 1.3})
	return net, ckpt
}

func TestSerialize_CapturesHyperparameters(t *testing.T) {
	net, ckpt := trainedCheckpoint(t)
	cfg := net.Config()

	assert.Equal(t, cfg.N, ckpt.N)
	assert.Equal(t, cfg.L, ckpt.L)
	assert.Equal(t, cfg.B, ckpt.B)
	assert.Equal(t, cfg.H, ckpt.H)
	assert.Equal(t, cfg.P, ckpt.P)
	assert.Equal(t, cfg.X, ckpt.X)
	assert.Equal(t, cfg.R, ckpt.R)
	assert.Equal(t, cfg.C, ckpt.C)
	assert.Equal(t, cfg.NormType, ckpt.NormType)
	assert.Equal(t, testEpoch, ckpt.Epoch)
	assert.NotEmpty(t, ckpt.StateDict)
}

func TestCheckpoint_RoundTripForwardEquivalence(t *testing.T) {
	net, ckpt := trainedCheckpoint(t)

	var buf bytes.Buffer
	require.NoError(t, tasnet.EncodeCheckpoint(&buf, ckpt))

	restored, err := tasnet.DecodeCheckpoint(&buf)
	require.NoError(t, err)
	assert.Equal(t, testEpoch, restored.Epoch)
	assert.JSONEq(t, string(testOptimState), string(restored.OptimState))
	assert.Equal(t, []float64{1.5, 1.2, 1.0}, restored.TrainLoss)

	reloaded, err := restored.Network()
	require.NoError(t, err)

	// The reconstructed architecture must match before weights are loaded,
	// and the forward transform must be indistinguishable afterwards.
	assert.Equal(t, net.Config().N, reloaded.Config().N)
	mixture := testutil.RandTensor(3, 2, 3, 4)
	testutil.AssertTensorsInDelta(t,
		net.Forward(mixture), reloaded.Forward(mixture), testutil.ForwardTolerance)
}

func TestCheckpoint_FileRoundTrip(t *testing.T) {
	net, ckpt := trainedCheckpoint(t)
	path := filepath.Join(t.TempDir(), "model.json")

	require.NoError(t, tasnet.SaveCheckpointFile(path, ckpt))

	reloaded, err := tasnet.LoadNetworkFile(path)
	require.NoError(t, err)
	mixture := testutil.RandTensor(5, 1, 3, 4)
	testutil.AssertTensorsInDelta(t,
		net.Forward(mixture), reloaded.Forward(mixture), testutil.ForwardTolerance)

	full, err := tasnet.LoadCheckpointFile(path)
	require.NoError(t, err)
	assert.Equal(t, testEpoch, full.Epoch)
}

func TestDecode_MissingRequiredKeys(t *testing.T) {
	_, ckpt := trainedCheckpoint(t)
	raw, err := json.Marshal(ckpt)
	require.NoError(t, err)

	for _, key := range []string{"N", "L", "B", "H", "P", "X", "R", "C", "state_dict"} {
		t.Run(key, func(t *testing.T) {
			var doc map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &doc))
			delete(doc, key)
			mutated, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = tasnet.DecodeNetwork(bytes.NewReader(mutated))
			assert.ErrorIs(t, err, tasnet.ErrBadCheckpoint,
				"missing %q must fail the whole load", key)
		})
	}
}

func TestDecode_InferenceDoesNotNeedOptimizerState(t *testing.T) {
	net, err := tasnet.New(smallConfig())
	require.NoError(t, err)
	ckpt := tasnet.Serialize(net, nil, 0, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, tasnet.EncodeCheckpoint(&buf, ckpt))
	raw := buf.Bytes()

	// Inference-only reconstruction succeeds without optim_dict.
	reloaded, err := tasnet.DecodeNetwork(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, net.NumParameters(), reloaded.NumParameters())

	// Resuming training from the same document must be refused.
	_, err = tasnet.DecodeCheckpoint(bytes.NewReader(raw))
	assert.ErrorIs(t, err, tasnet.ErrBadCheckpoint)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := tasnet.DecodeNetwork(bytes.NewReader([]byte("not json")))
	assert.ErrorIs(t, err, tasnet.ErrBadCheckpoint)
}
