package tasnet

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/convtas/go-conv-tasnet/tensor"
)

// Checkpoint is the unit of model persistence: the eight hyperparameters,
// the learnable-parameter snapshot, and the training state needed to resume
// (optimizer snapshot, epoch counter, optional running losses).
type Checkpoint struct {
	N int `json:"N"`
	L int `json:"L"`
	B int `json:"B"`
	H int `json:"H"`
	P int `json:"P"`
	X int `json:"X"`
	R int `json:"R"`
	C int `json:"C"`

	// NormType records the normalization variant. Absent in older
	// checkpoints, in which case reconstruction uses gLN.
	NormType string `json:"norm_type,omitempty"`

	// StateDict maps parameter names to their tensors.
	StateDict map[string]*tensor.Tensor `json:"state_dict"`

	// OptimState is the optimizer snapshot, opaque to this package. The
	// external trainer round-trips whatever it stored.
	OptimState json.RawMessage `json:"optim_dict,omitempty"`

	// Epoch is the number of completed training epochs.
	Epoch int `json:"epoch"`

	// TrainLoss and ValidLoss optionally record per-epoch running losses.
	TrainLoss []float64 `json:"tr_loss,omitempty"`
	ValidLoss []float64 `json:"cv_loss,omitempty"`
}

// requiredKeys must be present in any checkpoint document.
var requiredKeys = []string{"N", "L", "B", "H", "P", "X", "R", "C", "state_dict"}

// resumeKeys must additionally be present to resume training.
var resumeKeys = []string{"optim_dict", "epoch"}

// Serialize captures the network and training state as a checkpoint.
// optimState may be nil and trLoss/cvLoss may be empty for inference-only
// snapshots.
func Serialize(n *Network, optimState json.RawMessage, epoch int, trLoss, cvLoss []float64) *Checkpoint {
	cfg := n.Config()
	return &Checkpoint{
		N: cfg.N, L: cfg.L, B: cfg.B, H: cfg.H,
		P: cfg.P, X: cfg.X, R: cfg.R, C: cfg.C,
		NormType:   cfg.NormType,
		StateDict:  n.StateDict(),
		OptimState: optimState,
		Epoch:      epoch,
		TrainLoss:  trLoss,
		ValidLoss:  cvLoss,
	}
}

// Network reconstructs a model from the checkpoint: the hyperparameters
// rebuild the exact architecture first, then the parameter snapshot is loaded
// into it. Loading is all-or-nothing.
func (c *Checkpoint) Network() (*Network, error) {
	cfg := &Config{
		N: c.N, L: c.L, B: c.B, H: c.H,
		P: c.P, X: c.X, R: c.R, C: c.C,
		NormType: c.NormType,
	}
	n, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := n.LoadStateDict(c.StateDict); err != nil {
		return nil, err
	}
	return n, nil
}

// EncodeCheckpoint writes the checkpoint to w as JSON.
func EncodeCheckpoint(w io.Writer, c *Checkpoint) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// decodeDocument parses the raw document and verifies key presence.
func decodeDocument(r io.Reader, resume bool) (*Checkpoint, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCheckpoint, err)
	}
	for _, key := range requiredKeys {
		if _, ok := doc[key]; !ok {
			return nil, fmt.Errorf("%w: missing required key %q", ErrBadCheckpoint, key)
		}
	}
	if resume {
		for _, key := range resumeKeys {
			if _, ok := doc[key]; !ok {
				return nil, fmt.Errorf("%w: missing key %q required to resume training", ErrBadCheckpoint, key)
			}
		}
	}
	var c Checkpoint
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCheckpoint, err)
	}
	return &c, nil
}

// DecodeCheckpoint reads a full checkpoint for resuming training. The eight
// hyperparameters, state_dict, optim_dict and epoch must all be present.
func DecodeCheckpoint(r io.Reader) (*Checkpoint, error) {
	return decodeDocument(r, true)
}

// DecodeNetwork reads a checkpoint for inference and reconstructs the model.
// Optimizer state and epoch are not required.
func DecodeNetwork(r io.Reader) (*Network, error) {
	c, err := decodeDocument(r, false)
	if err != nil {
		return nil, err
	}
	return c.Network()
}

// SaveCheckpointFile writes the checkpoint to path.
func SaveCheckpointFile(path string, c *Checkpoint) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return EncodeCheckpoint(f, c)
}

// LoadCheckpointFile reads a full checkpoint (resume semantics) from path.
func LoadCheckpointFile(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeCheckpoint(f)
}

// LoadNetworkFile reconstructs a model from the checkpoint at path
// (inference semantics).
func LoadNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeNetwork(f)
}
