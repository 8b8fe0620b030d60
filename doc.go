// Package tasnet implements a single-channel audio source-separation network
// in pure Go: a fully convolutional time-domain model that operates directly
// on raw waveform frames.
//
// # Architecture
//
// The network is an encoder/separator/decoder pipeline:
//
//	mixture [M,K,L] -> Encoder -> latent [M,K,N] -> Separator -> mask [M,K,C,N]
//	                                   |__________________________|
//	                                              Decoder -> sources [M,C,K,L]
//
//   - The encoder projects each length-L waveform frame through a learned
//     filter bank of N filters and rectifies the result, producing a
//     nonnegative latent representation.
//   - The separator is a temporal convolutional network: channel-wise layer
//     normalization, a 1x1 bottleneck, R repeats of X dilated depthwise-
//     separable convolution blocks (dilation doubling per block), and a mask
//     projection with a softmax over the C sources.
//   - The decoder masks the latent representation per source and maps it back
//     to waveform frames through a shared linear synthesis basis.
//
// # Quick start
//
//	cfg := &tasnet.Config{N: 256, L: 40, B: 128, H: 256, P: 3, X: 8, R: 4, C: 2, NormType: "gLN"}
//	net, err := tasnet.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	est := net.Forward(mixture) // mixture [M,K,L] -> est [M,C,K,L]
//
// # Checkpoints
//
// A trained network round-trips through a JSON checkpoint holding the eight
// hyperparameters, the parameter snapshot, and optional optimizer state:
//
//	ckpt := tasnet.Serialize(net, optimState, epoch, trLoss, cvLoss)
//	err := tasnet.SaveCheckpointFile("model.json", ckpt)
//	net2, err := tasnet.LoadNetworkFile("model.json")
//
// Loading reconstructs the exact architecture from the stored hyperparameters
// before any weights are copied in; a checkpoint with missing required keys is
// rejected as a whole.
//
// # Concurrency
//
// Forward is a pure function of the input and the parameter tensors. A
// Network is safe for concurrent Forward calls as long as nothing mutates its
// parameters; batching over the leading axis is the intended parallelism
// dimension.
//
// The cmd/ tools cover the surrounding data plumbing: synthesizing noisy
// training mixtures, batch-resampling datasets, and running separation over
// WAV files.
package tasnet
