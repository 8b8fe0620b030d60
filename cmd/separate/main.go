// Command separate runs a trained separation network over a mixture WAV file
// and writes one estimated source per output WAV.
//
// Usage:
//
//	separate -model model.json -out sources/ mixture.wav
//	separate -model model.json -hop 20 -out sources/ mixture.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tasnet "github.com/convtas/go-conv-tasnet"
	"github.com/convtas/go-conv-tasnet/internal/wavio"
	"github.com/convtas/go-conv-tasnet/tensor"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	modelPath := flag.String("model", "", "Checkpoint file of the trained network")
	out := flag.String("out", "", "Output directory for separated sources")
	hop := flag.Int("hop", 0, "Frame hop in samples (default: half the frame length)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if *modelPath == "" || *out == "" || len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s -model FILE -out DIR mixture.wav\n\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("missing model, output directory or input file")
	}
	inputPath := args[0]

	net, err := tasnet.LoadNetworkFile(*modelPath)
	if err != nil {
		return err
	}
	cfg := net.Config()
	frameHop := *hop
	if frameHop <= 0 {
		frameHop = cfg.L / 2
	}
	if *verbose {
		log.Printf("Model: N=%d L=%d B=%d H=%d P=%d X=%d R=%d C=%d norm=%s (%d parameters)",
			cfg.N, cfg.L, cfg.B, cfg.H, cfg.P, cfg.X, cfg.R, cfg.C, cfg.NormType, net.NumParameters())
	}

	samples, rate, err := wavio.ReadMono(inputPath)
	if err != nil {
		return err
	}
	frames, err := tasnet.FrameSignal(samples, cfg.L, frameHop)
	if err != nil {
		return err
	}
	k := frames.Dim(0)
	batch := frames.Reshape(1, k, cfg.L)

	start := time.Now()
	est := net.Forward(batch) // [1, C, K, L]
	elapsed := time.Since(start)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	for c := 0; c < cfg.C; c++ {
		sourceFrames := tensor.FromSlice(
			est.Data()[c*k*cfg.L:(c+1)*k*cfg.L], k, cfg.L)
		signal := tasnet.OverlapAdd(sourceFrames, frameHop)
		if len(signal) > len(samples) {
			signal = signal[:len(samples)]
		}
		dst := filepath.Join(*out, fmt.Sprintf("%s_s%d.wav", base, c+1))
		if err := wavio.WriteMono(dst, signal, rate); err != nil {
			return err
		}
		if *verbose {
			log.Printf("Wrote %s", dst)
		}
	}

	fmt.Printf("Separated %s into %d sources in %.2fs (%d frames)\n",
		filepath.Base(inputPath), cfg.C, elapsed.Seconds(), k)
	return nil
}
