// Command resample-dataset batch-resamples a directory tree of WAV files to
// a target sample rate, preparing raw recordings for mixture synthesis.
//
// Usage:
//
//	resample-dataset -rate 8000 -in recordings/ -out resampled/
//	resample-dataset -rate 16000 -quality medium -in a/ -out b/
//
// The directory structure under -in is mirrored under -out; files already at
// the target rate are copied through unchanged.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/convtas/go-conv-tasnet/internal/wavio"
)

const defaultRate = 8000

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rate := flag.Int("rate", defaultRate, "Target sample rate in Hz")
	in := flag.String("in", "", "Input directory of WAV files")
	out := flag.String("out", "", "Output directory")
	quality := flag.String("quality", "high", "Resampling quality: low, medium, high")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -rate HZ -in DIR -out DIR [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("missing input or output directory")
	}

	preset := parseQuality(*quality)
	processed := 0
	err := filepath.WalkDir(*in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wav") {
			return nil
		}

		rel, err := filepath.Rel(*in, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(*out, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		samples, srcRate, err := wavio.ReadMono(path)
		if err != nil {
			return err
		}
		if srcRate != *rate {
			samples, err = resampler.ResampleMono(samples, float64(srcRate), float64(*rate), preset)
			if err != nil {
				return fmt.Errorf("failed to resample %s: %w", path, err)
			}
		}
		if err := wavio.WriteMono(dst, samples, *rate); err != nil {
			return err
		}

		processed++
		if *verbose {
			log.Printf("%s: %d Hz -> %d Hz (%d samples)", rel, srcRate, *rate, len(samples))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Resampled %d files to %d Hz in %s\n", processed, *rate, *out)
	return nil
}

func parseQuality(q string) resampler.QualityPreset {
	switch strings.ToLower(q) {
	case "low":
		return resampler.QualityLow
	case "medium":
		return resampler.QualityMedium
	case "high":
		return resampler.QualityHigh
	default:
		return resampler.QualityHigh
	}
}
