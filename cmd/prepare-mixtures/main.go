// Command prepare-mixtures synthesizes a noisy source-separation dataset.
//
// It pairs random recordings from a foreground and a background directory,
// mixes each pair at a randomly drawn SNR, and writes the mixture together
// with the two aligned reference sources, plus .scp manifests indexing the
// generated files.
//
// Usage:
//
//	prepare-mixtures -foreground speech/ -background noise/ -out dataset/ -count 10000
//	prepare-mixtures -foreground a/ -background b/ -out dataset/ -state test -count 1000
//
// Output layout: <out>/<state>/{mix,s1,s2}/<id>.wav and
// <out>/<state>/{mix,s1,s2}.scp.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/convtas/go-conv-tasnet/internal/mixture"
	"github.com/convtas/go-conv-tasnet/internal/wavio"
)

const (
	defaultCount  = 1000
	defaultMinSNR = -5.0
	defaultMaxSNR = 5.0

	// Active-level measurement parameters (25 ms at 8 kHz, 20 dB window).
	activeFrameLen    = 200
	activeThresholdDB = 20.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	foreground := flag.String("foreground", "", "Directory of foreground (signal) WAV files")
	background := flag.String("background", "", "Directory of background (noise) WAV files")
	out := flag.String("out", "", "Output dataset directory")
	state := flag.String("state", "train", "Dataset split name (train, test, cv)")
	count := flag.Int("count", defaultCount, "Number of mixtures to generate")
	minSNR := flag.Float64("min-snr", defaultMinSNR, "Minimum mixing SNR in dB")
	maxSNR := flag.Float64("max-snr", defaultMaxSNR, "Maximum mixing SNR in dB")
	active := flag.Bool("active", false, "Measure source levels over active frames only")
	seed := flag.Int64("seed", 0, "Random seed for pairing and SNR draws")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *foreground == "" || *background == "" || *out == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -foreground DIR -background DIR -out DIR [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("missing required directories")
	}

	fgFiles, err := collectWAVs(*foreground)
	if err != nil {
		return err
	}
	bgFiles, err := collectWAVs(*background)
	if err != nil {
		return err
	}
	if len(fgFiles) == 0 || len(bgFiles) == 0 {
		return fmt.Errorf("need WAV files in both source directories (found %d foreground, %d background)",
			len(fgFiles), len(bgFiles))
	}
	if *verbose {
		log.Printf("Sources: %d foreground, %d background", len(fgFiles), len(bgFiles))
	}

	gen, err := mixture.NewGenerator(mixture.Options{
		MinSNR:            *minSNR,
		MaxSNR:            *maxSNR,
		UseActiveLevel:    *active,
		ActiveFrameLen:    activeFrameLen,
		ActiveThresholdDB: activeThresholdDB,
		Seed:              *seed,
	})
	if err != nil {
		return err
	}

	splitDir := filepath.Join(*out, *state)
	for _, sub := range []string{"mix", "s1", "s2"} {
		if err := os.MkdirAll(filepath.Join(splitDir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	manifests := map[string][]mixture.Entry{"mix": nil, "s1": nil, "s2": nil}
	written, skipped := 0, 0
	for written < *count {
		if skipped > 10*(*count) {
			return fmt.Errorf("gave up after %d unusable pairings (%d mixtures written)", skipped, written)
		}
		fgPath := fgFiles[gen.Pick(len(fgFiles))]
		bgPath := bgFiles[gen.Pick(len(bgFiles))]

		s1, rate1, err := wavio.ReadMono(fgPath)
		if err != nil {
			return err
		}
		s2, rate2, err := wavio.ReadMono(bgPath)
		if err != nil {
			return err
		}
		if rate1 != rate2 {
			return fmt.Errorf("sample rate mismatch: %s is %d Hz, %s is %d Hz (resample first)",
				fgPath, rate1, bgPath, rate2)
		}

		mix, ref1, ref2, snr, err := gen.Mix(s1, s2)
		if err != nil {
			// Silent or empty pairing; draw another.
			skipped++
			if *verbose {
				log.Printf("Skipping pair (%s, %s): %v", fgPath, bgPath, err)
			}
			continue
		}

		id := fmt.Sprintf("%s_%05d", *state, written)
		for sub, samples := range map[string][]float64{"mix": mix, "s1": ref1, "s2": ref2} {
			path := filepath.Join(splitDir, sub, id+".wav")
			if err := wavio.WriteMono(path, samples, rate1); err != nil {
				return err
			}
			manifests[sub] = append(manifests[sub], mixture.Entry{ID: id, Path: path})
		}
		written++
		if *verbose && written%100 == 0 {
			log.Printf("Generated %d/%d mixtures (last SNR %.1f dB)", written, *count, snr)
		}
	}

	for sub, entries := range manifests {
		if err := writeManifestFile(filepath.Join(splitDir, sub+".scp"), entries); err != nil {
			return err
		}
	}

	fmt.Printf("Generated %d mixtures in %s\n", written, splitDir)
	return nil
}

// collectWAVs returns every .wav file under root.
func collectWAVs(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}

func writeManifestFile(path string, entries []mixture.Entry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return mixture.WriteManifest(f, entries)
}
