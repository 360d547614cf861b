// Package predictor drives the external collaborators of the scoring
// pipeline at their interface boundaries: the structure predictor
// (AlphaFold), the interaction-network generator (RING), and the stability
// estimator (FoldX). Each collaborator is shelled out to exactly the way the
// upstream pipeline invokes it, and each run is skipped when the artifact it
// would produce already exists.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loggy01/alpharing/variant"
)

// StructurePredictor produces a relaxed structural model for a FASTA file.
type StructurePredictor interface {
	// Model returns the path to the relaxed model for the sequence in
	// fastaPath, folding it into outputDir when none exists yet.
	Model(ctx context.Context, fastaPath, outputDir string) (string, error)
}

// NetworkGenerator produces the residue interaction network for a model.
type NetworkGenerator interface {
	// Network returns the paths of the node and edge files for modelPath.
	Network(ctx context.Context, modelPath string) (nodesPath, edgesPath string, err error)
}

// StabilityEstimator produces the free-energy change of substitutions
// applied to a model.
type StabilityEstimator interface {
	// Stability returns one free-energy change per substitution, in input
	// order.
	Stability(ctx context.Context, modelPath string, subs []variant.Substitution) ([]float64, error)
}

// Config configures the external collaborators.
type Config struct {
	Structure       string `json:"structure" yaml:"structure"` // alphafold (default) or prefolded
	Python          string `json:"python" yaml:"python"`
	AlphaFoldScript string `json:"alphafold_script" yaml:"alphafold_script"`
	DataDir         string `json:"data_dir" yaml:"data_dir"`
	RingExe         string `json:"ring_exe" yaml:"ring_exe"`
	FoldXExe        string `json:"foldx_exe" yaml:"foldx_exe"`
}

// ErrUnknownProvider is returned when configuration names a collaborator
// backend this package does not implement.
var ErrUnknownProvider = errors.New("predictor: unknown provider")

// ErrNoArtifact is returned when a collaborator finished without leaving the
// artifact its contract promises, or when a prefolded model is missing.
var ErrNoArtifact = errors.New("predictor: artifact not found")

// NewStructurePredictor selects the structure backend from configuration.
func NewStructurePredictor(cfg Config) (StructurePredictor, error) {
	switch cfg.Structure {
	case "", "alphafold":
		return NewAlphaFold(cfg), nil
	case "prefolded":
		return NewPrefolded(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Structure)
	}
}

// runFunc executes one external command in dir. Implementations substitute
// it in tests to observe command assembly without spawning processes.
type runFunc func(ctx context.Context, dir, name string, args ...string) error

func runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", name, err, tail(out))
	}
	return nil
}

// tail keeps the end of combined output, where the interesting part of a
// failed run usually is.
func tail(out []byte) string {
	const keep = 512
	s := strings.TrimSpace(string(out))
	if len(s) <= keep {
		return s
	}
	return "..." + s[len(s)-keep:]
}

// fileStem is the file name without its extension, e.g. "p53" for
// "/data/p53.fasta".
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// firstGlob returns the first match of pattern, in lexical order.
func firstGlob(pattern string) (string, bool) {
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
