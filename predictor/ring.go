package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// RING shells out to the RING executable to derive the residue interaction
// network of a model. Node and edge files already present next to the model
// short-circuit the run.
type RING struct {
	exe string
	run runFunc
}

// NewRING builds the exec-backed network generator.
func NewRING(cfg Config) *RING {
	return &RING{exe: cfg.RingExe, run: runCommand}
}

func (r *RING) Network(ctx context.Context, modelPath string) (string, string, error) {
	nodesPath := modelPath + "_ringNodes"
	edgesPath := modelPath + "_ringEdges"
	if fileExists(nodesPath) && fileExists(edgesPath) {
		slog.Info("predictor: reusing interaction network", "model", modelPath)
		return nodesPath, edgesPath, nil
	}

	args := []string{
		"-i", modelPath,
		"--out_dir", filepath.Dir(modelPath),
		"--no_add_H",
		"--all_edges",
		"--relaxed",
	}
	slog.Info("predictor: running ring", "model", modelPath)
	if err := r.run(ctx, "", r.exe, args...); err != nil {
		return "", "", fmt.Errorf("predictor: ring: %w", err)
	}

	if !fileExists(nodesPath) || !fileExists(edgesPath) {
		return "", "", fmt.Errorf("%w: no network files for %s", ErrNoArtifact, modelPath)
	}
	return nodesPath, edgesPath, nil
}
