package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// AlphaFold shells out to the AlphaFold run script. A relaxed model already
// present for the FASTA short-circuits the run, so repeated scoring of the
// same protein folds once.
type AlphaFold struct {
	python string
	script string
	data   string
	run    runFunc
}

// NewAlphaFold builds the exec-backed structure predictor.
func NewAlphaFold(cfg Config) *AlphaFold {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	return &AlphaFold{python: python, script: cfg.AlphaFoldScript, data: cfg.DataDir, run: runCommand}
}

// modelPattern is where the run script leaves the relaxed model: a
// per-protein subdirectory named after the FASTA stem.
func modelPattern(fastaPath, outputDir string) string {
	return filepath.Join(outputDir, fileStem(fastaPath), "relaxed*.pdb")
}

func (a *AlphaFold) Model(ctx context.Context, fastaPath, outputDir string) (string, error) {
	pattern := modelPattern(fastaPath, outputDir)
	if path, ok := firstGlob(pattern); ok {
		slog.Info("predictor: reusing relaxed model", "fasta", fastaPath, "model", path)
		return path, nil
	}

	slog.Info("predictor: running alphafold", "fasta", fastaPath, "output_dir", outputDir)
	if err := a.run(ctx, "", a.python, a.args(fastaPath, outputDir)...); err != nil {
		return "", fmt.Errorf("predictor: alphafold: %w", err)
	}

	path, ok := firstGlob(pattern)
	if !ok {
		return "", fmt.Errorf("%w: no relaxed model matching %s", ErrNoArtifact, pattern)
	}
	slog.Info("predictor: relaxed model ready", "model", path)
	return path, nil
}

// args assembles the run-script invocation, pointing every database flag
// into the configured data directory the way the upstream pipeline does.
func (a *AlphaFold) args(fastaPath, outputDir string) []string {
	d := a.data
	return []string{
		a.script,
		"--fasta_paths=" + fastaPath,
		"--output_dir=" + outputDir,
		"--data_dir=" + d,
		"--uniref90_database_path=" + filepath.Join(d, "uniref90", "uniref90.fasta"),
		"--mgnify_database_path=" + filepath.Join(d, "mgnify", "mgy_clusters_2022_05.fa"),
		"--bfd_database_path=" + filepath.Join(d, "bfd", "bfd_metaclust_clu_complete_id30_c90_final_seq.sorted_opt"),
		"--uniref30_database_path=" + filepath.Join(d, "uniref30", "UniRef30_2021_03"),
		"--pdb70_database_path=" + filepath.Join(d, "pdb70", "pdb70"),
		"--template_mmcif_dir=" + filepath.Join(d, "pdb_mmcif", "mmcif_files"),
		"--obsolete_pdbs_path=" + filepath.Join(d, "pdb_mmcif", "obsolete.dat"),
		"--max_template_date=2050-01-01",
		"--use_gpu_relax=False",
	}
}

// Prefolded serves models computed offline (e.g. on a cluster) and never
// runs AlphaFold. Useful for benchmark evaluation hosts without the
// databases installed.
type Prefolded struct{}

// NewPrefolded builds the glob-only structure predictor.
func NewPrefolded() *Prefolded {
	return &Prefolded{}
}

func (p *Prefolded) Model(ctx context.Context, fastaPath, outputDir string) (string, error) {
	pattern := modelPattern(fastaPath, outputDir)
	path, ok := firstGlob(pattern)
	if !ok {
		return "", fmt.Errorf("%w: no prefolded model matching %s", ErrNoArtifact, pattern)
	}
	return path, nil
}
