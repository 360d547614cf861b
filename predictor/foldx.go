package predictor

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loggy01/alpharing/variant"
)

// FoldX shells out to FoldX PositionScan against a model. FoldX resolves
// auxiliary files relative to its working directory, so the command runs in
// the model's directory, which is also where the scanning output lands.
type FoldX struct {
	exe string
	run runFunc
}

// NewFoldX builds the exec-backed stability estimator.
func NewFoldX(cfg Config) *FoldX {
	return &FoldX{exe: cfg.FoldXExe, run: runCommand}
}

// scanOutputPath is where PositionScan writes its result for a model.
func scanOutputPath(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), "PS_"+fileStem(modelPath)+"_scanning_output.txt")
}

func (f *FoldX) Stability(ctx context.Context, modelPath string, subs []variant.Substitution) ([]float64, error) {
	outPath := scanOutputPath(modelPath)

	// A previous scan is reused only when it covers exactly this request;
	// the file name does not encode the substitution list.
	if fileExists(outPath) {
		if ddgs, err := ParsePositionScan(outPath); err == nil && len(ddgs) == len(subs) {
			slog.Info("predictor: reusing position scan", "model", modelPath, "substitutions", len(subs))
			return ddgs, nil
		}
	}

	positions := make([]string, len(subs))
	for i, s := range subs {
		positions[i] = s.String()
	}
	dir := filepath.Dir(modelPath)
	args := []string{
		"--command=PositionScan",
		"--pdb=" + filepath.Base(modelPath),
		"--pdb-dir=" + dir,
		"--positions=" + strings.Join(positions, ","),
	}
	slog.Info("predictor: running foldx", "model", modelPath, "substitutions", len(subs))
	if err := f.run(ctx, dir, f.exe, args...); err != nil {
		return nil, fmt.Errorf("predictor: foldx: %w", err)
	}

	if !fileExists(outPath) {
		return nil, fmt.Errorf("%w: no scanning output for %s", ErrNoArtifact, modelPath)
	}
	ddgs, err := ParsePositionScan(outPath)
	if err != nil {
		return nil, err
	}
	if len(ddgs) != len(subs) {
		return nil, fmt.Errorf("predictor: position scan %s covers %d substitutions, want %d",
			outPath, len(ddgs), len(subs))
	}
	return ddgs, nil
}

// ParsePositionScan reads a PositionScan output file: a headerless
// tab-separated table of alternating wild-type and variant rows, one pair
// per requested substitution, energies in the second column. The returned
// free-energy changes are the variant-row energies in file order, which is
// the request order.
func ParsePositionScan(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("predictor: opening position scan: %w", err)
	}
	defer f.Close()

	var ddgs []float64
	row := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if row%2 == 1 {
			fields := strings.Split(line, "\t")
			if len(fields) < 2 {
				return nil, fmt.Errorf("predictor: position scan %s: row %d has no energy column", path, row)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("predictor: position scan %s: row %d: %w", path, row, err)
			}
			ddgs = append(ddgs, v)
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("predictor: reading position scan: %w", err)
	}
	if row%2 != 0 {
		return nil, fmt.Errorf("predictor: position scan %s has %d rows, want wild-type/variant pairs", path, row)
	}
	return ddgs, nil
}
