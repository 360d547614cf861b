package predictor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadConfidence extracts the per-residue model confidence (pLDDT) for one
// residue of a relaxed model. AlphaFold stores pLDDT in the B-factor column,
// identical for every atom of a residue, so the CA atom's value stands for
// the residue.
//
// PDB ATOM records are fixed-width: atom name in columns 13-16, chain in 22,
// residue number in 23-26, B-factor in 61-66.
func ReadConfidence(modelPath, chain string, position int) (float64, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return 0, fmt.Errorf("predictor: opening model: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "ATOM") || len(line) < 66 {
			continue
		}
		if strings.TrimSpace(line[12:16]) != "CA" {
			continue
		}
		if string(line[21]) != chain {
			continue
		}
		resSeq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
		if err != nil || resSeq != position {
			continue
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64)
		if err != nil {
			return 0, fmt.Errorf("predictor: model %s: bad B-factor at %s:%d: %w",
				modelPath, chain, position, err)
		}
		return b, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("predictor: reading model: %w", err)
	}
	return 0, fmt.Errorf("predictor: model %s has no CA atom at %s:%d", modelPath, chain, position)
}
