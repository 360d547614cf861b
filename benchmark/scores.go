package benchmark

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ScoredVariant is one row of an alpharing_scores.txt results table: the
// substitution, the value used for ranking, and the label when the table
// carries one.
type ScoredVariant struct {
	Substitution string
	Score        float64
	Label        string
}

// ReadScores reads an alpharing_scores.txt results table. Classify-mode
// tables rank by their Probability column; score-mode tables carry a Score
// column instead.
func ReadScores(path string) ([]ScoredVariant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening results table: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: %s is empty", ErrBadDataset, path)
	}

	header := strings.Split(sc.Text(), "\t")
	subCol, scoreCol, labelCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Substitution":
			subCol = i
		case "Probability":
			scoreCol = i
		case "Score":
			if scoreCol < 0 {
				scoreCol = i
			}
		case "label":
			labelCol = i
		}
	}
	if subCol < 0 || scoreCol < 0 {
		return nil, fmt.Errorf("%w: %s lacks Substitution/Probability columns", ErrBadDataset, path)
	}

	var scored []ScoredVariant
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if subCol >= len(fields) || scoreCol >= len(fields) {
			return nil, fmt.Errorf("%w: short row in %s: %q", ErrBadDataset, path, line)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[scoreCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad score in %s: %q", ErrBadDataset, path, fields[scoreCol])
		}

		sv := ScoredVariant{
			Substitution: strings.TrimSpace(fields[subCol]),
			Score:        score,
		}
		if labelCol >= 0 && labelCol < len(fields) {
			sv.Label = strings.TrimSpace(fields[labelCol])
		}
		scored = append(scored, sv)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return scored, nil
}

// Join pairs scored variants with their known labels by substitution text.
// Variants without a label entry are dropped, as are labels never scored.
func Join(scored []ScoredVariant, labeled []LabeledVariant) []Evaluation {
	byName := make(map[string]string, len(labeled))
	for _, lv := range labeled {
		byName[lv.Substitution] = lv.Label
	}

	var evals []Evaluation
	for _, sv := range scored {
		label, ok := byName[sv.Substitution]
		if !ok {
			continue
		}
		evals = append(evals, Evaluation{
			Substitution: sv.Substitution,
			Score:        sv.Score,
			Pathogenic:   strings.EqualFold(label, LabelPathogenic),
		})
	}
	return evals
}
