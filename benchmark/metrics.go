package benchmark

import (
	"encoding/json"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Evaluation pairs a predicted score with the known label for one variant.
type Evaluation struct {
	Substitution string  `json:"substitution"`
	Score        float64 `json:"score"`
	Pathogenic   bool    `json:"pathogenic"`
}

// Confusion counts label agreement at the classifier thresholds. Variants
// scoring between the two thresholds are called neither deleterious nor
// neutral and land in Ambiguous.
type Confusion struct {
	TrueDeleterious  int `json:"true_deleterious"`
	FalseDeleterious int `json:"false_deleterious"`
	TrueNeutral      int `json:"true_neutral"`
	FalseNeutral     int `json:"false_neutral"`
	Ambiguous        int `json:"ambiguous"`
}

// Report summarises how well a score separates pathogenic from benign
// variants.
type Report struct {
	Cases     int       `json:"cases"`
	Positives int       `json:"positives"`
	Negatives int       `json:"negatives"`
	AUC       float64   `json:"auc"`
	Confusion Confusion `json:"confusion"`
}

// Evaluate computes ROC/AUC over the evaluations plus confusion counts at
// the given label thresholds. It needs at least one pathogenic and one
// benign case.
func Evaluate(evals []Evaluation, neutralMax, deleteriousMin float64) (*Report, error) {
	report := &Report{Cases: len(evals)}

	y := make([]float64, 0, len(evals))
	classes := make([]bool, 0, len(evals))
	for _, e := range evals {
		y = append(y, e.Score)
		classes = append(classes, e.Pathogenic)
		if e.Pathogenic {
			report.Positives++
		} else {
			report.Negatives++
		}

		switch {
		case e.Score >= deleteriousMin:
			if e.Pathogenic {
				report.Confusion.TrueDeleterious++
			} else {
				report.Confusion.FalseDeleterious++
			}
		case e.Score <= neutralMax:
			if e.Pathogenic {
				report.Confusion.FalseNeutral++
			} else {
				report.Confusion.TrueNeutral++
			}
		default:
			report.Confusion.Ambiguous++
		}
	}
	if report.Positives == 0 || report.Negatives == 0 {
		return nil, fmt.Errorf("%w: need both pathogenic and benign cases (have %d/%d)",
			ErrBadDataset, report.Positives, report.Negatives)
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	// ROC walks the cutoffs upward, so the rates come back descending;
	// trapezoidal integration needs ascending x.
	if len(fpr) > 1 && fpr[0] > fpr[len(fpr)-1] {
		slices.Reverse(tpr)
		slices.Reverse(fpr)
	}
	report.AUC = integrate.Trapezoidal(fpr, tpr)

	return report, nil
}

// JSON renders the report indented for files and terminals.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
