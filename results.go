package alpharing

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/loggy01/alpharing/features"
)

// writeScoresV1 writes the fold-change results table. Failed substitutions
// are omitted; the header is written even when every row failed so the file
// always reflects the last batch.
func writeScoresV1(path string, results []ScoreResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, strings.Join([]string{
		"Substitution", "WildTypeWeight", "VariantWeight", "FoldChange", "Score",
	}, "\t"))

	for _, r := range results {
		if r.Err != nil || r.Record == nil {
			continue
		}
		fmt.Fprintln(bw, strings.Join([]string{
			r.Substitution.String(),
			formatCell(r.Record.WildTypeWeight),
			formatCell(r.Record.VariantWeight),
			formatCell(r.Record.FoldChange),
			formatCell(r.Record.Score),
		}, "\t"))
	}
	return bw.Flush()
}

// writeScoresV2 writes the classification results table: one row per
// substitution with its features, verdict, and per-feature attributions.
func writeScoresV2(path string, results []ClassifyResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := []string{"Substitution"}
	header = append(header, features.Names()...)
	header = append(header, "label", "Probability")
	for _, n := range features.Names() {
		header = append(header, n+" SHAP")
	}

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, strings.Join(header, "\t"))

	for _, r := range results {
		if r.Err != nil || r.Classification == nil {
			continue
		}
		c := r.Classification
		row := []string{r.Substitution.String()}
		for _, v := range c.Features {
			row = append(row, formatCell(v))
		}
		row = append(row, string(c.Label), formatCell(c.Probability))
		for _, v := range c.Attributions {
			row = append(row, formatCell(v))
		}
		fmt.Fprintln(bw, strings.Join(row, "\t"))
	}
	return bw.Flush()
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
