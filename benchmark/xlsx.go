package benchmark

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LabeledVariant is one row of a variant-list workbook: a substitution in
// compact form plus its known clinical label.
type LabeledVariant struct {
	Substitution string
	Label        string // Pathogenic or Benign
}

// ReadVariantsXLSX reads labeled variants from the first sheet of an XLSX
// workbook. The header row must name a "substitution" and a "label" column
// (any case); other columns are ignored, as are rows with either cell
// empty.
func ReadVariantsXLSX(path string) ([]LabeledVariant, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrBadDataset)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: sheet %s has no data rows", ErrBadDataset, sheets[0])
	}

	subCol, labelCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "substitution":
			subCol = i
		case "label":
			labelCol = i
		}
	}
	if subCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("%w: sheet %s lacks substitution/label columns", ErrBadDataset, sheets[0])
	}

	var variants []LabeledVariant
	for _, row := range rows[1:] {
		// excelize trims trailing empty cells from each row.
		if subCol >= len(row) || labelCol >= len(row) {
			continue
		}
		sub := strings.TrimSpace(row[subCol])
		label := strings.TrimSpace(row[labelCol])
		if sub == "" || label == "" {
			continue
		}
		variants = append(variants, LabeledVariant{Substitution: sub, Label: label})
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no labeled variants in %s", ErrBadDataset, path)
	}
	return variants, nil
}
