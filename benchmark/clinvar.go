// Package benchmark builds evaluation datasets from ClinVar and scores
// predictions against their known clinical labels.
//
// The dataset path filters ClinVar's variant_summary.txt down to
// expert-panel missense SNVs, fetches each transcript's protein sequence
// from NCBI, and emits wild-type and variant FASTA files ready for the
// scoring pipeline. The metrics path turns predictions plus labels into
// ROC/AUC and confusion reports.
package benchmark

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/loggy01/alpharing/variant"
)

// Clinical significance labels retained from ClinVar.
const (
	LabelPathogenic = "Pathogenic"
	LabelBenign     = "Benign"
)

// ErrBadDataset flags input rows, workbooks, or result tables the benchmark
// builders cannot use.
var ErrBadDataset = errors.New("benchmark: bad dataset")

// Case is one benchmark variant: a transcript, a missense substitution, and
// its expert-reviewed clinical significance.
type Case struct {
	Accession    string `json:"accession"` // nuccore accession, e.g. NM_000546.6
	Gene         string `json:"gene"`
	Substitution string `json:"substitution"` // three-letter form, e.g. Tyr229Ser
	Significance string `json:"significance"` // Pathogenic or Benign
}

// missensePattern matches a protein change written with three-letter codes,
// e.g. "Tyr229Ser" inside "NM_000546.6(TP53):c.686A>C (p.Tyr229Ser)".
var missensePattern = regexp.MustCompile(
	`(Ala|Arg|Asn|Asp|Cys|Gln|Glu|Gly|His|Ile|Leu|Lys|Met|Phe|Pro|Ser|Thr|Trp|Tyr|Val)` +
		`(\d+)` +
		`(Ala|Arg|Asn|Asp|Cys|Gln|Glu|Gly|His|Ile|Leu|Lys|Met|Phe|Pro|Ser|Thr|Trp|Tyr|Val)`)

// variantSummaryColumns are the columns ParseVariantSummary needs from a
// ClinVar variant_summary.txt.
var variantSummaryColumns = []string{
	"Name", "Type", "ClinicalSignificance", "ReviewStatus", "Assembly", "GeneSymbol",
}

// ParseVariantSummary extracts benchmark cases from a ClinVar
// variant_summary.txt. It keeps single-nucleotide variants reviewed by an
// expert panel on the GRCh38 assembly whose significance is Pathogenic or
// Benign and whose name carries a missense protein change, deduplicated on
// (accession, substitution) in input order.
func ParseVariantSummary(r io.Reader) ([]Case, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), 1024*1024) // ClinVar rows run long

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading variant summary: %w", err)
		}
		return nil, fmt.Errorf("%w: empty variant summary", ErrBadDataset)
	}
	cols, err := headerIndex(sc.Text())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var cases []Case
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")

		if column(fields, cols, "Type") != "single nucleotide variant" {
			continue
		}
		if column(fields, cols, "ReviewStatus") != "reviewed by expert panel" {
			continue
		}
		if column(fields, cols, "Assembly") != "GRCh38" {
			continue
		}
		sig := column(fields, cols, "ClinicalSignificance")
		if sig != LabelPathogenic && sig != LabelBenign {
			continue
		}

		name := column(fields, cols, "Name")
		m := missensePattern.FindStringSubmatch(name)
		if m == nil || m[1] == m[3] {
			continue // not missense, or synonymous
		}
		accession, _, ok := strings.Cut(name, "(")
		if !ok || accession == "" {
			continue
		}

		gene := column(fields, cols, "GeneSymbol")
		if g, _, split := strings.Cut(gene, ";"); split {
			gene = g
		}

		key := accession + "|" + m[0]
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		cases = append(cases, Case{
			Accession:    accession,
			Gene:         gene,
			Substitution: m[0],
			Significance: sig,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading variant summary: %w", err)
	}
	return cases, nil
}

// Sub converts the three-letter substitution into the compact one-letter
// form used by the scoring pipeline. Predicted structures are single-chain,
// so the chain is always A.
func (c Case) Sub() (variant.Substitution, error) {
	m := missensePattern.FindStringSubmatch(c.Substitution)
	if m == nil || m[0] != c.Substitution {
		return variant.Substitution{}, fmt.Errorf("%w: substitution %q", ErrBadDataset, c.Substitution)
	}
	wt, _ := variant.OneLetter(m[1])
	vt, _ := variant.OneLetter(m[3])
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return variant.Substitution{}, fmt.Errorf("%w: substitution %q", ErrBadDataset, c.Substitution)
	}

	sub := variant.Substitution{WildType: wt, Chain: "A", Position: pos, Variant: vt}
	if err := sub.Validate(); err != nil {
		return variant.Substitution{}, err
	}
	return sub, nil
}

// headerIndex maps column names to their positions. ClinVar prefixes the
// first column with '#' ("#AlleleID").
func headerIndex(line string) (map[string]int, error) {
	names := strings.Split(strings.TrimPrefix(line, "#"), "\t")
	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[strings.TrimSpace(name)] = i
	}
	for _, want := range variantSummaryColumns {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("%w: variant summary lacks column %s", ErrBadDataset, want)
		}
	}
	return idx, nil
}

func column(fields []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
