package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/loggy01/alpharing/fasta"
)

// Dataset is the on-disk layout of a benchmark: wild-type FASTAs in one
// directory, variant FASTAs in another.
type Dataset struct {
	WildTypeDir string
	VariantDir  string
}

// Build fetches the wild-type sequence for each transcript and writes one
// FASTA per transcript plus one per variant. Transcripts that cannot be
// fetched or fall outside the sequence length bounds are skipped, as are
// cases whose substitution does not match the fetched sequence; skips are
// logged, not fatal. The returned slice holds the cases that made it to
// disk, in input order.
func (d Dataset) Build(ctx context.Context, fetcher *SequenceFetcher, cases []Case) ([]Case, error) {
	for _, dir := range []string{d.WildTypeDir, d.VariantDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating dataset dir: %w", err)
		}
	}

	sequences := make(map[string]string) // accession -> wild-type sequence, "" when rejected
	var kept []Case
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return kept, err
		}

		seq, seen := sequences[c.Accession]
		if !seen {
			var err error
			seq, err = d.writeWildType(ctx, fetcher, c)
			if err != nil {
				if ctx.Err() != nil {
					return kept, ctx.Err()
				}
				slog.Warn("benchmark: skipping transcript", "accession", c.Accession, "err", err)
				seq = ""
			}
			sequences[c.Accession] = seq
		}
		if seq == "" {
			continue
		}

		if err := d.writeVariant(c, seq); err != nil {
			slog.Warn("benchmark: skipping case",
				"accession", c.Accession, "substitution", c.Substitution, "err", err)
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

// writeWildType fetches the transcript's protein, applies the sequence
// length bounds, and writes <accession>_<gene>.fa.
func (d Dataset) writeWildType(ctx context.Context, fetcher *SequenceFetcher, c Case) (string, error) {
	seq, err := fetcher.Protein(ctx, c.Accession)
	if err != nil {
		return "", err
	}
	if len(seq) < MinSequenceLength || len(seq) > MaxSequenceLength {
		return "", fmt.Errorf("%w: sequence length %d outside [%d, %d]",
			ErrBadDataset, len(seq), MinSequenceLength, MaxSequenceLength)
	}

	id := c.Accession + "_" + c.Gene
	path := filepath.Join(d.WildTypeDir, id+".fa")
	if err := fasta.WriteFile(path, fasta.Record{ID: id, Sequence: seq}); err != nil {
		return "", err
	}
	return seq, nil
}

// writeVariant splices the substitution into the wild-type sequence and
// writes <accession>_<gene>_<substitution>_<significance>.fa. The record
// keeps the wild-type ID so downstream runs land in the same model
// directory naming scheme.
func (d Dataset) writeVariant(c Case, wildType string) error {
	sub, err := c.Sub()
	if err != nil {
		return err
	}
	varSeq, err := sub.Apply(wildType)
	if err != nil {
		return err
	}

	id := c.Accession + "_" + c.Gene
	name := fmt.Sprintf("%s_%s_%s.fa", id, c.Substitution, c.Significance)
	return fasta.WriteFile(filepath.Join(d.VariantDir, name), fasta.Record{ID: id, Sequence: varSeq})
}
