package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// efetchURL is NCBI's E-utilities fetch endpoint.
const efetchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

// Sequence length bounds for benchmark transcripts. Anything shorter folds
// trivially; anything longer exceeds what the structure predictor handles in
// reasonable time.
const (
	MinSequenceLength = 16
	MaxSequenceLength = 2700
)

// ErrNoTranslation is returned when a GenBank record carries no CDS
// translation.
var ErrNoTranslation = errors.New("benchmark: no CDS translation in record")

// SequenceFetcher retrieves protein sequences for nuccore accessions from
// NCBI efetch. The zero value is ready to use.
type SequenceFetcher struct {
	BaseURL string       // defaults to the NCBI E-utilities endpoint
	Client  *http.Client // defaults to a client with a 30s timeout
}

// Protein fetches the GenBank record for a nuccore accession and extracts
// the protein sequence from its first CDS /translation qualifier.
func (f *SequenceFetcher) Protein(ctx context.Context, accession string) (string, error) {
	q := url.Values{}
	q.Set("db", "nuccore")
	q.Set("id", accession)
	q.Set("rettype", "gb")
	q.Set("retmode", "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url()+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building efetch request: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", accession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: efetch returned %s", accession, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading efetch response for %s: %w", accession, err)
	}

	seq, err := extractTranslation(string(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", accession, err)
	}
	return seq, nil
}

func (f *SequenceFetcher) url() string {
	if f.BaseURL != "" {
		return f.BaseURL
	}
	return efetchURL
}

func (f *SequenceFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// extractTranslation pulls the amino-acid sequence out of a GenBank flat
// file: the quoted /translation qualifier of the first CDS feature. GenBank
// wraps qualifier values across indented lines, so whitespace inside the
// quotes is stripped.
func extractTranslation(record string) (string, error) {
	cds := strings.Index(record, "CDS")
	if cds < 0 {
		return "", ErrNoTranslation
	}
	tag := strings.Index(record[cds:], `/translation="`)
	if tag < 0 {
		return "", ErrNoTranslation
	}
	start := cds + tag + len(`/translation="`)
	end := strings.IndexByte(record[start:], '"')
	if end < 0 {
		return "", ErrNoTranslation
	}

	seq := record[start : start+end]
	seq = strings.ReplaceAll(seq, "\n", "")
	seq = strings.ReplaceAll(seq, "\r", "")
	seq = strings.ReplaceAll(seq, " ", "")
	if seq == "" {
		return "", ErrNoTranslation
	}
	return seq, nil
}
