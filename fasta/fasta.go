// Package fasta reads and writes protein FASTA files.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmpty is returned when a FASTA source holds no records.
var ErrEmpty = errors.New("fasta: no records")

// Record is one FASTA entry. ID is the first word of the header line,
// Description the remainder.
type Record struct {
	ID          string
	Description string
	Sequence    string
}

// Read parses all records from r. Sequence lines are concatenated with
// whitespace stripped and upper-cased; ";" comment lines are skipped.
func Read(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []Record
	var current *Record
	var seq strings.Builder

	flush := func() {
		if current != nil {
			current.Sequence = seq.String()
			records = append(records, *current)
			seq.Reset()
		}
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			header := strings.TrimSpace(line[1:])
			id, desc, _ := strings.Cut(header, " ")
			current = &Record{ID: id, Description: strings.TrimSpace(desc)}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("fasta: sequence data before first header")
		}
		seq.WriteString(strings.ToUpper(strings.ReplaceAll(line, " ", "")))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading fasta: %w", err)
	}
	flush()

	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return records, nil
}

// ReadFile parses all records from the file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fasta: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// ReadOne parses the file at path and requires exactly one record.
func ReadOne(path string) (Record, error) {
	records, err := ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	if len(records) != 1 {
		return Record{}, fmt.Errorf("fasta: %s holds %d records, expected 1", path, len(records))
	}
	return records[0], nil
}

// lineWidth is the sequence wrap width on write.
const lineWidth = 60

// Write emits records to w, wrapping sequences at 60 columns.
func Write(w io.Writer, records ...Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		header := ">" + rec.ID
		if rec.Description != "" {
			header += " " + rec.Description
		}
		if _, err := fmt.Fprintln(bw, header); err != nil {
			return err
		}
		for start := 0; start < len(rec.Sequence); start += lineWidth {
			end := start + lineWidth
			if end > len(rec.Sequence) {
				end = len(rec.Sequence)
			}
			if _, err := fmt.Fprintln(bw, rec.Sequence[start:end]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile emits records to a new file at path.
func WriteFile(path string, records ...Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating fasta: %w", err)
	}
	if err := Write(f, records...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
