package fasta

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	input := `>NM_000546.6 Homo sapiens TP53 mRNA
MEEPQSDPSV
epplsqetfs
; a comment line

>NM_000059.4
MPIGSK
`
	records, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if records[0].ID != "NM_000546.6" {
		t.Errorf("ID = %q", records[0].ID)
	}
	if records[0].Description != "Homo sapiens TP53 mRNA" {
		t.Errorf("Description = %q", records[0].Description)
	}
	if records[0].Sequence != "MEEPQSDPSVEPPLSQETFS" {
		t.Errorf("Sequence = %q, want concatenated upper-case", records[0].Sequence)
	}

	if records[1].ID != "NM_000059.4" || records[1].Description != "" {
		t.Errorf("record 1 header = %q/%q", records[1].ID, records[1].Description)
	}
	if records[1].Sequence != "MPIGSK" {
		t.Errorf("record 1 sequence = %q", records[1].Sequence)
	}
}

func TestReadErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if _, err := Read(strings.NewReader("")); !errors.Is(err, ErrEmpty) {
			t.Fatalf("err = %v, want ErrEmpty", err)
		}
	})
	t.Run("comments only", func(t *testing.T) {
		if _, err := Read(strings.NewReader("; nothing here\n")); !errors.Is(err, ErrEmpty) {
			t.Fatalf("err = %v, want ErrEmpty", err)
		}
	})
	t.Run("sequence before header", func(t *testing.T) {
		if _, err := Read(strings.NewReader("MEEPQ\n>P1\n")); err == nil {
			t.Fatal("want error for headerless sequence data")
		}
	})
}

func TestReadOne(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "one.fa")
	if err := os.WriteFile(single, []byte(">P1 test\nMKT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := ReadOne(single)
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if rec.ID != "P1" || rec.Sequence != "MKT" {
		t.Errorf("record = %+v", rec)
	}

	double := filepath.Join(dir, "two.fa")
	if err := os.WriteFile(double, []byte(">P1\nMKT\n>P2\nAYK\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadOne(double); err == nil {
		t.Fatal("want error for multi-record file")
	}

	if _, err := ReadOne(filepath.Join(dir, "absent.fa")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	long := strings.Repeat("MEEPQSDPSV", 13) // 130 residues, forces wrapping
	records := []Record{
		{ID: "P1", Description: "wrapped", Sequence: long},
		{ID: "P2", Sequence: "AYK"},
	}

	var sb strings.Builder
	if err := Write(&sb, records...); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := sb.String()
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 61 {
			t.Errorf("line exceeds wrap width: %d chars", len(line))
		}
	}
	if !strings.HasPrefix(out, ">P1 wrapped\n") {
		t.Errorf("output starts %q", out[:min(20, len(out))])
	}

	back, err := Read(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(back) != 2 || back[0].Sequence != long || back[1].Sequence != "AYK" {
		t.Errorf("round trip lost data: %d records", len(back))
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.fa")
	if err := WriteFile(path, Record{ID: "P1", Sequence: "MKT"}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rec, err := ReadOne(path)
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if rec.Sequence != "MKT" {
		t.Errorf("Sequence = %q", rec.Sequence)
	}
}
