package features

import (
	"errors"
	"math"
	"testing"

	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/variant"
)

const eps = 1e-12

// siteGraph builds a five-residue chain where position 3 (TYR) carries one
// scored and one contact-only bond, so its degree counts both.
func siteGraph(t *testing.T) *ring.Graph {
	t.Helper()
	ids := make([]ring.NodeID, 6)
	residues := make([]ring.Residue, 0, 5)
	names := []string{"", "MET", "LYS", "TYR", "SER", "GLY"}
	for p := 1; p <= 5; p++ {
		ids[p] = ring.NodeID{Chain: "A", Position: p}
		residues = append(residues, ring.Residue{
			ID: ids[p], Name: names[p], Insertion: "_",
			Degree: -1, Confidence: math.NaN(),
		})
	}
	bonds := []ring.Bond{
		{Node1: ids[2], Node2: ids[3], Class: ring.HBond, Subtype: "MC_MC",
			Energy: -2.1, Distance: 3.0, Angle: 150, Weight: math.NaN()},
		{Node1: ids[3], Node2: ids[5], Class: ring.VdW, Subtype: "SC_SC",
			Energy: math.NaN(), Distance: math.NaN(), Angle: math.NaN(), Weight: math.NaN()},
	}
	g, err := ring.NewGraph(residues, bonds)
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return g
}

func TestBuild(t *testing.T) {
	g := siteGraph(t)
	sub, err := variant.Parse("YA3S")
	if err != nil {
		t.Fatalf("parsing substitution: %v", err)
	}

	v, err := Build(g, sub, 91.5, 1.25, 5)
	if err != nil {
		t.Fatalf("building vector: %v", err)
	}

	if v[PLDDT] != 91.5 {
		t.Errorf("pLDDT: got %v, want 91.5", v[PLDDT])
	}
	if v[Degree] != 2 {
		t.Errorf("degree: got %v, want 2 (every bond class counts)", v[Degree])
	}
	if v[DDG] != 1.25 {
		t.Errorf("free-energy change: got %v, want 1.25", v[DDG])
	}
	if math.Abs(v[RSP]-0.5) > eps {
		t.Errorf("relative position: got %v, want 0.5", v[RSP])
	}
}

func TestBuildMissingFeature(t *testing.T) {
	g := siteGraph(t)

	tests := []struct {
		name       string
		sub        string
		confidence float64
		ddg        float64
		seqLen     int
	}{
		{"zero sequence length", "YA3S", 91.5, 1.25, 0},
		{"position past sequence end", "GA5A", 91.5, 1.25, 4},
		{"site not in graph", "WB3Y", 91.5, 1.25, 5},
		{"confidence absent", "YA3S", math.NaN(), 1.25, 5},
		{"free-energy change absent", "YA3S", 91.5, math.NaN(), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := variant.Parse(tt.sub)
			if err != nil {
				t.Fatalf("parsing substitution: %v", err)
			}
			if _, err := Build(g, sub, tt.confidence, tt.ddg, tt.seqLen); !errors.Is(err, ErrMissing) {
				t.Fatalf("expected ErrMissing, got %v", err)
			}
		})
	}
}

func TestRelativePosition(t *testing.T) {
	tests := []struct {
		name     string
		position int
		length   int
		want     float64
	}{
		{"first residue", 1, 236, 0},
		{"last residue", 236, 236, 1},
		{"middle of odd length", 3, 5, 0.5},
		{"single-residue sequence", 1, 1, 0},
		{"position 229 of 236", 229, 236, 228.0 / 235.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativePosition(tt.position, tt.length)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNamesOrder(t *testing.T) {
	want := []string{"pLDDT", "Degree", "ΔΔG", "RSP"}
	got := Names()
	if len(got) != Count {
		t.Fatalf("got %d names, want %d", len(got), Count)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, got[i], want[i])
		}
	}
	// Mutating the returned slice must not leak into later calls.
	got[0] = "mutated"
	if Name(PLDDT) != "pLDDT" {
		t.Error("Names() exposed internal storage")
	}
}
