package alpharing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/loggy01/alpharing/benchmark"
	"github.com/loggy01/alpharing/fasta"
	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/variant"
)

// fakeStructure maps each FASTA to a deterministic model path without
// running anything. Failures are injected per file stem.
type fakeStructure struct {
	dir  string
	fail map[string]error

	mu    sync.Mutex
	calls []string
}

func (f *fakeStructure) Model(ctx context.Context, fastaPath, outputDir string) (string, error) {
	stem := fileStem(fastaPath)
	f.mu.Lock()
	f.calls = append(f.calls, stem)
	f.mu.Unlock()
	if err := f.fail[stem]; err != nil {
		return "", err
	}
	return filepath.Join(f.dir, stem+".pdb"), nil
}

// fakeNetwork serves pre-built graphs as RING-style files, keyed by model
// stem. Files are written once so concurrent pipeline runs never observe a
// truncated table.
type fakeNetwork struct {
	dir    string
	graphs map[string]*ring.Graph
	fail   map[string]error

	mu sync.Mutex
}

func (f *fakeNetwork) Network(ctx context.Context, modelPath string) (string, string, error) {
	stem := fileStem(modelPath)
	if err := f.fail[stem]; err != nil {
		return "", "", err
	}
	g, ok := f.graphs[stem]
	if !ok {
		return "", "", fmt.Errorf("no graph prepared for %s", stem)
	}

	nodesPath := filepath.Join(f.dir, stem+"_ringNodes")
	edgesPath := filepath.Join(f.dir, stem+"_ringEdges")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(nodesPath); err == nil {
		return nodesPath, edgesPath, nil
	}
	if err := writeGraphFile(nodesPath, g, ring.WriteNodes); err != nil {
		return "", "", err
	}
	if err := writeGraphFile(edgesPath, g, ring.WriteEdges); err != nil {
		return "", "", err
	}
	return nodesPath, edgesPath, nil
}

func writeGraphFile(path string, g *ring.Graph, write func(w io.Writer, g *ring.Graph) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f, g)
}

// fakeStability returns a fixed free-energy change per substitution and
// records which model it was asked to scan.
type fakeStability struct {
	ddg float64
	err error

	mu     sync.Mutex
	models []string
}

func (f *fakeStability) Stability(ctx context.Context, modelPath string, subs []variant.Substitution) ([]float64, error) {
	f.mu.Lock()
	f.models = append(f.models, fileStem(modelPath))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(subs))
	for i := range out {
		out[i] = f.ddg
	}
	return out, nil
}

type testBond struct {
	a, b   int
	energy float64
}

// chainGraph builds residues 1..len(seq) on chain A from a one-letter
// sequence, with ionic bonds at the distance that makes weight equal energy.
func chainGraph(t *testing.T, seq string, bonds []testBond) *ring.Graph {
	t.Helper()
	residues := make([]ring.Residue, len(seq))
	for i := range seq {
		name, ok := variant.ThreeLetter(seq[i])
		if !ok {
			t.Fatalf("unknown residue %q", seq[i])
		}
		residues[i] = ring.Residue{
			ID:         ring.NodeID{Chain: "A", Position: i + 1},
			Name:       name,
			Insertion:  "_",
			Degree:     -1,
			Confidence: math.NaN(),
		}
	}
	ringBonds := make([]ring.Bond, len(bonds))
	for i, b := range bonds {
		ringBonds[i] = ring.Bond{
			Node1:    ring.NodeID{Chain: "A", Position: b.a},
			Node2:    ring.NodeID{Chain: "A", Position: b.b},
			Class:    ring.Ionic,
			Distance: 2.25,
			Angle:    math.NaN(),
			Energy:   b.energy,
		}
	}
	g, err := ring.NewGraph(residues, ringBonds)
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return g
}

type engineFixture struct {
	eng       *engine
	outDir    string
	structure *fakeStructure
	network   *fakeNetwork
	stability *fakeStability
}

func newFixture(t *testing.T, seq string, withModel bool) *engineFixture {
	t.Helper()
	dir := t.TempDir()
	fx := &engineFixture{
		outDir:    dir,
		structure: &fakeStructure{dir: dir, fail: map[string]error{}},
		network:   &fakeNetwork{dir: dir, graphs: map[string]*ring.Graph{}, fail: map[string]error{}},
		stability: &fakeStability{ddg: 2.0},
	}
	eng := &engine{
		cfg: Config{
			FastaPath:   "p53.fa",
			OutputDir:   dir,
			Concurrency: 2,
		},
		structure: fx.structure,
		network:   fx.network,
		stability: fx.stability,
		wildType:  fasta.Record{ID: "P1", Sequence: seq},
		fastaHash: "0ff00f",
	}
	if withModel {
		eng.model = testModel(t)
	}
	fx.eng = eng
	return fx
}

func TestEngineScore(t *testing.T) {
	fx := newFixture(t, "AYKY", false)
	fx.network.graphs["p53"] = chainGraph(t, "AYKY", []testBond{{1, 2, 4}, {3, 4, 10}})
	fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASKY", []testBond{{1, 2, 16}, {3, 4, 10}})

	rec, err := fx.eng.Score(context.Background(), mustSub(t, "YA2S"))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(rec.FoldChange-4) > eps || math.Abs(rec.Score-2) > eps {
		t.Errorf("FoldChange/Score = %v/%v, want 4/2", rec.FoldChange, rec.Score)
	}

	// Both structures were requested, wild type first.
	if got := fx.structure.calls; len(got) != 2 || got[0] != "p53" || got[1] != "p53_YA2S" {
		t.Errorf("structure calls = %v", got)
	}

	// The spliced variant FASTA was written for the predictor.
	data, err := os.ReadFile(filepath.Join(fx.outDir, "p53_YA2S.fa"))
	if err != nil {
		t.Fatalf("variant fasta: %v", err)
	}
	if !strings.HasPrefix(string(data), ">P1_YA2S") || !strings.Contains(string(data), "ASKY") {
		t.Errorf("variant fasta = %q", data)
	}

	// Weighted tables land next to each model.
	for _, name := range []string{
		"p53.pdb_alpharingNodes", "p53.pdb_alpharingEdges",
		"p53_YA2S.pdb_alpharingNodes", "p53_YA2S.pdb_alpharingEdges",
	} {
		b, err := os.ReadFile(filepath.Join(fx.outDir, name))
		if err != nil {
			t.Errorf("weighted table %s: %v", name, err)
			continue
		}
		if !strings.Contains(string(b), "Weight") {
			t.Errorf("weighted table %s has no Weight column", name)
		}
	}
}

func TestEngineScoreFailures(t *testing.T) {
	t.Run("structure failure", func(t *testing.T) {
		fx := newFixture(t, "AYKY", false)
		fx.structure.fail["p53"] = errors.New("gpu on fire")
		_, err := fx.eng.Score(context.Background(), mustSub(t, "YA2S"))
		if err == nil || !strings.Contains(err.Error(), "wild-type structure") {
			t.Fatalf("err = %v, want wild-type structure context", err)
		}
	})

	t.Run("network failure", func(t *testing.T) {
		fx := newFixture(t, "AYKY", false)
		fx.network.graphs["p53"] = chainGraph(t, "AYKY", []testBond{{1, 2, 4}})
		fx.network.fail["p53_YA2S"] = errors.New("ring exited 1")
		_, err := fx.eng.Score(context.Background(), mustSub(t, "YA2S"))
		if err == nil || !strings.Contains(err.Error(), "variant network") {
			t.Fatalf("err = %v, want variant network context", err)
		}
	})

	t.Run("wild type mismatch", func(t *testing.T) {
		fx := newFixture(t, "AYKY", false)
		// Claims C at position 3, sequence has K: rejected before any
		// collaborator runs.
		_, err := fx.eng.Score(context.Background(), mustSub(t, "CA3W"))
		if !errors.Is(err, ErrInvalidSubstitution) {
			t.Fatalf("err = %v, want ErrInvalidSubstitution", err)
		}
		if len(fx.structure.calls) != 1 {
			t.Errorf("structure calls = %v, want wild type only", fx.structure.calls)
		}
	})
}

func TestEngineScoreAll(t *testing.T) {
	fx := newFixture(t, "AYKY", false)
	fx.network.graphs["p53"] = chainGraph(t, "AYKY", []testBond{{1, 2, 4}, {3, 4, 10}})
	fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASKY", []testBond{{1, 2, 16}, {3, 4, 10}})
	fx.network.graphs["p53_YA4H"] = chainGraph(t, "AYKH", []testBond{{1, 2, 4}, {3, 4, 5}})

	subs := []variant.Substitution{
		mustSub(t, "YA2S"),
		mustSub(t, "CA3W"), // wild-type mismatch, fails
		mustSub(t, "YA4H"),
	}
	results, err := fx.eng.ScoreAll(context.Background(), subs)
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}

	// Input order is preserved and failures stay local.
	for i, sub := range subs {
		if results[i].Substitution != sub {
			t.Errorf("results[%d] is %s, want %s", i, results[i].Substitution, sub)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, ErrInvalidSubstitution) {
		t.Errorf("results[1].Err = %v, want ErrInvalidSubstitution", results[1].Err)
	}
	if math.Abs(results[0].Record.Score-2) > eps {
		t.Errorf("YA2S score = %v, want 2", results[0].Record.Score)
	}
	if math.Abs(results[2].Record.Score-1) > eps {
		t.Errorf("YA4H score = %v, want 1", results[2].Record.Score)
	}

	// The results table holds the successful rows, in order, and is
	// readable by the benchmark tooling.
	scored, err := benchmark.ReadScores(filepath.Join(fx.outDir, "alpharing_scores.txt"))
	if err != nil {
		t.Fatalf("reading results table: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("results table has %d rows, want 2", len(scored))
	}
	if scored[0].Substitution != "YA2S" || math.Abs(scored[0].Score-2) > eps {
		t.Errorf("row 0 = %+v", scored[0])
	}
	if scored[1].Substitution != "YA4H" || math.Abs(scored[1].Score-1) > eps {
		t.Errorf("row 1 = %+v", scored[1])
	}
}

func TestEngineScoreAllAllFailed(t *testing.T) {
	fx := newFixture(t, "AYKY", false)

	subs := []variant.Substitution{mustSub(t, "CA3W"), mustSub(t, "WA1G")}
	results, err := fx.eng.ScoreAll(context.Background(), subs)
	if err == nil {
		t.Fatal("want error when every substitution fails")
	}
	if !errors.Is(err, ErrInvalidSubstitution) {
		t.Errorf("err = %v, want wrapped first failure", err)
	}
	if len(results) != 2 || results[0].Err == nil || results[1].Err == nil {
		t.Errorf("results = %+v", results)
	}
}

// atomLine renders one fixed-width PDB ATOM record with the pLDDT in the
// B-factor column.
func atomLine(serial int, atom, res, chain string, seq int, bfactor float64) string {
	return fmt.Sprintf("ATOM  %5d %-4s %3s %s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f",
		serial, " "+atom, res, chain, seq, 1.0, 2.0, 3.0, 1.0, bfactor)
}

func writeModelPDB(t *testing.T, dir, stem string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\nEND\n"
	if err := os.WriteFile(filepath.Join(dir, stem+".pdb"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing model: %v", err)
	}
}

func TestEngineClassify(t *testing.T) {
	fx := newFixture(t, "AYK", true)
	fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASK", []testBond{{1, 2, 8}})
	writeModelPDB(t, fx.outDir, "p53_YA2S", atomLine(1, "CA", "SER", "A", 2, 85.5))

	cls, err := fx.eng.Classify(context.Background(), mustSub(t, "YA2S"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := [4]float64{85.5, 1, 2.0, 0.5}
	for i, v := range cls.Features {
		if math.Abs(v-want[i]) > eps {
			t.Errorf("feature %d = %v, want %v", i, v, want[i])
		}
	}
	if math.Abs(cls.Probability-0.9) > eps || cls.Label != "Deleterious" {
		t.Errorf("verdict = %v/%s, want 0.9/Deleterious", cls.Probability, cls.Label)
	}

	// The stability scan runs against the wild-type model.
	if got := fx.stability.models; len(got) != 1 || got[0] != "p53" {
		t.Errorf("stability models = %v, want [p53]", got)
	}
}

func TestEngineClassifyFailures(t *testing.T) {
	t.Run("no classifier configured", func(t *testing.T) {
		fx := newFixture(t, "AYK", false)
		_, err := fx.eng.Classify(context.Background(), mustSub(t, "YA2S"))
		if !errors.Is(err, ErrClassifierConfig) {
			t.Fatalf("err = %v, want ErrClassifierConfig", err)
		}
	})

	t.Run("missing model file", func(t *testing.T) {
		fx := newFixture(t, "AYK", true)
		fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASK", []testBond{{1, 2, 8}})
		// No PDB written, so the confidence read fails.
		_, err := fx.eng.Classify(context.Background(), mustSub(t, "YA2S"))
		if err == nil || !strings.Contains(err.Error(), "reading confidence") {
			t.Fatalf("err = %v, want confidence context", err)
		}
	})

	t.Run("stability failure", func(t *testing.T) {
		fx := newFixture(t, "AYK", true)
		fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASK", []testBond{{1, 2, 8}})
		writeModelPDB(t, fx.outDir, "p53_YA2S", atomLine(1, "CA", "SER", "A", 2, 85.5))
		fx.stability.err = errors.New("foldx licence expired")
		_, err := fx.eng.Classify(context.Background(), mustSub(t, "YA2S"))
		if err == nil || !strings.Contains(err.Error(), "stability scan") {
			t.Fatalf("err = %v, want stability context", err)
		}
	})
}

func TestEngineClassifyAll(t *testing.T) {
	fx := newFixture(t, "AYK", true)
	fx.network.graphs["p53_YA2S"] = chainGraph(t, "ASK", []testBond{{1, 2, 8}})
	fx.network.graphs["p53_KA3R"] = chainGraph(t, "AYR", []testBond{{2, 3, 6}})
	writeModelPDB(t, fx.outDir, "p53_YA2S", atomLine(1, "CA", "SER", "A", 2, 85.5))
	writeModelPDB(t, fx.outDir, "p53_KA3R", atomLine(1, "CA", "ARG", "A", 3, 70.25))

	subs := []variant.Substitution{mustSub(t, "YA2S"), mustSub(t, "KA3R")}
	results, err := fx.eng.ClassifyAll(context.Background(), subs)
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("results[%d].Err = %v", i, r.Err)
		}
		if r.Substitution != subs[i] {
			t.Errorf("results[%d] is %s, want %s", i, r.Substitution, subs[i])
		}
	}

	scored, err := benchmark.ReadScores(filepath.Join(fx.outDir, "alpharing_scores.txt"))
	if err != nil {
		t.Fatalf("reading results table: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("results table has %d rows, want 2", len(scored))
	}
	for i, want := range []string{"YA2S", "KA3R"} {
		if scored[i].Substitution != want {
			t.Errorf("row %d = %q, want %q", i, scored[i].Substitution, want)
		}
		if math.Abs(scored[i].Score-0.9) > eps || scored[i].Label != "Deleterious" {
			t.Errorf("row %d verdict = %v/%q", i, scored[i].Score, scored[i].Label)
		}
	}
}

func TestEngineClassifyAllWithoutModel(t *testing.T) {
	fx := newFixture(t, "AYK", false)
	_, err := fx.eng.ClassifyAll(context.Background(), []variant.Substitution{mustSub(t, "YA2S")})
	if !errors.Is(err, ErrClassifierConfig) {
		t.Fatalf("err = %v, want ErrClassifierConfig", err)
	}
}

func TestNew(t *testing.T) {
	writeFasta := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "p53.fa")
		if err := os.WriteFile(path, []byte(">P1 test protein\nAYK\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("requires fasta path", func(t *testing.T) {
		if _, err := New(Config{}); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("missing fasta file", func(t *testing.T) {
		cfg := Config{FastaPath: filepath.Join(t.TempDir(), "absent.fa"), StorageDir: "none"}
		if _, err := New(cfg); err == nil {
			t.Fatal("want error for missing fasta")
		}
	})

	t.Run("unknown structure provider", func(t *testing.T) {
		cfg := Config{
			FastaPath:  writeFasta(t),
			OutputDir:  t.TempDir(),
			StorageDir: "none",
		}
		cfg.Predictor.Structure = "rosetta"
		if _, err := New(cfg); !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("err = %v, want ErrUnknownProvider", err)
		}
	})

	t.Run("prefolded without persistence", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "out")
		cfg := Config{
			FastaPath:  writeFasta(t),
			OutputDir:  outDir,
			StorageDir: "none",
		}
		cfg.Predictor.Structure = "prefolded"

		eng, err := New(cfg)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer eng.Close()

		if eng.Sequence() != "AYK" {
			t.Errorf("Sequence() = %q", eng.Sequence())
		}
		if eng.Store() != nil {
			t.Error("Store() should be nil with persistence disabled")
		}
		if _, err := os.Stat(outDir); err != nil {
			t.Errorf("output dir not created: %v", err)
		}
	})

	t.Run("bad classifier artifact", func(t *testing.T) {
		cfg := Config{
			FastaPath:      writeFasta(t),
			OutputDir:      t.TempDir(),
			StorageDir:     "none",
			ClassifierPath: filepath.Join(t.TempDir(), "absent.json"),
		}
		if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "classifier") {
			t.Fatalf("err = %v, want classifier context", err)
		}
	})
}
