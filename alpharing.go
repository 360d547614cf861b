package alpharing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loggy01/alpharing/classifier"
	"github.com/loggy01/alpharing/fasta"
	"github.com/loggy01/alpharing/predictor"
	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/store"
	"github.com/loggy01/alpharing/variant"
)

// Engine is the main entry point for the AlphaRING pipeline.
type Engine interface {
	// Score runs the fold-change pipeline for one substitution: predict
	// both structures, generate both interaction networks, and compare
	// the aggregate bond weight at the substitution site.
	Score(ctx context.Context, sub variant.Substitution) (*ScoreRecord, error)

	// ScoreAll scores a batch of substitutions concurrently and writes
	// the results table to the output directory. Results keep input
	// order; per-substitution failures land in their result's Err.
	ScoreAll(ctx context.Context, subs []variant.Substitution) ([]ScoreResult, error)

	// Classify runs the classifier pipeline for one substitution:
	// assemble the feature vector from the variant structure and the
	// stability scan, then predict and explain with the model artifact.
	Classify(ctx context.Context, sub variant.Substitution) (*Classification, error)

	// ClassifyAll classifies a batch of substitutions concurrently and
	// writes the results table to the output directory.
	ClassifyAll(ctx context.Context, subs []variant.Substitution) ([]ClassifyResult, error)

	// Sequence returns the wild-type protein sequence the engine scores
	// against.
	Sequence() string

	// Store returns the underlying store for diagnostic access, or nil
	// when persistence is disabled.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// ScoreResult reports the outcome of one substitution in a ScoreAll batch.
type ScoreResult struct {
	Substitution variant.Substitution `json:"substitution"`
	Record       *ScoreRecord         `json:"record,omitempty"`
	Err          error                `json:"error,omitempty"`
}

// ClassifyResult reports the outcome of one substitution in a ClassifyAll
// batch.
type ClassifyResult struct {
	Substitution   variant.Substitution `json:"substitution"`
	Classification *Classification      `json:"classification,omitempty"`
	Err            error                `json:"error,omitempty"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	structure predictor.StructurePredictor
	network   predictor.NetworkGenerator
	stability predictor.StabilityEstimator
	model     *classifier.Model // nil when no classifier artifact is configured
	store     *store.Store      // nil when persistence is disabled

	wildType  fasta.Record
	fastaHash string

	runMu sync.Mutex
	runID string
}

// New creates a new AlphaRING engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if cfg.FastaPath == "" {
		return nil, fmt.Errorf("%w: fasta path is required", ErrInvalidConfig)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultConfig().OutputDir
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	rec, err := fasta.ReadOne(cfg.FastaPath)
	if err != nil {
		return nil, fmt.Errorf("reading fasta: %w", err)
	}
	hash, err := fileHash(cfg.FastaPath)
	if err != nil {
		return nil, fmt.Errorf("hashing fasta: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	// Open store unless persistence is disabled
	var s *store.Store
	if dbPath := cfg.resolveDBPath(); dbPath != "" {
		s, err = store.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	structure, err := predictor.NewStructurePredictor(cfg.Predictor)
	if err != nil {
		if s != nil {
			s.Close()
		}
		return nil, fmt.Errorf("creating structure predictor: %w", err)
	}

	var model *classifier.Model
	if cfg.ClassifierPath != "" {
		model, err = classifier.LoadFile(cfg.ClassifierPath)
		if err != nil {
			if s != nil {
				s.Close()
			}
			return nil, fmt.Errorf("loading classifier: %w", err)
		}
	}

	return &engine{
		cfg:       cfg,
		structure: structure,
		network:   predictor.NewRING(cfg.Predictor),
		stability: predictor.NewFoldX(cfg.Predictor),
		model:     model,
		store:     s,
		wildType:  rec,
		fastaHash: hash,
	}, nil
}

// Score runs the fold-change pipeline for a single substitution.
func (e *engine) Score(ctx context.Context, sub variant.Substitution) (*ScoreRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if e.store != nil {
		cached, err := e.store.CachedScore(ctx, e.fastaHash, sub.String())
		if err == nil && cached != nil {
			slog.Info("score: cache hit", "substitution", sub.String())
			return &ScoreRecord{
				Substitution:   sub,
				WildTypeWeight: cached.WildTypeWeight,
				VariantWeight:  cached.VariantWeight,
				FoldChange:     cached.FoldChange,
				Score:          cached.Score,
			}, nil
		}
	}

	subID, err := e.trackSubstitution(ctx, "score", sub)
	if err != nil {
		return nil, err
	}

	rec, err := e.scorePipeline(ctx, sub)
	if err != nil {
		e.finishSubstitution(ctx, subID, store.StatusFailed, err)
		return nil, err
	}

	if e.store != nil {
		if err := e.store.SaveScore(ctx, store.Score{
			SubstitutionID: subID,
			WildTypeWeight: rec.WildTypeWeight,
			VariantWeight:  rec.VariantWeight,
			FoldChange:     rec.FoldChange,
			Score:          rec.Score,
		}); err != nil {
			slog.Warn("score: saving result failed", "substitution", sub.String(), "error", err)
		}
	}
	e.finishSubstitution(ctx, subID, store.StatusCompleted, nil)
	return rec, nil
}

// scorePipeline runs the external collaborators and compares the graphs.
func (e *engine) scorePipeline(ctx context.Context, sub variant.Substitution) (*ScoreRecord, error) {
	wtModel, err := e.structure.Model(ctx, e.cfg.FastaPath, e.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("wild-type structure: %w", err)
	}
	varModel, err := e.variantModel(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("variant structure: %w", err)
	}

	wtGraph, err := e.interactionGraph(ctx, wtModel)
	if err != nil {
		return nil, fmt.Errorf("wild-type network: %w", err)
	}
	varGraph, err := e.interactionGraph(ctx, varModel)
	if err != nil {
		return nil, fmt.Errorf("variant network: %w", err)
	}

	rec, err := ScoreV1(wtGraph, varGraph, sub)
	if err != nil {
		return nil, err
	}

	e.writeWeighted(wtModel, wtGraph)
	e.writeWeighted(varModel, varGraph)
	return rec, nil
}

// Classify runs the classifier pipeline for a single substitution.
func (e *engine) Classify(ctx context.Context, sub variant.Substitution) (*Classification, error) {
	if e.model == nil {
		return nil, fmt.Errorf("%w: no classifier artifact configured", ErrClassifierConfig)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if e.store != nil {
		cached, err := e.store.CachedClassification(ctx, e.fastaHash, sub.String())
		if err == nil && cached != nil {
			slog.Info("classify: cache hit", "substitution", sub.String())
			return &Classification{
				Substitution: sub,
				Features:     cached.Features,
				Probability:  cached.Probability,
				Label:        classifier.Label(cached.Label),
				Baseline:     cached.Baseline,
				Attributions: cached.Attributions,
			}, nil
		}
	}

	subID, err := e.trackSubstitution(ctx, "classify", sub)
	if err != nil {
		return nil, err
	}

	cls, err := e.classifyPipeline(ctx, sub)
	if err != nil {
		e.finishSubstitution(ctx, subID, store.StatusFailed, err)
		return nil, err
	}

	if e.store != nil {
		if err := e.store.SaveClassification(ctx, store.Classification{
			SubstitutionID: subID,
			Features:       cls.Features,
			Probability:    cls.Probability,
			Label:          string(cls.Label),
			Baseline:       cls.Baseline,
			Attributions:   cls.Attributions,
		}); err != nil {
			slog.Warn("classify: saving result failed", "substitution", sub.String(), "error", err)
		}
	}
	e.finishSubstitution(ctx, subID, store.StatusCompleted, nil)
	return cls, nil
}

// classifyPipeline assembles the feature vector from the collaborators and
// hands it to the model.
func (e *engine) classifyPipeline(ctx context.Context, sub variant.Substitution) (*Classification, error) {
	wtModel, err := e.structure.Model(ctx, e.cfg.FastaPath, e.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("wild-type structure: %w", err)
	}
	varModel, err := e.variantModel(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("variant structure: %w", err)
	}

	varGraph, err := e.interactionGraph(ctx, varModel)
	if err != nil {
		return nil, fmt.Errorf("variant network: %w", err)
	}

	confidence, err := predictor.ReadConfidence(varModel, sub.Chain, sub.Position)
	if err != nil {
		return nil, fmt.Errorf("reading confidence: %w", err)
	}

	// The stability scan mutates the wild-type model, so it gets the
	// wild-type structure even though every other feature is read off
	// the variant.
	ddgs, err := e.stability.Stability(ctx, wtModel, []variant.Substitution{sub})
	if err != nil {
		return nil, fmt.Errorf("stability scan: %w", err)
	}
	if len(ddgs) != 1 {
		return nil, fmt.Errorf("stability scan: got %d values for 1 substitution", len(ddgs))
	}

	cls, err := ScoreV2(e.model, varGraph, sub, confidence, ddgs[0], len(e.wildType.Sequence))
	if err != nil {
		return nil, err
	}

	e.writeWeighted(varModel, varGraph)
	return cls, nil
}

// ScoreAll scores substitutions concurrently, bounded by cfg.Concurrency.
func (e *engine) ScoreAll(ctx context.Context, subs []variant.Substitution) ([]ScoreResult, error) {
	results := make([]ScoreResult, len(subs))
	if len(subs) == 0 {
		return results, nil
	}

	slog.Info("score: processing substitutions",
		"total", len(subs), "concurrency", e.cfg.Concurrency)

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		sem        = make(chan struct{}, e.cfg.Concurrency)
		failed     int
		firstErr   error
		completed  int
		batchStart = time.Now()
	)

	total := len(subs)
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub variant.Substitution) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = ScoreResult{Substitution: sub, Err: ctx.Err()}
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			subCtx, cancel := e.substitutionContext(ctx)
			defer cancel()

			subStart := time.Now()
			rec, err := e.Score(subCtx, sub)
			results[i] = ScoreResult{Substitution: sub, Record: rec, Err: err}

			if err != nil {
				slog.Warn("score: substitution failed",
					"substitution", sub.String(), "error", err,
					"elapsed", time.Since(subStart).Round(time.Millisecond))
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()
			slog.Info("score: substitution done",
				"progress", fmt.Sprintf("%d/%d", n, total),
				"substitution", sub.String(),
				"score", rec.Score,
				"elapsed", time.Since(subStart).Round(time.Millisecond),
				"total_elapsed", time.Since(batchStart).Round(time.Millisecond))
		}(i, sub)
	}
	wg.Wait()

	if err := writeScoresV1(e.resultsPath(), results); err != nil {
		return results, fmt.Errorf("writing results table: %w", err)
	}

	if failed == total {
		return results, fmt.Errorf("score: all %d substitutions failed; first error: %w", total, firstErr)
	}
	if failed > 0 {
		slog.Warn("score: batch completed with failures",
			"succeeded", total-failed, "failed", failed, "total", total)
	}
	return results, nil
}

// ClassifyAll classifies substitutions concurrently, bounded by
// cfg.Concurrency.
func (e *engine) ClassifyAll(ctx context.Context, subs []variant.Substitution) ([]ClassifyResult, error) {
	if e.model == nil {
		return nil, fmt.Errorf("%w: no classifier artifact configured", ErrClassifierConfig)
	}
	results := make([]ClassifyResult, len(subs))
	if len(subs) == 0 {
		return results, nil
	}

	slog.Info("classify: processing substitutions",
		"total", len(subs), "concurrency", e.cfg.Concurrency)

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		sem        = make(chan struct{}, e.cfg.Concurrency)
		failed     int
		firstErr   error
		completed  int
		batchStart = time.Now()
	)

	total := len(subs)
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub variant.Substitution) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = ClassifyResult{Substitution: sub, Err: ctx.Err()}
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			subCtx, cancel := e.substitutionContext(ctx)
			defer cancel()

			subStart := time.Now()
			cls, err := e.Classify(subCtx, sub)
			results[i] = ClassifyResult{Substitution: sub, Classification: cls, Err: err}

			if err != nil {
				slog.Warn("classify: substitution failed",
					"substitution", sub.String(), "error", err,
					"elapsed", time.Since(subStart).Round(time.Millisecond))
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()
			slog.Info("classify: substitution done",
				"progress", fmt.Sprintf("%d/%d", n, total),
				"substitution", sub.String(),
				"label", string(cls.Label),
				"probability", cls.Probability,
				"elapsed", time.Since(subStart).Round(time.Millisecond),
				"total_elapsed", time.Since(batchStart).Round(time.Millisecond))
		}(i, sub)
	}
	wg.Wait()

	if err := writeScoresV2(e.resultsPath(), results); err != nil {
		return results, fmt.Errorf("writing results table: %w", err)
	}

	if failed == total {
		return results, fmt.Errorf("classify: all %d substitutions failed; first error: %w", total, firstErr)
	}
	if failed > 0 {
		slog.Warn("classify: batch completed with failures",
			"succeeded", total-failed, "failed", failed, "total", total)
	}
	return results, nil
}

// Sequence returns the wild-type protein sequence.
func (e *engine) Sequence() string {
	return e.wildType.Sequence
}

// Store returns the underlying store, or nil when persistence is disabled.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close finishes the run record and shuts down the store.
func (e *engine) Close() error {
	if e.store == nil {
		return nil
	}
	e.runMu.Lock()
	if e.runID != "" {
		if err := e.store.FinishRun(context.Background(), e.runID, store.StatusCompleted); err != nil {
			slog.Warn("finishing run failed", "run_id", e.runID, "error", err)
		}
		e.runID = ""
	}
	e.runMu.Unlock()
	return e.store.Close()
}

// substitutionContext applies the per-substitution timeout when configured.
func (e *engine) substitutionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.TimeoutSeconds > 0 {
		return context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSeconds)*time.Second)
	}
	return context.WithCancel(ctx)
}

// ensureRun lazily creates the run record for this engine's FASTA.
func (e *engine) ensureRun(ctx context.Context, mode string) (string, error) {
	if e.store == nil {
		return "", nil
	}
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.runID != "" {
		return e.runID, nil
	}
	run, err := e.store.CreateRun(ctx, e.cfg.FastaPath, e.fastaHash, e.cfg.OutputDir, mode)
	if err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	e.runID = run.ID
	return run.ID, nil
}

// trackSubstitution records a substitution as running. Returns 0 when
// persistence is disabled.
func (e *engine) trackSubstitution(ctx context.Context, mode string, sub variant.Substitution) (int64, error) {
	if e.store == nil {
		return 0, nil
	}
	runID, err := e.ensureRun(ctx, mode)
	if err != nil {
		return 0, err
	}
	id, err := e.store.InsertSubstitution(ctx, store.Substitution{
		RunID:        runID,
		FastaHash:    e.fastaHash,
		Substitution: sub.String(),
		Chain:        sub.Chain,
		Position:     sub.Position,
		WildType:     string(sub.WildType),
		Variant:      string(sub.Variant),
		Status:       store.StatusRunning,
	})
	if err != nil {
		return 0, fmt.Errorf("recording substitution: %w", err)
	}
	return id, nil
}

func (e *engine) finishSubstitution(ctx context.Context, subID int64, status string, cause error) {
	if e.store == nil || subID == 0 {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := e.store.UpdateSubstitutionStatus(ctx, subID, status, msg); err != nil {
		slog.Warn("updating substitution status failed", "substitution_id", subID, "error", err)
	}
}

// variantModel writes the variant FASTA and predicts its structure.
func (e *engine) variantModel(ctx context.Context, sub variant.Substitution) (string, error) {
	path, err := e.variantFasta(sub)
	if err != nil {
		return "", err
	}
	return e.structure.Model(ctx, path, e.cfg.OutputDir)
}

// variantFasta splices the substitution into the wild-type sequence and
// writes it next to the other run artifacts. The file stem carries the
// substitution so each variant gets its own model directory.
func (e *engine) variantFasta(sub variant.Substitution) (string, error) {
	seq, err := sub.Apply(e.wildType.Sequence)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.fa", fileStem(e.cfg.FastaPath), sub)
	path := filepath.Join(e.cfg.OutputDir, name)
	rec := fasta.Record{
		ID:       fmt.Sprintf("%s_%s", e.wildType.ID, sub),
		Sequence: seq,
	}
	if err := fasta.WriteFile(path, rec); err != nil {
		return "", fmt.Errorf("writing variant fasta: %w", err)
	}
	return path, nil
}

// interactionGraph generates the residue-interaction network for a model
// and parses it.
func (e *engine) interactionGraph(ctx context.Context, modelPath string) (*ring.Graph, error) {
	nodesPath, edgesPath, err := e.network.Network(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	g, err := ring.Load(nodesPath, edgesPath)
	if err != nil {
		return nil, fmt.Errorf("loading network for %s: %w", filepath.Base(modelPath), err)
	}
	return g, nil
}

// writeWeighted writes the weighted node and edge tables next to the model.
// Failures are non-fatal; the score is already computed.
func (e *engine) writeWeighted(modelPath string, g *ring.Graph) {
	write := func(path string, fn func(io.Writer, *ring.Graph) error) {
		f, err := os.Create(path)
		if err != nil {
			slog.Warn("writing weighted table failed", "path", path, "error", err)
			return
		}
		defer f.Close()
		if err := fn(f, g); err != nil {
			slog.Warn("writing weighted table failed", "path", path, "error", err)
		}
	}
	write(modelPath+"_alpharingNodes", ring.WriteNodes)
	write(modelPath+"_alpharingEdges", ring.WriteEdges)
}

// resultsPath is where the batch operations write their results table.
func (e *engine) resultsPath() string {
	return filepath.Join(e.cfg.OutputDir, "alpharing_scores.txt")
}

// fileStem returns the file name without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fileHash computes the SHA-256 hash of a file's contents.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
