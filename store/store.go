// Package store persists scoring runs and their results in SQLite: run and
// substitution bookkeeping, fold-change scores, classifier verdicts, and a
// sqlite-vec index over feature vectors for nearest-neighbour triage.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loggy01/alpharing/features"
)

func init() {
	sqlite_vec.Auto()
}

// Run and substitution status values.
const (
	StatusRunning   = "running"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run represents a row in the runs table: one scoring run over a FASTA file.
type Run struct {
	ID         string `json:"id"`
	FastaPath  string `json:"fasta_path"`
	FastaHash  string `json:"fasta_hash"`
	OutputDir  string `json:"output_dir,omitempty"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// Substitution represents a row in the substitutions table.
type Substitution struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	FastaHash    string `json:"fasta_hash"`
	Substitution string `json:"substitution"`
	Chain        string `json:"chain"`
	Position     int    `json:"position"`
	WildType     string `json:"wild_type"`
	Variant      string `json:"variant"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Score represents a row in the scores table.
type Score struct {
	SubstitutionID int64   `json:"substitution_id"`
	WildTypeWeight float64 `json:"wild_type_weight"`
	VariantWeight  float64 `json:"variant_weight"`
	FoldChange     float64 `json:"fold_change"`
	Score          float64 `json:"score"`
}

// Classification represents a row in the classifications table: the feature
// vector a verdict was derived from, the probability and label, and the
// per-feature attributions.
type Classification struct {
	SubstitutionID int64                   `json:"substitution_id"`
	Features       features.Vector         `json:"features"`
	Probability    float64                 `json:"probability"`
	Label          string                  `json:"label"`
	Baseline       float64                 `json:"baseline"`
	Attributions   [features.Count]float64 `json:"attributions"`
}

// Neighbor is one nearest-neighbour hit over stored feature vectors.
type Neighbor struct {
	SubstitutionID int64   `json:"substitution_id"`
	Substitution   string  `json:"substitution"`
	FastaHash      string  `json:"fasta_hash"`
	Probability    float64 `json:"probability"`
	Label          string  `json:"label"`
	Distance       float64 `json:"distance"`
}

// Store wraps the SQLite database for all scoring persistence.
type Store struct {
	db         *sql.DB
	featureDim int
}

// New opens (or creates) a SQLite database at the given path and initialises
// the schema including the sqlite-vec virtual table.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL(features.Count)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, featureDim: features.Count}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FeatureDim returns the dimension of the vector index.
func (s *Store) FeatureDim() int {
	return s.featureDim
}

// --- Run operations ---

// CreateRun registers a new scoring run and returns it with a fresh ID.
func (s *Store) CreateRun(ctx context.Context, fastaPath, fastaHash, outputDir, mode string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		FastaPath: fastaPath,
		FastaHash: fastaHash,
		OutputDir: outputDir,
		Mode:      mode,
		Status:    StatusRunning,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, fasta_path, fasta_hash, output_dir, mode, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.FastaPath, run.FastaHash, run.OutputDir, run.Mode, run.Status)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun records the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, runID)
	return err
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var outputDir, finishedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, fasta_path, fasta_hash, output_dir, mode, status, created_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.FastaPath, &run.FastaHash, &outputDir,
		&run.Mode, &run.Status, &run.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.OutputDir = outputDir.String
	run.FinishedAt = finishedAt.String
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fasta_path, fasta_hash, output_dir, mode, status, created_at, finished_at
		FROM runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var outputDir, finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.FastaPath, &r.FastaHash, &outputDir,
			&r.Mode, &r.Status, &r.CreatedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.OutputDir = outputDir.String
		r.FinishedAt = finishedAt.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Substitution operations ---

// InsertSubstitution registers a substitution within a run. Returns its ID.
func (s *Store) InsertSubstitution(ctx context.Context, sub Substitution) (int64, error) {
	status := sub.Status
	if status == "" {
		status = StatusPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO substitutions (run_id, fasta_hash, substitution, chain, position, wild_type, variant, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.RunID, sub.FastaHash, sub.Substitution, sub.Chain, sub.Position,
		sub.WildType, sub.Variant, status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateSubstitutionStatus records the outcome of one substitution's
// pipeline run. errMsg is stored only for failures.
func (s *Store) UpdateSubstitutionStatus(ctx context.Context, id int64, status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE substitutions SET status = ?, error = ? WHERE id = ?",
		status, errMsg, id)
	return err
}

// GetSubstitution retrieves a substitution row by ID.
func (s *Store) GetSubstitution(ctx context.Context, id int64) (*Substitution, error) {
	sub := &Substitution{}
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, fasta_hash, substitution, chain, position, wild_type, variant, status, error
		FROM substitutions WHERE id = ?
	`, id).Scan(&sub.ID, &sub.RunID, &sub.FastaHash, &sub.Substitution,
		&sub.Chain, &sub.Position, &sub.WildType, &sub.Variant, &sub.Status, &errMsg)
	if err != nil {
		return nil, err
	}
	sub.Error = errMsg.String
	return sub, nil
}

// GetSubstitutionsByRun returns all substitutions of a run in insertion
// order.
func (s *Store) GetSubstitutionsByRun(ctx context.Context, runID string) ([]Substitution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, fasta_hash, substitution, chain, position, wild_type, variant, status, error
		FROM substitutions WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Substitution
	for rows.Next() {
		var sub Substitution
		var errMsg sql.NullString
		if err := rows.Scan(&sub.ID, &sub.RunID, &sub.FastaHash, &sub.Substitution,
			&sub.Chain, &sub.Position, &sub.WildType, &sub.Variant, &sub.Status, &errMsg); err != nil {
			return nil, err
		}
		sub.Error = errMsg.String
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// --- Score operations ---

// SaveScore stores a fold-change score for a substitution and marks it
// completed, atomically.
func (s *Store) SaveScore(ctx context.Context, sc Score) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO scores (substitution_id, wild_type_weight, variant_weight, fold_change, score)
			VALUES (?, ?, ?, ?, ?)
		`, sc.SubstitutionID, sc.WildTypeWeight, sc.VariantWeight, sc.FoldChange, sc.Score); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE substitutions SET status = ?, error = '' WHERE id = ?",
			StatusCompleted, sc.SubstitutionID)
		return err
	})
}

// GetScore retrieves the score stored for a substitution.
func (s *Store) GetScore(ctx context.Context, substitutionID int64) (*Score, error) {
	sc := &Score{}
	err := s.db.QueryRowContext(ctx, `
		SELECT substitution_id, wild_type_weight, variant_weight, fold_change, score
		FROM scores WHERE substitution_id = ?
	`, substitutionID).Scan(&sc.SubstitutionID, &sc.WildTypeWeight,
		&sc.VariantWeight, &sc.FoldChange, &sc.Score)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// CachedScore returns the most recent completed score for a
// (fasta hash, substitution) pair, or nil when none exists. Identical inputs
// are served from here instead of re-running the pipeline.
func (s *Store) CachedScore(ctx context.Context, fastaHash, substitution string) (*Score, error) {
	sc := &Score{}
	err := s.db.QueryRowContext(ctx, `
		SELECT sc.substitution_id, sc.wild_type_weight, sc.variant_weight, sc.fold_change, sc.score
		FROM scores sc
		JOIN substitutions sub ON sub.id = sc.substitution_id
		WHERE sub.fasta_hash = ? AND sub.substitution = ? AND sub.status = ?
		ORDER BY sub.id DESC LIMIT 1
	`, fastaHash, substitution, StatusCompleted).Scan(&sc.SubstitutionID,
		&sc.WildTypeWeight, &sc.VariantWeight, &sc.FoldChange, &sc.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// --- Classification operations ---

// SaveClassification stores a classifier verdict, indexes its feature
// vector for nearest-neighbour search, and marks the substitution
// completed, atomically.
func (s *Store) SaveClassification(ctx context.Context, c Classification) error {
	attributions, err := json.Marshal(c.Attributions)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO classifications
				(substitution_id, plddt, degree, ddg, rsp, probability, label, baseline, attributions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.SubstitutionID, c.Features[features.PLDDT], c.Features[features.Degree],
			c.Features[features.DDG], c.Features[features.RSP],
			c.Probability, c.Label, c.Baseline, string(attributions)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO vec_substitutions (substitution_id, features) VALUES (?, ?)",
			c.SubstitutionID, vecBytes(c.Features)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE substitutions SET status = ?, error = '' WHERE id = ?",
			StatusCompleted, c.SubstitutionID)
		return err
	})
}

// GetClassification retrieves the verdict stored for a substitution.
func (s *Store) GetClassification(ctx context.Context, substitutionID int64) (*Classification, error) {
	return s.scanClassification(s.db.QueryRowContext(ctx, `
		SELECT substitution_id, plddt, degree, ddg, rsp, probability, label, baseline, attributions
		FROM classifications WHERE substitution_id = ?
	`, substitutionID))
}

// CachedClassification returns the most recent completed verdict for a
// (fasta hash, substitution) pair, or nil when none exists.
func (s *Store) CachedClassification(ctx context.Context, fastaHash, substitution string) (*Classification, error) {
	c, err := s.scanClassification(s.db.QueryRowContext(ctx, `
		SELECT c.substitution_id, c.plddt, c.degree, c.ddg, c.rsp, c.probability, c.label, c.baseline, c.attributions
		FROM classifications c
		JOIN substitutions sub ON sub.id = c.substitution_id
		WHERE sub.fasta_hash = ? AND sub.substitution = ? AND sub.status = ?
		ORDER BY sub.id DESC LIMIT 1
	`, fastaHash, substitution, StatusCompleted))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Store) scanClassification(row *sql.Row) (*Classification, error) {
	c := &Classification{}
	var attributions string
	err := row.Scan(&c.SubstitutionID, &c.Features[features.PLDDT], &c.Features[features.Degree],
		&c.Features[features.DDG], &c.Features[features.RSP],
		&c.Probability, &c.Label, &c.Baseline, &attributions)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attributions), &c.Attributions); err != nil {
		return nil, fmt.Errorf("decoding attributions: %w", err)
	}
	return c, nil
}

// HasVector reports whether a substitution's feature vector is indexed.
func (s *Store) HasVector(ctx context.Context, substitutionID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_substitutions WHERE substitution_id = ?", substitutionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SimilarSubstitutions performs a KNN search over stored feature vectors,
// answering "which previously scored variants look like this one". Results
// come back nearest first.
func (s *Store) SimilarSubstitutions(ctx context.Context, v features.Vector, k int) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vs.substitution_id, vs.distance,
			sub.substitution, sub.fasta_hash,
			c.probability, c.label
		FROM vec_substitutions vs
		JOIN substitutions sub ON sub.id = vs.substitution_id
		JOIN classifications c ON c.substitution_id = vs.substitution_id
		WHERE vs.features MATCH ? AND k = ?
		ORDER BY vs.distance
	`, vecBytes(v), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.SubstitutionID, &n.Distance,
			&n.Substitution, &n.FastaHash, &n.Probability, &n.Label); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// --- Diagnostics ---

// DBStats holds counts of key database objects.
type DBStats struct {
	Runs            int `json:"runs"`
	Substitutions   int `json:"substitutions"`
	Scores          int `json:"scores"`
	Classifications int `json:"classifications"`
	Vectors         int `json:"vectors"`
}

// Stats returns counts of runs, substitutions, and stored results.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM runs", &stats.Runs},
		{"SELECT COUNT(*) FROM substitutions", &stats.Substitutions},
		{"SELECT COUNT(*) FROM scores", &stats.Scores},
		{"SELECT COUNT(*) FROM classifications", &stats.Classifications},
		{"SELECT COUNT(*) FROM vec_substitutions", &stats.Vectors},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// vecBytes converts a feature vector to the little-endian float32 blob
// sqlite-vec expects.
func vecBytes(v features.Vector) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}
