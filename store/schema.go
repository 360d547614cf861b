package store

import "fmt"

// schemaSQL returns the DDL for all tables. featureDim controls the vec0
// virtual table dimension and matches the classifier's feature count.
func schemaSQL(featureDim int) string {
	return fmt.Sprintf(`
-- Scoring runs, one per FASTA file and substitution batch
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    fasta_path TEXT NOT NULL,
    fasta_hash TEXT NOT NULL,
    output_dir TEXT,
    mode TEXT NOT NULL,
    status TEXT DEFAULT 'running',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

-- One row per substitution processed in a run
CREATE TABLE IF NOT EXISTS substitutions (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    fasta_hash TEXT NOT NULL,
    substitution TEXT NOT NULL,
    chain TEXT NOT NULL,
    position INTEGER NOT NULL,
    wild_type TEXT NOT NULL,
    variant TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(run_id, substitution)
);

-- Fold-change scores
CREATE TABLE IF NOT EXISTS scores (
    substitution_id INTEGER PRIMARY KEY REFERENCES substitutions(id) ON DELETE CASCADE,
    wild_type_weight REAL NOT NULL,
    variant_weight REAL NOT NULL,
    fold_change REAL NOT NULL,
    score REAL NOT NULL
);

-- Classifier verdicts with their input features and attributions
CREATE TABLE IF NOT EXISTS classifications (
    substitution_id INTEGER PRIMARY KEY REFERENCES substitutions(id) ON DELETE CASCADE,
    plddt REAL NOT NULL,
    degree REAL NOT NULL,
    ddg REAL NOT NULL,
    rsp REAL NOT NULL,
    probability REAL NOT NULL,
    label TEXT NOT NULL,
    baseline REAL NOT NULL,
    attributions JSON NOT NULL
);

-- Feature vectors for nearest-neighbour triage via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_substitutions USING vec0(
    substitution_id INTEGER PRIMARY KEY,
    features float[%d]
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_substitutions_run ON substitutions(run_id);
CREATE INDEX IF NOT EXISTS idx_substitutions_lookup ON substitutions(fasta_hash, substitution);
CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(fasta_hash);
`, featureDim)
}
