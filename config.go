package alpharing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loggy01/alpharing/predictor"
)

// Config holds all configuration for the AlphaRING engine.
type Config struct {
	// FastaPath is the wild-type protein FASTA the run scores against.
	FastaPath string `json:"fasta_path" yaml:"fasta_path"`

	// OutputDir receives models, interaction networks, scans, and result
	// tables. Artifacts already present there short-circuit recomputation.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Predictor configures the external collaborators (structure
	// predictor, interaction-network generator, stability estimator).
	Predictor predictor.Config `json:"predictor" yaml:"predictor"`

	// ClassifierPath points at the classifier artifact JSON. Required for
	// Classify; Score runs without it.
	ClassifierPath string `json:"classifier_path" yaml:"classifier_path"`

	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.alpharing/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "alpharing".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not explicitly set. Options: "home" (default) uses ~/.alpharing/,
	// "local" uses the current working directory, "none" disables
	// persistence entirely.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Concurrency bounds how many substitutions the batch operations
	// process in parallel.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// TimeoutSeconds caps each substitution's pipeline run. 0 disables
	// the per-substitution timeout.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// DefaultConfig returns a Config with sensible defaults for a local
// pipeline. Database is stored in ~/.alpharing/alpharing.db by default.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "alpharing_out",
		DBName:         "alpharing",
		StorageDir:     "home",
		Concurrency:    4,
		TimeoutSeconds: 21600, // structure prediction dominates; 6h covers benchmark-sized proteins
	}
}

// LoadConfig reads a YAML or JSON config file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields. An
// empty return means persistence is disabled.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "alpharing"
	}

	switch c.StorageDir {
	case "none":
		return ""
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".alpharing", name+".db")
	}
}
