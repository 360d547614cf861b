// Command alpharing scores missense substitutions against a wild-type
// protein by comparing residue interaction networks of predicted structures.
//
// Fold-change scoring:
//
//	alpharing \
//	  --fasta ./p53.fa \
//	  --substitutions YA229S,VA194A \
//	  --output-dir ./out \
//	  --data-dir /data/alphafold \
//	  --ring-exe /opt/ring/ring
//
// Classification with a trained model:
//
//	alpharing \
//	  --mode classify \
//	  --fasta ./p53.fa \
//	  --substitutions-file ./subs.txt \
//	  --classifier ./alpharing_model.json \
//	  --foldx-exe /opt/foldx/foldx \
//	  --structure prefolded --output-dir ./out
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/loggy01/alpharing"
	"github.com/loggy01/alpharing/features"
	"github.com/loggy01/alpharing/variant"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (YAML or JSON)")
		fastaPath  = flag.String("fasta", "", "Wild-type protein FASTA")
		subsList   = flag.String("substitutions", "", "Comma-separated substitutions, e.g. YA229S,VA194A")
		subsFile   = flag.String("substitutions-file", "", "File with one substitution per line")
		outputDir  = flag.String("output-dir", "", "Directory for models, networks, and results")
		mode       = flag.String("mode", "score", "Pipeline mode: score (fold change) or classify")
		structure  = flag.String("structure", "", "Structure backend: alphafold or prefolded")
		python     = flag.String("python", "", "Python interpreter for the AlphaFold run script")
		afScript   = flag.String("alphafold-script", "", "Path to the AlphaFold run script")
		dataDir    = flag.String("data-dir", "", "AlphaFold genetic database directory")
		ringExe    = flag.String("ring-exe", "", "RING executable")
		foldxExe   = flag.String("foldx-exe", "", "FoldX executable")
		classifier = flag.String("classifier", "", "Classifier artifact JSON (required for classify mode)")
		dbPath     = flag.String("db", "", "SQLite database path (default: ~/.alpharing/alpharing.db)")
		storage    = flag.String("storage", "", "Database location: home, local, or none")
		conc       = flag.Int("concurrency", 0, "Parallel substitutions (default from config)")
		timeout    = flag.Int("timeout-seconds", -1, "Per-substitution timeout, 0 disables")
	)
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := alpharing.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = alpharing.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	// Flags override the config file.
	if *fastaPath != "" {
		cfg.FastaPath = *fastaPath
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *structure != "" {
		cfg.Predictor.Structure = *structure
	}
	if *python != "" {
		cfg.Predictor.Python = *python
	}
	if *afScript != "" {
		cfg.Predictor.AlphaFoldScript = *afScript
	}
	if *dataDir != "" {
		cfg.Predictor.DataDir = *dataDir
	}
	if *ringExe != "" {
		cfg.Predictor.RingExe = *ringExe
	}
	if *foldxExe != "" {
		cfg.Predictor.FoldXExe = *foldxExe
	}
	if *classifier != "" {
		cfg.ClassifierPath = *classifier
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *storage != "" {
		cfg.StorageDir = *storage
	}
	if *conc > 0 {
		cfg.Concurrency = *conc
	}
	if *timeout >= 0 {
		cfg.TimeoutSeconds = *timeout
	}

	// Environment overrides, highest precedence.
	if v := os.Getenv("ALPHARING_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ALPHARING_DATA_DIR"); v != "" {
		cfg.Predictor.DataDir = v
	}
	if v := os.Getenv("ALPHARING_RING_EXE"); v != "" {
		cfg.Predictor.RingExe = v
	}
	if v := os.Getenv("ALPHARING_FOLDX_EXE"); v != "" {
		cfg.Predictor.FoldXExe = v
	}

	if cfg.FastaPath == "" {
		log.Fatal("--fasta is required (or fasta_path in --config)")
	}

	subs, err := collectSubstitutions(*subsList, *subsFile)
	if err != nil {
		log.Fatalf("parsing substitutions: %v", err)
	}
	if len(subs) == 0 {
		log.Fatal("no substitutions given: use --substitutions or --substitutions-file")
	}
	if *mode != "score" && *mode != "classify" {
		log.Fatalf("unknown --mode: %s (use: score, classify)", *mode)
	}
	if *mode == "classify" && cfg.ClassifierPath == "" {
		log.Fatal("--classifier is required for classify mode")
	}

	engine, err := alpharing.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "score":
		results, err := engine.ScoreAll(ctx, subs)
		printScores(results)
		if err != nil {
			log.Fatalf("scoring: %v", err)
		}
	case "classify":
		results, err := engine.ClassifyAll(ctx, subs)
		printClassifications(results)
		if err != nil {
			log.Fatalf("classifying: %v", err)
		}
	}
}

// collectSubstitutions merges the comma list and the per-line file.
func collectSubstitutions(list, file string) ([]variant.Substitution, error) {
	var subs []variant.Substitution
	if list != "" {
		parsed, err := variant.ParseList(list)
		if err != nil {
			return nil, err
		}
		subs = parsed
	}
	if file == "" {
		return subs, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sub, err := variant.Parse(line)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func printScores(results []alpharing.ScoreResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-8s ERROR  %v\n", r.Substitution, r.Err)
			continue
		}
		fmt.Printf("%-8s score=%.4f fold_change=%.4f wt=%.4f variant=%.4f\n",
			r.Substitution, r.Record.Score, r.Record.FoldChange,
			r.Record.WildTypeWeight, r.Record.VariantWeight)
	}
}

func printClassifications(results []alpharing.ClassifyResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-8s ERROR  %v\n", r.Substitution, r.Err)
			continue
		}
		c := r.Classification
		fmt.Printf("%-8s %-12s probability=%.4f pLDDT=%.2f degree=%.0f ddG=%.3f\n",
			r.Substitution, c.Label, c.Probability,
			c.Features[features.PLDDT], c.Features[features.Degree], c.Features[features.DDG])
	}
}
