// Command alpharing-bench builds and evaluates ClinVar benchmark sets.
//
// Building FASTA inputs from a ClinVar variant summary:
//
//	alpharing-bench \
//	  --mode build \
//	  --variant-summary ./variant_summary.txt \
//	  --wild-type-dir ./bench/wild_type \
//	  --variant-dir ./bench/variant \
//	  --limit 200
//
// Evaluating a results table against curated labels:
//
//	alpharing-bench \
//	  --mode evaluate \
//	  --scores ./out/alpharing_scores.txt \
//	  --labels ./clinvar_variants.xlsx \
//	  --output ./report.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loggy01/alpharing/benchmark"
	"github.com/loggy01/alpharing/classifier"
)

func main() {
	var (
		mode       = flag.String("mode", "evaluate", "Benchmark mode: build or evaluate")
		summary    = flag.String("variant-summary", "", "ClinVar variant_summary.txt (build mode)")
		wtDir      = flag.String("wild-type-dir", "benchmark/wild_type", "Directory for wild-type FASTAs (build mode)")
		varDir     = flag.String("variant-dir", "benchmark/variant", "Directory for variant FASTAs (build mode)")
		limit      = flag.Int("limit", 0, "Cap the number of benchmark cases, 0 means all (build mode)")
		baseURL    = flag.String("efetch-url", "", "NCBI efetch endpoint override (build mode)")
		scoresPath = flag.String("scores", "", "alpharing_scores.txt results table (evaluate mode)")
		labelsPath = flag.String("labels", "", "Curated variants workbook, xlsx (evaluate mode)")
		neutral    = flag.Float64("neutral-max", classifier.DefaultNeutralMax, "Probability at or below which a variant counts neutral")
		deleter    = flag.Float64("deleterious-min", classifier.DefaultDeleteriousMin, "Probability at or above which a variant counts deleterious")
		output     = flag.String("output", "", "Path for the JSON report (default: stdout)")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "build":
		runBuild(ctx, *summary, *wtDir, *varDir, *baseURL, *limit)
	case "evaluate":
		runEvaluate(*scoresPath, *labelsPath, *neutral, *deleter, *output)
	default:
		log.Fatalf("unknown --mode: %s (use: build, evaluate)", *mode)
	}
}

// runBuild filters the ClinVar summary down to expert-reviewed missense
// variants and materialises wild-type and variant FASTA pairs.
func runBuild(ctx context.Context, summary, wtDir, varDir, baseURL string, limit int) {
	if summary == "" {
		log.Fatal("--variant-summary is required for build mode")
	}

	f, err := os.Open(summary)
	if err != nil {
		log.Fatalf("opening variant summary: %v", err)
	}
	cases, err := benchmark.ParseVariantSummary(f)
	f.Close()
	if err != nil {
		log.Fatalf("parsing variant summary: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Selected %d benchmark cases\n", len(cases))

	if limit > 0 && len(cases) > limit {
		cases = cases[:limit]
		fmt.Fprintf(os.Stderr, "Limited to first %d cases\n", limit)
	}

	fetcher := &benchmark.SequenceFetcher{BaseURL: baseURL}
	ds := benchmark.Dataset{WildTypeDir: wtDir, VariantDir: varDir}
	kept, err := ds.Build(ctx, fetcher, cases)
	if err != nil {
		log.Fatalf("building dataset: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %d variant FASTAs (%d cases skipped)\n",
		len(kept), len(cases)-len(kept))
	fmt.Fprintf(os.Stderr, "Wild-type FASTAs: %s\n", wtDir)
	fmt.Fprintf(os.Stderr, "Variant FASTAs:   %s\n", varDir)
}

// runEvaluate joins the results table with curated labels and reports AUC
// and the threshold confusion counts.
func runEvaluate(scoresPath, labelsPath string, neutralMax, deleteriousMin float64, output string) {
	if scoresPath == "" || labelsPath == "" {
		log.Fatal("--scores and --labels are required for evaluate mode")
	}

	scored, err := benchmark.ReadScores(scoresPath)
	if err != nil {
		log.Fatalf("reading scores: %v", err)
	}
	labeled, err := benchmark.ReadVariantsXLSX(labelsPath)
	if err != nil {
		log.Fatalf("reading labels: %v", err)
	}

	evals := benchmark.Join(scored, labeled)
	if len(evals) == 0 {
		log.Fatal("no scored substitution matched a curated label")
	}
	fmt.Fprintf(os.Stderr, "Matched %d of %d scored substitutions\n", len(evals), len(scored))

	report, err := benchmark.Evaluate(evals, neutralMax, deleteriousMin)
	if err != nil {
		log.Fatalf("evaluating: %v", err)
	}

	fmt.Printf("Cases:       %d (%d pathogenic, %d benign)\n",
		report.Cases, report.Positives, report.Negatives)
	fmt.Printf("AUC:         %.4f\n", report.AUC)
	fmt.Printf("Deleterious: %d true, %d false\n",
		report.Confusion.TrueDeleterious, report.Confusion.FalseDeleterious)
	fmt.Printf("Neutral:     %d true, %d false\n",
		report.Confusion.TrueNeutral, report.Confusion.FalseNeutral)
	fmt.Printf("Ambiguous:   %d\n", report.Confusion.Ambiguous)

	data, err := report.JSON()
	if err != nil {
		log.Fatalf("encoding report: %v", err)
	}
	if output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		log.Fatalf("writing report: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Report written to: %s\n", output)
}
