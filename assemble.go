package alpharing

import (
	"fmt"

	"github.com/loggy01/alpharing/classifier"
	"github.com/loggy01/alpharing/features"
	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/scoring"
	"github.com/loggy01/alpharing/variant"
)

// ScoreRecord is the immutable outcome of a fold-change comparison between
// the wild-type and variant interaction graphs of one substitution.
type ScoreRecord struct {
	Substitution   variant.Substitution `json:"substitution"`
	WildTypeWeight float64              `json:"wild_type_weight"`
	VariantWeight  float64              `json:"variant_weight"`
	FoldChange     float64              `json:"fold_change"`
	Score          float64              `json:"score"`

	// The graphs the record was derived from, with per-residue and
	// per-bond weights attached for inspection and serialisation.
	WildType *ring.Graph `json:"-"`
	Variant  *ring.Graph `json:"-"`
}

// Classification is the immutable outcome of the classifier path for one
// substitution: the feature vector, the verdict, and its attributions.
type Classification struct {
	Substitution variant.Substitution    `json:"substitution"`
	Features     features.Vector         `json:"features"`
	Probability  float64                 `json:"probability"`
	Label        classifier.Label        `json:"label"`
	Baseline     float64                 `json:"baseline"`
	Attributions [features.Count]float64 `json:"attributions"`

	// Variant interaction graph with weights attached.
	Graph *ring.Graph `json:"-"`
}

// ScoreV1 weights and aggregates both graphs, attaches the weights to their
// records, and compares the aggregate weight at the substitution site. The
// site must exist in both graphs and carry the expected residue on each
// side: the wild-type amino acid in the wild-type graph, the variant amino
// acid in the variant graph.
//
// The function is pure over already-parsed graphs apart from the weight
// write-back; callers batching substitutions parallelise per substitution.
func ScoreV1(wildType, varGraph *ring.Graph, sub variant.Substitution) (*ScoreRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	wtWeight, err := siteWeight(wildType, sub, sub.WildType)
	if err != nil {
		return nil, fmt.Errorf("wild-type graph: %w", err)
	}
	varWeight, err := siteWeight(varGraph, sub, sub.Variant)
	if err != nil {
		return nil, fmt.Errorf("variant graph: %w", err)
	}

	cmp, err := scoring.Compare(wtWeight, varWeight)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sub, err)
	}

	return &ScoreRecord{
		Substitution:   sub,
		WildTypeWeight: cmp.WildTypeWeight,
		VariantWeight:  cmp.VariantWeight,
		FoldChange:     cmp.FoldChange,
		Score:          cmp.Score,
		WildType:       wildType,
		Variant:        varGraph,
	}, nil
}

// ScoreV2 assembles the feature vector for a substitution from its variant
// graph and collaborator scalars, then classifies and explains it with the
// given model. The graph gets its weights attached as a side effect, same
// as ScoreV1.
func ScoreV2(model *classifier.Model, varGraph *ring.Graph, sub variant.Substitution, confidence, ddg float64, seqLen int) (*Classification, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if _, err := siteWeight(varGraph, sub, sub.Variant); err != nil {
		return nil, fmt.Errorf("variant graph: %w", err)
	}

	vec, err := features.Build(varGraph, sub, confidence, ddg, seqLen)
	if err != nil {
		return nil, err
	}

	res := model.Classify(vec)
	return &Classification{
		Substitution: sub,
		Features:     vec,
		Probability:  res.Probability,
		Label:        res.Label,
		Baseline:     res.Baseline,
		Attributions: res.Attributions,
		Graph:        varGraph,
	}, nil
}

// siteWeight aggregates bond weights over the graph, writes them back onto
// its records, and returns the aggregate weight at the substitution site
// after verifying the residue there matches the expected amino acid.
func siteWeight(g *ring.Graph, sub variant.Substitution, want byte) (float64, error) {
	agg, err := scoring.Aggregate(g)
	if err != nil {
		return 0, err
	}
	agg.Apply(g)

	id := ring.NodeID{Chain: sub.Chain, Position: sub.Position}
	res := g.Node(id)
	if res == nil {
		return 0, fmt.Errorf("%w: %s", ErrSiteNotFound, id)
	}
	code, ok := variant.OneLetter(res.Name)
	if !ok || code != want {
		wantName, _ := variant.ThreeLetter(want)
		return 0, fmt.Errorf("%w: %s holds %s, expected %s",
			ErrSiteMismatch, id, res.Name, wantName)
	}
	return agg.NodeWeights[id], nil
}
