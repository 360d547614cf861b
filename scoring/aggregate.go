package scoring

import (
	"fmt"
	"math"

	"github.com/loggy01/alpharing/ring"
)

// Aggregation holds the per-residue weight sums of one graph together with
// the per-bond weights they were built from. EdgeWeights aligns with
// Graph.Edges() by index; bonds of unweighted classes hold NaN there.
type Aggregation struct {
	NodeWeights map[ring.NodeID]float64
	EdgeWeights []float64
}

// Aggregate weights every scored bond of g and sums the weights incident to
// each residue. Bonds are visited in source order, so repeated runs over the
// same graph produce bit-identical sums. A residue with no scored bonds
// aggregates to 0.
func Aggregate(g *ring.Graph) (*Aggregation, error) {
	agg := &Aggregation{
		NodeWeights: make(map[ring.NodeID]float64, g.Len()),
		EdgeWeights: make([]float64, len(g.Edges())),
	}
	for _, r := range g.Nodes() {
		agg.NodeWeights[r.ID] = 0
	}

	for i, b := range g.Edges() {
		if !b.Class.Known() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedClass, b.Class)
		}
		if !Scored(b.Class) {
			agg.EdgeWeights[i] = math.NaN()
			continue
		}
		w, err := Weight(b)
		if err != nil {
			return nil, err
		}
		agg.EdgeWeights[i] = w
		agg.NodeWeights[b.Node1] += w
		if b.Node2 != b.Node1 {
			agg.NodeWeights[b.Node2] += w
		}
	}
	return agg, nil
}

// Apply writes the computed weights back onto the graph's residue and bond
// records for downstream serialisation.
func (a *Aggregation) Apply(g *ring.Graph) {
	for _, r := range g.Nodes() {
		r.Weight = a.NodeWeights[r.ID]
	}
	for i, b := range g.Edges() {
		if i < len(a.EdgeWeights) {
			b.Weight = a.EdgeWeights[i]
		}
	}
}
