// Package features assembles the fixed-order input vector of the
// deleteriousness classifier: per-residue model confidence (pLDDT),
// interaction-graph degree at the substitution site, FoldX free-energy
// change, and relative sequence position.
package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/loggy01/alpharing/ring"
	"github.com/loggy01/alpharing/variant"
)

// ErrMissing is returned when a feature cannot be produced for a
// substitution: the site is absent from the graph, the position falls
// outside the sequence, or a caller-supplied scalar is NaN.
var ErrMissing = errors.New("features: missing feature")

// Feature indices into a Vector. The order is fixed and must match the
// feature_names of the classifier artifact.
const (
	PLDDT = iota // per-residue model confidence, 0-100
	Degree       // incident bond count at the substitution site, any class
	DDG          // FoldX free-energy change, kcal/mol
	RSP          // relative sequence position in [0,1]

	Count // number of features
)

var names = [Count]string{"pLDDT", "Degree", "ΔΔG", "RSP"}

// Names returns the feature names in vector order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Name returns the display name of feature i.
func Name(i int) string {
	return names[i]
}

// Vector is one classifier input, indexed by the feature constants.
type Vector [Count]float64

// Build assembles the vector for one substitution. The graph is the variant
// interaction network; confidence and ddg are scalars extracted upstream
// from the variant model and the FoldX scan. seqLen is the sequence length
// in residues.
func Build(g *ring.Graph, sub variant.Substitution, confidence, ddg float64, seqLen int) (Vector, error) {
	var v Vector
	if seqLen < 1 {
		return v, fmt.Errorf("%w: sequence length %d", ErrMissing, seqLen)
	}
	if sub.Position < 1 || sub.Position > seqLen {
		return v, fmt.Errorf("%w: position %d outside sequence of length %d",
			ErrMissing, sub.Position, seqLen)
	}
	id := ring.NodeID{Chain: sub.Chain, Position: sub.Position}
	if g.Node(id) == nil {
		return v, fmt.Errorf("%w: site %s not in interaction graph", ErrMissing, id)
	}
	if math.IsNaN(confidence) {
		return v, fmt.Errorf("%w: no confidence for site %s", ErrMissing, id)
	}
	if math.IsNaN(ddg) {
		return v, fmt.Errorf("%w: no free-energy change for %s", ErrMissing, sub)
	}

	v[PLDDT] = confidence
	v[Degree] = float64(g.Degree(id))
	v[DDG] = ddg
	v[RSP] = RelativePosition(sub.Position, seqLen)
	return v, nil
}

// RelativePosition maps a 1-based sequence position onto [0,1]: the first
// residue to 0, the last to 1. A single-residue sequence maps to 0.
func RelativePosition(position, length int) float64 {
	if length <= 1 {
		return 0
	}
	return float64(position-1) / float64(length-1)
}
