package ring

import (
	"fmt"
	"iter"
	"math"
	"sort"
)

// Graph is an immutable residue interaction network: residues keyed by
// (chain, position) and bonds in source order. Node and bond Weight fields
// are the single mutable surface, written once when an aggregation result is
// attached.
type Graph struct {
	nodes    map[NodeID]*Residue
	order    []NodeID
	edges    []*Bond
	incident map[NodeID][]int
}

// NewGraph validates residues and bonds and assembles a graph. It fails with
// ErrMalformed on duplicate nodes, bonds referencing unknown nodes, bond
// classes outside the vocabulary, or missing mandatory bond attributes.
func NewGraph(residues []Residue, bonds []Bond) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[NodeID]*Residue, len(residues)),
		incident: make(map[NodeID][]int),
	}

	for i := range residues {
		r := residues[i]
		if _, dup := g.nodes[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %s", ErrMalformed, r.ID)
		}
		g.nodes[r.ID] = &r
		g.order = append(g.order, r.ID)
	}
	sort.Slice(g.order, func(i, j int) bool {
		a, b := g.order[i], g.order[j]
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Position < b.Position
	})

	g.edges = make([]*Bond, 0, len(bonds))
	for i := range bonds {
		b := bonds[i]
		if err := checkBond(&b); err != nil {
			return nil, fmt.Errorf("%w (edge %d)", err, i)
		}
		if _, ok := g.nodes[b.Node1]; !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown node %s", ErrMalformed, i, b.Node1)
		}
		if _, ok := g.nodes[b.Node2]; !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown node %s", ErrMalformed, i, b.Node2)
		}
		g.edges = append(g.edges, &b)
		idx := len(g.edges) - 1
		g.incident[b.Node1] = append(g.incident[b.Node1], idx)
		if b.Node2 != b.Node1 {
			g.incident[b.Node2] = append(g.incident[b.Node2], idx)
		}
	}

	return g, nil
}

// checkBond enforces the per-class mandatory attribute contract.
func checkBond(b *Bond) error {
	attrs, ok := classAttrs[b.Class]
	if !ok {
		return fmt.Errorf("%w: bond class %q outside vocabulary", ErrMalformed, string(b.Class))
	}
	if attrs.energy && math.IsNaN(b.Energy) {
		return fmt.Errorf("%w: %s bond %s-%s missing energy", ErrMalformed, b.Class, b.Node1, b.Node2)
	}
	if attrs.distance && math.IsNaN(b.Distance) {
		return fmt.Errorf("%w: %s bond %s-%s missing distance", ErrMalformed, b.Class, b.Node1, b.Node2)
	}
	if attrs.angle && math.IsNaN(b.Angle) {
		return fmt.Errorf("%w: %s bond %s-%s missing angle", ErrMalformed, b.Class, b.Node1, b.Node2)
	}
	return nil
}

// Len returns the number of residues.
func (g *Graph) Len() int {
	return len(g.order)
}

// Node returns the residue at id, or nil when absent.
func (g *Graph) Node(id NodeID) *Residue {
	return g.nodes[id]
}

// Nodes returns all residues ordered by chain then position.
func (g *Graph) Nodes() []*Residue {
	out := make([]*Residue, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns all bonds in source order.
func (g *Graph) Edges() []*Bond {
	return g.edges
}

// EdgesOf iterates over the bonds incident to id, in source order. The
// sequence is finite and can be ranged over any number of times.
func (g *Graph) EdgesOf(id NodeID) iter.Seq[*Bond] {
	idxs := g.incident[id]
	return func(yield func(*Bond) bool) {
		for _, i := range idxs {
			if !yield(g.edges[i]) {
				return
			}
		}
	}
}

// Degree returns the number of bonds incident to id, counting every class.
// Self-loops count once.
func (g *Graph) Degree(id NodeID) int {
	return len(g.incident[id])
}
