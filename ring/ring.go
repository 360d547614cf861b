// Package ring models residue interaction networks as produced by the RING
// contact-analysis tool: residue nodes, typed non-covalent bonds between
// them, and the tab-separated node/edge files RING writes for a model.
package ring

import (
	"errors"
	"math"
	"strconv"
)

// ErrMalformed is returned when a graph or one of its source files violates
// the structural contract (unknown node references, bond classes outside the
// vocabulary, missing mandatory attributes).
var ErrMalformed = errors.New("ring: malformed graph")

// BondClass tags the physico-chemical type of a non-covalent interaction.
// The vocabulary is closed; a tag outside it is a parse error.
type BondClass string

const (
	HBond     BondClass = "HBOND"
	Ionic     BondClass = "IONIC"
	PiCation  BondClass = "PICATION"
	PiPiStack BondClass = "PIPISTACK"
	PiHBond   BondClass = "PIHBOND"
	VdW       BondClass = "VDW"
	SSBond    BondClass = "SSBOND"
	IAC       BondClass = "IAC"
	Metal     BondClass = "METAL"
)

// classAttrs records which numeric attributes a bond class must carry to be
// usable downstream. Contact-only classes (VDW, IAC, ...) tolerate partial
// rows; the energy-bearing classes do not.
var classAttrs = map[BondClass]struct{ energy, distance, angle bool }{
	HBond:     {energy: true, distance: true, angle: true},
	Ionic:     {energy: true, distance: true},
	PiCation:  {energy: true, distance: true, angle: true},
	PiPiStack: {energy: true, distance: true, angle: true},
	PiHBond:   {energy: true, distance: true},
	VdW:       {},
	SSBond:    {},
	IAC:       {},
	Metal:     {},
}

// Known reports whether the class belongs to the RING vocabulary.
func (c BondClass) Known() bool {
	_, ok := classAttrs[c]
	return ok
}

// NodeID identifies a residue by chain and sequence position.
type NodeID struct {
	Chain    string
	Position int
}

func (id NodeID) String() string {
	return id.Chain + ":" + strconv.Itoa(id.Position)
}

// Residue is one amino-acid node of the interaction graph.
//
// Confidence carries the per-residue model reliability (0-100) that AlphaFold
// stores in the B-factor column; it is NaN when the source file has none.
// Weight is the aggregate bond weight, 0 until attached by an aggregation
// result, set exactly once.
type Residue struct {
	ID         NodeID
	Name       string // three-letter residue code, e.g. "TYR"
	Insertion  string // PDB insertion code, "_" when none
	Degree     int    // connectivity as reported in the nodes file, -1 when absent
	Confidence float64
	Weight     float64
}

// Bond is one non-covalent edge of the interaction graph.
//
// Energy is taken as-is from the generator and never recomputed. Angle is NaN
// for classes that define none. Weight is 0 until attached by an aggregation
// result; unscored classes keep NaN there.
type Bond struct {
	Node1    NodeID
	Node2    NodeID
	Class    BondClass
	Subtype  string // RING localisation qualifier, e.g. "MC_SC"
	Distance float64
	Angle    float64
	Energy   float64
	Atom1    string
	Atom2    string
	Weight   float64
}

// newResidue returns a Residue with absent optional attributes marked.
func newResidue(id NodeID, name string) Residue {
	return Residue{
		ID:         id,
		Name:       name,
		Insertion:  "_",
		Degree:     -1,
		Confidence: math.NaN(),
	}
}
