// Package scoring implements the numeric model over residue interaction
// graphs: geometry-conditioned bond weights, per-residue aggregation, and the
// wild-type/variant fold-change comparison.
package scoring

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/loggy01/alpharing/ring"
)

// ErrUnsupportedClass is returned when a weight is requested for a bond
// class that has no formula. It usually signals output from a newer or
// incompatible generator version.
var ErrUnsupportedClass = errors.New("scoring: unsupported bond class")

// The weighted classes fall into three formula families, split by which
// geometric factor is favourable when minimised or maximised.
type family int

const (
	familyA family = iota // shorter distance and smaller angle favourable
	familyB               // shorter distance and larger angle favourable
	familyC               // shorter distance favourable, angle irrelevant
)

type formula struct {
	family      family
	distanceMax float64
	angleMax    float64
}

// formulas is the closed dispatch table from bond class to formula family
// and geometry bounds. Classes absent here are recognised but unweighted.
var formulas = map[ring.BondClass]formula{
	ring.HBond:     {familyB, 5.3, 180},
	ring.Ionic:     {familyC, 4.5, 0},
	ring.PiCation:  {familyA, 6.7, 45},
	ring.PiPiStack: {familyA, 7.3, 90},
	ring.PiHBond:   {familyC, 5.0, 0},
}

// Scored reports whether the class carries a weighting formula.
func Scored(c ring.BondClass) bool {
	_, ok := formulas[c]
	return ok
}

// Weight computes the geometry-scaled weight of one bond. The bond's energy
// is taken as-is; each geometric factor contributes in [0,1], bounding the
// multiplier on the energy to [0,2]. The weight's sign follows the energy's.
func Weight(b *ring.Bond) (float64, error) {
	f, ok := formulas[b.Class]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedClass, b.Class)
	}

	d := clamped(b.Distance, f.distanceMax, "distance", b)
	switch f.family {
	case familyA:
		a := clamped(b.Angle, f.angleMax, "angle", b)
		return b.Energy * ((1 - d/f.distanceMax) + (1 - a/f.angleMax)), nil
	case familyB:
		a := clamped(b.Angle, f.angleMax, "angle", b)
		return b.Energy * ((1 - d/f.distanceMax) + a/f.angleMax), nil
	default: // familyC
		return b.Energy * 2 * (1 - d/f.distanceMax), nil
	}
}

// clamped forces out-of-range geometry onto [0, max]. Generators
// occasionally emit values slightly past the nominal bound; the boundary
// value keeps the multiplier component non-negative.
func clamped(v, max float64, attr string, b *ring.Bond) float64 {
	switch {
	case v < 0:
		slog.Debug("scoring: clamping bond geometry",
			"class", b.Class, "bond", b.Node1.String()+"-"+b.Node2.String(), attr, v, "clamped_to", 0.0)
		return 0
	case v > max:
		slog.Debug("scoring: clamping bond geometry",
			"class", b.Class, "bond", b.Node1.String()+"-"+b.Node2.String(), attr, v, "clamped_to", max)
		return max
	}
	return v
}
