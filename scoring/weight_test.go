package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/loggy01/alpharing/ring"
)

func bond(class ring.BondClass, energy, distance, angle float64) *ring.Bond {
	return &ring.Bond{
		Node1:    ring.NodeID{Chain: "A", Position: 1},
		Node2:    ring.NodeID{Chain: "A", Position: 2},
		Class:    class,
		Energy:   energy,
		Distance: distance,
		Angle:    angle,
	}
}

func TestWeightFormulas(t *testing.T) {
	tests := []struct {
		name string
		bond *ring.Bond
		want float64
	}{
		{
			// Family B: shorter distance and larger angle favourable.
			"hydrogen bond",
			bond(ring.HBond, 17.0, 2.9, 31.4),
			17.0 * ((1 - 2.9/5.3) + 31.4/180.0),
		},
		{
			// Family C with the distance at half the bound: multiplier is
			// exactly 1, weight equals the energy.
			"ionic at half distance bound",
			bond(ring.Ionic, 10.0, 2.25, math.NaN()),
			10.0,
		},
		{
			// Family A: shorter distance and smaller angle favourable.
			"pi-cation",
			bond(ring.PiCation, 9.6, 4.2, 12.0),
			9.6 * ((1 - 4.2/6.7) + (1 - 12.0/45.0)),
		},
		{
			"pi-pi stacking",
			bond(ring.PiPiStack, 12.0, 5.1, 38.0),
			12.0 * ((1 - 5.1/7.3) + (1 - 38.0/90.0)),
		},
		{
			"pi-hydrogen",
			bond(ring.PiHBond, 5.0, 3.0, math.NaN()),
			5.0 * 2 * (1 - 3.0/5.0),
		},
		{
			// The weight's sign follows the energy's sign.
			"negative energy",
			bond(ring.Ionic, -5.0, 2.25, math.NaN()),
			-5.0,
		},
	}

	const eps = 1e-9
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Weight(tt.bond)
			if err != nil {
				t.Fatalf("weighting bond: %v", err)
			}
			if diff := got - tt.want; diff < -eps || diff > eps {
				t.Errorf("weight: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightZeroEnergy(t *testing.T) {
	// Zero energy zeroes the weight regardless of geometry, in every family.
	for _, b := range []*ring.Bond{
		bond(ring.HBond, 0, 2.9, 31.4),
		bond(ring.Ionic, 0, 0.1, math.NaN()),
		bond(ring.PiCation, 0, 6.0, 44.0),
		bond(ring.PiPiStack, 0, 1.0, 1.0),
		bond(ring.PiHBond, 0, 4.9, math.NaN()),
	} {
		got, err := Weight(b)
		if err != nil {
			t.Fatalf("weighting %s: %v", b.Class, err)
		}
		if got != 0 {
			t.Errorf("%s with zero energy: got %v, want 0", b.Class, got)
		}
	}
}

func TestWeightMonotonicInDistance(t *testing.T) {
	// For positive energy, weight must not grow as the bond stretches.
	for _, class := range []ring.BondClass{ring.HBond, ring.PiCation, ring.PiPiStack, ring.Ionic, ring.PiHBond} {
		prev := math.Inf(1)
		for _, d := range []float64{0.5, 1.5, 2.5, 3.5, 4.4} {
			w, err := Weight(bond(class, 8.0, d, 10.0))
			if err != nil {
				t.Fatalf("weighting %s: %v", class, err)
			}
			if w > prev+1e-12 {
				t.Errorf("%s weight grew with distance: %v at d=%v (previous %v)", class, w, d, prev)
			}
			prev = w
		}
	}
}

func TestWeightAngleIrrelevantForFamilyC(t *testing.T) {
	angles := []float64{math.NaN(), 0, 45, 179, 720}
	for _, class := range []ring.BondClass{ring.Ionic, ring.PiHBond} {
		first, err := Weight(bond(class, 7.0, 3.0, angles[0]))
		if err != nil {
			t.Fatalf("weighting %s: %v", class, err)
		}
		for _, a := range angles[1:] {
			w, err := Weight(bond(class, 7.0, 3.0, a))
			if err != nil {
				t.Fatalf("weighting %s: %v", class, err)
			}
			if w != first {
				t.Errorf("%s weight depends on angle: %v at angle=%v, %v at angle=%v", class, w, a, first, angles[0])
			}
		}
	}
}

func TestWeightClampsOutOfRangeGeometry(t *testing.T) {
	// Distance past the bound clamps to it: the distance term bottoms out at
	// 0 instead of turning negative.
	got, err := Weight(bond(ring.Ionic, 10.0, 99.0, math.NaN()))
	if err != nil {
		t.Fatalf("weighting: %v", err)
	}
	if got != 0 {
		t.Errorf("over-long ionic bond: got %v, want 0", got)
	}

	// An over-wide family-A angle clamps too; only the distance term remains.
	got, err = Weight(bond(ring.PiCation, 10.0, 3.35, 400.0))
	if err != nil {
		t.Fatalf("weighting: %v", err)
	}
	want := 10.0 * (1 - 3.35/6.7)
	if diff := got - want; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("clamped pi-cation: got %v, want %v", got, want)
	}

	// Negative distance clamps to 0: full distance term.
	got, err = Weight(bond(ring.Ionic, 10.0, -1.0, math.NaN()))
	if err != nil {
		t.Fatalf("weighting: %v", err)
	}
	if got != 20.0 {
		t.Errorf("negative-distance ionic bond: got %v, want 20", got)
	}
}

func TestWeightUnsupportedClass(t *testing.T) {
	for _, class := range []ring.BondClass{ring.VdW, ring.SSBond, ring.IAC, ring.Metal, ring.BondClass("MYSTERY")} {
		_, err := Weight(bond(class, 1.0, 1.0, 1.0))
		if !errors.Is(err, ErrUnsupportedClass) {
			t.Errorf("%s: expected ErrUnsupportedClass, got %v", class, err)
		}
	}
}

func TestScored(t *testing.T) {
	for _, class := range []ring.BondClass{ring.HBond, ring.Ionic, ring.PiCation, ring.PiPiStack, ring.PiHBond} {
		if !Scored(class) {
			t.Errorf("%s should be scored", class)
		}
	}
	for _, class := range []ring.BondClass{ring.VdW, ring.SSBond, ring.IAC, ring.Metal} {
		if Scored(class) {
			t.Errorf("%s should not be scored", class)
		}
	}
}
