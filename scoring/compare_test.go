package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name           string
		wt, variant    float64
		wantFoldChange float64
		wantScore      float64
	}{
		{"quadrupled weight", 4, 16, 4, 2},
		{"quartered weight", 16, 4, 0.25, 2},
		{"unchanged weight", 8, 8, 1, 0},
		{"halved weight", 10, 5, 0.5, 1},
	}

	const eps = 1e-9
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compare(tt.wt, tt.variant)
			if err != nil {
				t.Fatalf("comparing: %v", err)
			}
			if diff := c.FoldChange - tt.wantFoldChange; diff < -eps || diff > eps {
				t.Errorf("fold change: got %v, want %v", c.FoldChange, tt.wantFoldChange)
			}
			if diff := c.Score - tt.wantScore; diff < -eps || diff > eps {
				t.Errorf("score: got %v, want %v", c.Score, tt.wantScore)
			}
			if c.Score < 0 {
				t.Errorf("score must be non-negative, got %v", c.Score)
			}
		})
	}
}

func TestCompareUndefined(t *testing.T) {
	tests := []struct {
		name        string
		wt, variant float64
	}{
		{"zero wild-type weight", 0, 16},
		{"both zero", 0, 0},
		{"negative ratio", 4, -16},
		{"zero variant weight", 4, 0},
		{"NaN wild-type weight", math.NaN(), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.wt, tt.variant)
			if !errors.Is(err, ErrUndefinedFoldChange) {
				t.Fatalf("expected ErrUndefinedFoldChange, got %v", err)
			}
		})
	}
}
