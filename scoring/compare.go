package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrUndefinedFoldChange is returned when the variant/wild-type weight ratio
// is not meaningful: the wild-type residue captured no weighted bonds, or the
// ratio came out non-positive. Callers batching many substitutions should
// record this as "not computable" rather than abort.
var ErrUndefinedFoldChange = errors.New("scoring: fold change undefined")

// Comparison is the weight comparison for one substitution site.
type Comparison struct {
	WildTypeWeight float64 `json:"wild_type_weight"`
	VariantWeight  float64 `json:"variant_weight"`
	FoldChange     float64 `json:"fold_change"`
	Score          float64 `json:"score"`
}

// Compare derives the fold change variant/wild-type of the two aggregate
// weights and the deleteriousness score |log2(fold change)|. The score's
// minimum is exactly 0, reached when the weights are equal and non-zero.
func Compare(wtWeight, varWeight float64) (*Comparison, error) {
	if wtWeight == 0 {
		return nil, fmt.Errorf("%w: wild-type weight is 0", ErrUndefinedFoldChange)
	}

	fc := varWeight / wtWeight
	if math.IsNaN(fc) || fc <= 0 {
		return nil, fmt.Errorf("%w: ratio %v/%v", ErrUndefinedFoldChange, varWeight, wtWeight)
	}

	return &Comparison{
		WildTypeWeight: wtWeight,
		VariantWeight:  varWeight,
		FoldChange:     fc,
		Score:          math.Abs(math.Log2(fc)),
	}, nil
}
