package classifier

import (
	"math/bits"

	"github.com/loggy01/alpharing/features"
)

// Explain decomposes a prediction into one additive contribution per
// feature: exact interventional Shapley values over the background sample.
// The attributions sum to Predict(v) - Baseline() up to float error, so a
// positive value reads as "this feature pushed the verdict toward
// deleterious relative to the background".
//
// With features.Count inputs the exact computation enumerates
// 2^features.Count coalitions, each averaged over the background, which is
// cheap at this dimensionality and avoids sampling noise in reports.
func (m *Model) Explain(v features.Vector) [features.Count]float64 {
	const n = features.Count

	// value[mask] is the coalition value: the mean prediction over the
	// background with the features in mask taken from v and the rest from
	// the background row.
	var value [1 << n]float64
	for mask := range value {
		sum := 0.0
		for _, b := range m.background {
			h := b
			for i := 0; i < n; i++ {
				if mask&(1<<i) != 0 {
					h[i] = v[i]
				}
			}
			sum += m.Predict(h)
		}
		value[mask] = sum / float64(len(m.background))
	}

	var phi [n]float64
	for i := 0; i < n; i++ {
		bit := 1 << i
		for mask := 0; mask < 1<<n; mask++ {
			if mask&bit != 0 {
				continue
			}
			w := coalitionWeight[bits.OnesCount(uint(mask))]
			phi[i] += w * (value[mask|bit] - value[mask])
		}
	}
	return phi
}

// coalitionWeight[s] = s!(n-1-s)!/n! for a coalition of size s, the Shapley
// weight of one marginal contribution.
var coalitionWeight = func() [features.Count]float64 {
	var w [features.Count]float64
	for s := range w {
		w[s] = factorial(s) * factorial(features.Count-1-s) / factorial(features.Count)
	}
	return w
}()

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
